package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/hybridsearch/internal/domain"
	"github.com/utafrali/hybridsearch/internal/engine"
	"github.com/utafrali/hybridsearch/internal/engine/memory"
	"github.com/utafrali/hybridsearch/internal/service"
	"github.com/utafrali/hybridsearch/pkg/health"
	"github.com/utafrali/hybridsearch/pkg/httputil"
	"github.com/utafrali/hybridsearch/pkg/middleware"
)

const testSecret = "handler-test-secret"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type errorStrategy struct{ calls int }

func (e *errorStrategy) Search(context.Context, domain.StrategyQuery) (domain.StrategyResult, error) {
	e.calls++
	return domain.StrategyResult{}, errors.New("elasticsearch search: connection refused")
}

type testEnv struct {
	router  http.Handler
	catalog *memory.Engine
	index   *memory.Engine
	failing *errorStrategy
}

func newTestEnv(t *testing.T, cfg RouterConfig, withReindex bool) *testEnv {
	t.Helper()
	logger := newTestLogger()

	catalog := memory.New()
	require.NoError(t, catalog.BulkIndex(context.Background(), []domain.ProductRecord{
		{ProductID: 1, Name: "Running Shoes", MRP: 900, DiscountPrice: 450, Qty: 4, Image: "run.png", CategoryName: "Footwear"},
		{ProductID: 2, Name: "Leather Shoes", MRP: 2400, DiscountPrice: 1200, Qty: 2, Image: "leather.png", CategoryName: "Footwear"},
		{ProductID: 3, Name: "Canvas Shoes", MRP: 998, DiscountPrice: 499, Qty: 0, Image: "", CategoryName: "Footwear"},
		{ProductID: 4, Name: "Wool Socks", MRP: 300, DiscountPrice: 150, Qty: 9, Image: "socks.png", CategoryName: "Hosiery"},
	}))
	index := memory.New()
	failing := &errorStrategy{}

	normalizer, err := service.NewNormalizer("http://localhost:5000", "/uploads/product-images/")
	require.NoError(t, err)
	svc := service.NewSearchService(map[domain.Mode]engine.Strategy{
		domain.ModeLexical:   catalog,
		domain.ModeRelevance: failing,
	}, normalizer, service.Options{DefaultLimit: 10, MaxLimit: 100, SuggestLimit: 5}, logger).
		WithSuggester(catalog)

	var reindexer *service.Reindexer
	if withReindex {
		reindexer = service.NewReindexer(catalog, index, 2, logger)
	}

	h := NewSearchHandler(svc, reindexer, logger)
	return &testEnv{
		router:  NewRouter(h, health.NewHandler(), cfg, logger),
		catalog: catalog,
		index:   index,
		failing: failing,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, configure ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, fn := range configure {
		fn(req)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) domain.ResultPage {
	t.Helper()
	var page domain.ResultPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	return page
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestSearch_SimpleShoesUnder500(t *testing.T) {
	env := newTestEnv(t, RouterConfig{}, false)

	rec := env.do(t, http.MethodGet, "/api/search/simple?q=shoes+under+500")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	page := decodePage(t, rec)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, "relevance", page.Sort)
	require.Len(t, page.Results, 2)
	assert.Equal(t, int64(1), page.Results[0].ProductID)
	assert.Equal(t, "http://localhost:5000/uploads/product-images/run.png", page.Results[0].Image)
	assert.Equal(t, "", page.Results[1].Image)
}

func TestSearch_ResponseFieldNames(t *testing.T) {
	env := newTestEnv(t, RouterConfig{}, false)

	rec := env.do(t, http.MethodGet, "/api/search/simple?q=socks")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"total", "page", "limit", "totalPages", "sort", "results"} {
		assert.Contains(t, raw, key)
	}
	results := raw["results"].([]any)
	require.Len(t, results, 1)
	hit := results[0].(map[string]any)
	for _, key := range []string{"product_id", "name", "MRP_in_INR", "discount_price", "qty", "image", "category_name", "category_description"} {
		assert.Contains(t, hit, key)
	}
}

func TestSearch_PagingAndSortParams(t *testing.T) {
	env := newTestEnv(t, RouterConfig{}, false)

	rec := env.do(t, http.MethodGet, "/api/search/simple?q=shoes&page=2&limit=2&sort=desc")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodePage(t, rec)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, "desc", page.Sort)
	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(1), page.Results[0].ProductID)
}

func TestSearch_MalformedParamsUseDefaults(t *testing.T) {
	env := newTestEnv(t, RouterConfig{}, false)

	rec := env.do(t, http.MethodGet, "/api/search/simple?q=shoes&page=abc&limit=-4&sort=bogus")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodePage(t, rec)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, "relevance", page.Sort)
}

func TestSearch_BlankQueryIs400WithoutBackendCall(t *testing.T) {
	env := newTestEnv(t, RouterConfig{}, false)

	for _, target := range []string{"/api/search/elastic", "/api/search/elastic?q=", "/api/search/elastic?q=%20%20"} {
		rec := env.do(t, http.MethodGet, target, func(r *http.Request) {
			r.Header.Set(middleware.CorrelationHeader, "req-123")
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		e := decodeError(t, rec)
		assert.Equal(t, "INVALID_INPUT", e.Code)
		assert.Equal(t, "search query is required", e.Message)
		assert.Equal(t, "req-123", e.RequestID)
	}
	assert.Equal(t, 0, env.failing.calls)
}

func TestSearch_BackendFailureIs500(t *testing.T) {
	env := newTestEnv(t, RouterConfig{}, false)

	rec := env.do(t, http.MethodGet, "/api/search/elastic?q=shoes")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", e.Code)
	assert.Equal(t, "an internal error occurred", e.Message)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Equal(t, 1, env.failing.calls)
}

func TestSuggest(t *testing.T) {
	env := newTestEnv(t, RouterConfig{}, false)

	rec := env.do(t, http.MethodGet, "/api/search/suggest?q=can&limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"suggestions":["Canvas Shoes"]}}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/search/suggest")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReindex_Accepted(t *testing.T) {
	env := newTestEnv(t, RouterConfig{}, true)

	rec := env.do(t, http.MethodPost, "/api/search/reindex")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"data":{"status":"reindex started"}}`, rec.Body.String())

	require.Eventually(t, func() bool { return env.index.Len() == 4 }, 2*time.Second, 10*time.Millisecond)
}

func TestReindex_UnavailableWithoutReindexer(t *testing.T) {
	env := newTestEnv(t, RouterConfig{}, false)

	rec := env.do(t, http.MethodPost, "/api/search/reindex")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, rec).Code)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	env := newTestEnv(t, RouterConfig{}, false)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready").Code)

	env.do(t, http.MethodGet, "/api/search/simple?q=socks")
	rec := env.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "search_requests_total")
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestPprof_DeniedOutsideAllowlist(t *testing.T) {
	env := newTestEnv(t, RouterConfig{PprofCIDRs: []string{"10.0.0.0/8"}}, false)

	rec := env.do(t, http.MethodGet, "/debug/pprof/", func(r *http.Request) {
		r.RemoteAddr = "192.0.2.1:1234"
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuth_GatesSearchRoutes(t *testing.T) {
	env := newTestEnv(t, RouterConfig{Auth: &middleware.AuthConfig{Secret: testSecret}}, false)

	rec := env.do(t, http.MethodGet, "/api/search/simple?q=socks")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/search/simple?q=socks", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-jwt")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/search/simple?q=socks", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: middleware.DefaultTokenCookie, Value: token})
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live").Code)
}

func TestRateLimit(t *testing.T) {
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	env := newTestEnv(t, RouterConfig{RateLimitRPS: 1, RateLimitBurst: 2, Done: done}, false)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, env.do(t, http.MethodGet, "/api/search/simple?q=socks").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
