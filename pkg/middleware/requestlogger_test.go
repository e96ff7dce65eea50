package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/hybridsearch/pkg/logger"
)

func newTestLogger(w *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &out))
	return out
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	RequestLogging(newTestLogger(&buf))(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search/reindex", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationHeader))

	line := lastLine(t, &buf)
	assert.Equal(t, "http request", line["msg"])
	assert.Equal(t, float64(http.StatusAccepted), line["status"])
	assert.Equal(t, seen, line["correlation_id"])
}

func TestRequestLogging_KeepsInboundCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/api/search/simple?q=shoes", nil)
	req.Header.Set(CorrelationHeader, "corr-1")
	rec := httptest.NewRecorder()

	RequestLogging(newTestLogger(&buf))(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, "corr-1", rec.Header().Get(CorrelationHeader))
	line := lastLine(t, &buf)
	assert.Equal(t, "q=shoes", line["query"])
	assert.Equal(t, "INFO", line["level"])
}

func TestRequestLogging_ServerErrorLoggedAsWarn(t *testing.T) {
	var buf bytes.Buffer
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	RequestLogging(newTestLogger(&buf))(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "WARN", lastLine(t, &buf)["level"])
}

func TestRequestLogger_EnrichesContextLogger(t *testing.T) {
	var buf bytes.Buffer

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = logger.WithCorrelationID(ctx, "corr-2")
	ctx = logger.WithUserID(ctx, "42")
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside handler")
	})
	RequestLogger(newTestLogger(&buf))(next).ServeHTTP(httptest.NewRecorder(), req)

	line := lastLine(t, &buf)
	assert.Equal(t, "corr-2", line["correlation_id"])
	assert.Equal(t, "42", line["user_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", line["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", line["span_id"])
}

func TestRecovery_ReturnsErrorEnvelope(t *testing.T) {
	var buf bytes.Buffer
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map write")
	})

	rec := httptest.NewRecorder()
	Recovery(newTestLogger(&buf))(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search/simple", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
	assert.Contains(t, buf.String(), "panic recovered")
	assert.NotContains(t, rec.Body.String(), "nil map write")
}

func TestCacheControl(t *testing.T) {
	h := CacheControl("no-store")(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}
