package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeES is a minimal Elasticsearch HTTP endpoint. Responses are looked up
// by "METHOD /path"; unknown routes answer 404.
type fakeES struct {
	t        *testing.T
	mu       sync.Mutex
	routes   map[string]fakeResponse
	requests []recordedRequest
	server   *httptest.Server
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeES(t *testing.T) *fakeES {
	t.Helper()
	f := &fakeES{t: t, routes: map[string]fakeResponse{
		"HEAD /products": {status: http.StatusOK},
	}}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeES) on(route string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = fakeResponse{status: status, body: body}
}

func (f *fakeES) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body),
	})
	resp, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"resource_not_found_exception","reason":"no route"},"status":404}`)
		return
	}
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

// last returns the most recent request for method and path.
func (f *fakeES) last(method, path string) recordedRequest {
	f.t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Method == method && f.requests[i].Path == path {
			return f.requests[i]
		}
	}
	f.t.Fatalf("no %s %s request recorded", method, path)
	return recordedRequest{}
}

func (f *fakeES) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (f *fakeES) engine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(context.Background(), Config{URL: f.server.URL, Index: "products"}, testLogger())
	require.NoError(t, err)
	return eng
}

func decodeBody(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(strings.NewReader(body)).Decode(&out))
	return out
}
