package core

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"hubwatch/internal/types"
)

type metricsCall struct {
	method, route string
	status        int
	duration      time.Duration
}

// mockMetricsCollector implements MetricsCollector for testing.
type mockMetricsCollector struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (m *mockMetricsCollector) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.mu.Lock()
	m.calls = append(m.calls, metricsCall{method, route, status, d})
	m.mu.Unlock()
}

// newTestServerForMiddleware creates a Server with a discarding logger.
func newTestServerForMiddleware(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return &Server{Logger: logger}
}

// --- Recoverer ---

func TestRecoverer_NoPanic(t *testing.T) {
	srv := newTestServerForMiddleware(t)

	handler := srv.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRecoverer_Panic_ReturnsJSON500WithRequestID(t *testing.T) {
	srv := newTestServerForMiddleware(t)

	handler := srv.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("snapshot payload was nil")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/hubs/CLT/timeline", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req_abc123"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
	var resp APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("expected error code %q, got %q", types.ErrCodeInternalUnexpected, resp.Error.Code)
	}
	if resp.Error.RequestID != "req_abc123" {
		t.Errorf("expected request_id %q, got %q", "req_abc123", resp.Error.RequestID)
	}
}

func TestRecoverer_PanicWithNonString(t *testing.T) {
	srv := newTestServerForMiddleware(t)

	handler := srv.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(42)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestRecoverer_AbortHandlerPropagates(t *testing.T) {
	srv := newTestServerForMiddleware(t)
	handler := srv.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rvr := recover(); rvr != http.ErrAbortHandler {
			t.Errorf("expected http.ErrAbortHandler to propagate, got %v", rvr)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/events", nil))
}

// --- ResponseHeadersMiddleware ---

func TestResponseHeadersMiddleware(t *testing.T) {
	handler := ResponseHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/hubs", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options: got %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control: got %q", got)
	}
}

func TestResponseHeadersMiddleware_HandlerOverridesCacheControl(t *testing.T) {
	handler := ResponseHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events", nil))

	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control: got %q, want the handler's value", got)
	}
}

// --- CORS ---

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		wantOrigin string
		wantVary   bool
	}{
		{"wildcard", []string{"*"}, "https://ops.example.com", "*", false},
		{"listed origin", []string{"https://ops.example.com"}, "https://ops.example.com", "https://ops.example.com", true},
		{"unlisted origin", []string{"https://ops.example.com"}, "https://evil.example.com", "", false},
		{"no origin header", []string{"https://ops.example.com"}, "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewCORSMiddleware(tc.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/v1/hubs", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin: got %q, want %q", got, tc.wantOrigin)
			}
			if got := rec.Header().Get("Vary") == "Origin"; got != tc.wantVary {
				t.Errorf("Vary: Origin set = %v, want %v", got, tc.wantVary)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
		})
	}
}

func TestCORSMiddleware_OptionsPreflightReturns204(t *testing.T) {
	called := false
	handler := NewCORSMiddleware([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/v1/events", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if called {
		t.Error("preflight must not reach the handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods: got %q", got)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "Last-Event-ID") {
		t.Errorf("Access-Control-Allow-Headers should allow Last-Event-ID")
	}
}

// --- MetricsMiddleware ---

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	srv := newTestServerForMiddleware(t)
	mc := &mockMetricsCollector{}
	srv.Metrics = mc

	r := chi.NewRouter()
	r.Use(srv.MetricsMiddleware)
	r.Get("/v1/hubs/{code}/timeline", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, path := range []string{"/v1/hubs/CLT/timeline", "/v1/hubs/PHL/timeline", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if len(mc.calls) != 3 {
		t.Fatalf("expected 3 metrics calls, got %d", len(mc.calls))
	}
	for _, call := range mc.calls[:2] {
		if call.route != "/v1/hubs/{code}/timeline" || call.status != http.StatusAccepted {
			t.Errorf("got route %q status %d", call.route, call.status)
		}
	}
	if mc.calls[2].route != "unmatched" || mc.calls[2].status != http.StatusNotFound {
		t.Errorf("404 recorded as route %q status %d", mc.calls[2].route, mc.calls[2].status)
	}
}

func TestMetricsMiddleware_NilCollector_PassesThrough(t *testing.T) {
	srv := newTestServerForMiddleware(t)

	called := false
	handler := srv.MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	if !called {
		t.Error("next handler should be called even when Metrics is nil")
	}
}

func TestMetricsMiddleware_MeasuresDuration(t *testing.T) {
	srv := newTestServerForMiddleware(t)
	mc := &mockMetricsCollector{}
	srv.Metrics = mc

	handler := srv.MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))

	if len(mc.calls) != 1 {
		t.Fatalf("expected 1 metrics call, got %d", len(mc.calls))
	}
	if mc.calls[0].status != http.StatusOK {
		t.Errorf("status: got %d, want 200 when WriteHeader is not called", mc.calls[0].status)
	}
	if mc.calls[0].duration < 10*time.Millisecond {
		t.Errorf("duration should be >= 10ms, got %v", mc.calls[0].duration)
	}
}

// --- RequestLogger ---

func TestRequestLogger_LogsRouteAndSize(t *testing.T) {
	buf := &strings.Builder{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Get("/v1/hubs/{code}/timeline", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/hubs/CLT/timeline", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req_test456"))
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal([]byte(buf.String()), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	want := map[string]any{
		"msg":        "request completed",
		"level":      "INFO",
		"method":     "GET",
		"path":       "/v1/hubs/CLT/timeline",
		"route":      "/v1/hubs/{code}/timeline",
		"status":     float64(200),
		"bytes":      float64(len(`{"data":{}}`)),
		"request_id": "req_test456",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %v", k, entry[k], v)
		}
	}
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, `"level":"INFO"`},
		{http.StatusNotFound, `"level":"WARN"`},
		{http.StatusBadGateway, `"level":"ERROR"`},
	}
	for _, tc := range tests {
		buf := &strings.Builder{}
		logger := slog.New(slog.NewJSONHandler(buf, nil))
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
		if !strings.Contains(buf.String(), tc.level) {
			t.Errorf("status %d: expected %s, got: %s", tc.status, tc.level, buf.String())
		}
	}
}

// --- statusRecorder ---

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := newStatusRecorder(rec)
	if sr.Status() != http.StatusOK {
		t.Errorf("untouched recorder should report 200, got %d", sr.Status())
	}

	sr.WriteHeader(http.StatusCreated)
	sr.WriteHeader(http.StatusNotFound)
	_, _ = sr.Write([]byte("abc"))

	if sr.Status() != http.StatusCreated {
		t.Errorf("expected first status %d, got %d", http.StatusCreated, sr.Status())
	}
	if sr.bytes != 3 {
		t.Errorf("bytes: got %d, want 3", sr.bytes)
	}
	if sr.Unwrap() != rec {
		t.Error("Unwrap should return the underlying ResponseWriter")
	}
}
