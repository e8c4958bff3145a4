package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/embedsvc/embedsvc/internal/embedder"
	"github.com/embedsvc/embedsvc/internal/metrics"
	"github.com/embedsvc/embedsvc/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService builds a real service over constructor.
func newTestService(construct service.Constructor) *service.Service {
	return service.New(context.Background(), construct, service.Options{Backend: "local", Logger: testLogger()})
}

func localConstructor(context.Context) (embedder.Embedder, error) {
	return embedder.NewLocalEmbedder(), nil
}

// panicService panics on Embed.
type panicService struct{ *service.Service }

func (panicService) Embed(context.Context, string) (*service.Result, error) {
	panic("boom")
}

func setupTestRouter(t *testing.T, svc EmbeddingService) *Router {
	t.Helper()
	return NewRouter(svc, RouterOptions{Version: "test", Logger: testLogger()})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// GET /health
// =============================================================================

func TestHealth_Ready(t *testing.T) {
	router := setupTestRouter(t, newTestService(localConstructor))

	rec := do(t, router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok","model":"`+embedder.ModelID+`","ready":true}`, rec.Body.String())
}

func TestHealth_NotReadyThenReadyAfterLazyInit(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(func(ctx context.Context) (embedder.Embedder, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("model files unavailable")
		}
		return embedder.NewLocalEmbedder(), nil
	})
	router := setupTestRouter(t, svc)

	health := decode[HealthResponse](t, do(t, router, http.MethodGet, "/health", ""))
	assert.False(t, health.Ready)
	assert.Equal(t, "ok", health.Status)

	rec := do(t, router, http.MethodPost, "/embed", `{"text":"hello world"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	health = decode[HealthResponse](t, do(t, router, http.MethodGet, "/health", ""))
	assert.True(t, health.Ready)
}

// =============================================================================
// POST /embed
// =============================================================================

func TestEmbed_Success(t *testing.T) {
	router := setupTestRouter(t, newTestService(localConstructor))

	for _, text := range []string{"", "hello world", "¿Dónde está la biblioteca?", "東京"} {
		t.Run(text, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"text": text})
			rec := do(t, router, http.MethodPost, "/embed", string(body))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			res := decode[EmbedResponse](t, rec)
			assert.Equal(t, embedder.ModelID, res.Model)
			assert.Equal(t, len(res.Embedding), res.Dim)
			assert.Equal(t, 384, res.Dim)
		})
	}
}

func TestEmbed_Repeatable(t *testing.T) {
	router := setupTestRouter(t, newTestService(localConstructor))

	first := decode[EmbedResponse](t, do(t, router, http.MethodPost, "/embed", `{"text":"same"}`))
	second := decode[EmbedResponse](t, do(t, router, http.MethodPost, "/embed", `{"text":"same"}`))

	assert.Equal(t, first.Dim, second.Dim)
	assert.Equal(t, first.Embedding, second.Embedding)
}

func TestEmbed_ExtraFieldsIgnored(t *testing.T) {
	router := setupTestRouter(t, newTestService(localConstructor))

	rec := do(t, router, http.MethodPost, "/embed", `{"text":"hi","lang":"en"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEmbed_InvalidBody(t *testing.T) {
	router := setupTestRouter(t, newTestService(localConstructor))

	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{name: "empty body", body: "", detail: "Request body contains invalid JSON"},
		{name: "not json", body: "text=hello", detail: "Request body contains invalid JSON"},
		{name: "array", body: `["hello"]`, detail: "Request body contains invalid JSON"},
		{name: "missing text", body: `{}`, detail: "Field 'text' is required and must be a string"},
		{name: "null text", body: `{"text":null}`, detail: "Field 'text' is required and must be a string"},
		{name: "number text", body: `{"text":42}`, detail: "Field 'text' is required and must be a string"},
		{name: "list text", body: `{"text":["a"]}`, detail: "Field 'text' is required and must be a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/embed", tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			res := decode[ErrorResponse](t, rec)
			assert.True(t, strings.HasPrefix(res.Detail, tt.detail), res.Detail)
		})
	}
}

func TestEmbed_BackendFailure(t *testing.T) {
	mock := embedder.NewMockEmbedder()
	mock.SetError(embedder.ErrProviderUnavailable)
	router := setupTestRouter(t, newTestService(func(context.Context) (embedder.Embedder, error) {
		return mock, nil
	}))

	rec := do(t, router, http.MethodPost, "/embed", `{"text":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	res := decode[ErrorResponse](t, rec)
	assert.True(t, strings.HasPrefix(res.Detail, "Embedding error: "), res.Detail)
	assert.Contains(t, res.Detail, "embedding provider is not responding")
	assert.Equal(t, "EMBEDDING_FAILED", rec.Header().Get("X-Error-Code"))
	assert.Equal(t, "PROVIDER_UNAVAILABLE", rec.Header().Get(BackendErrorHeader))
}

func TestEmbed_InitFailure(t *testing.T) {
	router := setupTestRouter(t, newTestService(func(context.Context) (embedder.Embedder, error) {
		return nil, errors.New("weights not found")
	}))

	rec := do(t, router, http.MethodPost, "/embed", `{"text":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Embedding error: weights not found"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get(BackendErrorHeader))
}

func TestEmbed_EmptyResult(t *testing.T) {
	mock := embedder.NewMockEmbedder()
	mock.SetEmpty(true)
	router := setupTestRouter(t, newTestService(func(context.Context) (embedder.Embedder, error) {
		return mock, nil
	}))

	rec := do(t, router, http.MethodPost, "/embed", `{"text":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Embedding error: no embedding returned from model"}`, rec.Body.String())
}

func TestEmbed_PanicRecovered(t *testing.T) {
	router := setupTestRouter(t, panicService{newTestService(localConstructor)})

	rec := do(t, router, http.MethodPost, "/embed", `{"text":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "INTERNAL_ERROR", rec.Header().Get("X-Error-Code"))
	assert.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())
}

// panicEmbedder panics on every Embed call.
type panicEmbedder struct{ *embedder.LocalEmbedder }

func (panicEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	panic("tensor shape mismatch")
}

func TestEmbed_PanickingBackend(t *testing.T) {
	router := setupTestRouter(t, newTestService(func(context.Context) (embedder.Embedder, error) {
		return panicEmbedder{embedder.NewLocalEmbedder()}, nil
	}))

	rec := do(t, router, http.MethodPost, "/embed", `{"text":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "EMBEDDING_FAILED", rec.Header().Get("X-Error-Code"))
	assert.JSONEq(t, `{"detail":"Embedding error: model panicked: tensor shape mismatch"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/health", "")
	assert.Contains(t, rec.Body.String(), `"ready":true`)
}

func TestEmbed_PanickingConstructor(t *testing.T) {
	svc := newTestService(func(context.Context) (embedder.Embedder, error) {
		panic("weights corrupt")
	})
	router := setupTestRouter(t, svc)

	rec := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":false`)

	rec = do(t, router, http.MethodPost, "/embed", `{"text":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Embedding error: model construction panicked: weights corrupt"}`, rec.Body.String())
}

// =============================================================================
// GET /status, routing, middleware
// =============================================================================

func TestStatus(t *testing.T) {
	router := setupTestRouter(t, newTestService(localConstructor))

	rec := do(t, router, http.MethodGet, "/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[StatusResponse](t, rec)
	require.NotNil(t, res.Daemon)
	require.NotNil(t, res.Model)
	assert.Equal(t, "test", res.Daemon.Version)
	assert.Positive(t, res.Daemon.PID)
	assert.Equal(t, "local", res.Model.Backend)
	assert.True(t, res.Model.Ready)
	assert.Equal(t, 384, res.Model.Dimensions)
	assert.Equal(t, 1, res.Model.InitAttempts)
}

func TestRouting_NotFoundAndMethodNotAllowed(t *testing.T) {
	router := setupTestRouter(t, newTestService(localConstructor))

	rec := do(t, router, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Not Found"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/embed", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"detail":"Method Not Allowed"}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	router := setupTestRouter(t, newTestService(localConstructor))

	t.Run("generated", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/health", "")
		id := rec.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})

	rejected := map[string]string{
		"too long":      strings.Repeat("a", maxRequestIDLength+1),
		"space":         "abc 123",
		"control":       "abc\x01123",
		"non-ascii":     "abc-ñ",
		"log injection": "x level=ERROR msg=forged",
	}
	for name, id := range rejected {
		t.Run("replaced "+name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set(RequestIDHeader, id)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			got := rec.Header().Get(RequestIDHeader)
			assert.NotEqual(t, id, got)
			assert.Len(t, got, 36)
		})
	}

	t.Run("max length kept", func(t *testing.T) {
		id := strings.Repeat("z", maxRequestIDLength)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, id)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
	})
}

func TestContextHandler_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	router := NewRouter(newTestService(localConstructor), RouterOptions{Logger: logger})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), "request_id=req-42")
	assert.Contains(t, buf.String(), "path=/health")
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.NewMetrics(metrics.InstanceInfo{Version: "test", Backend: "local"})
	router := NewRouter(newTestService(localConstructor), RouterOptions{Logger: testLogger(), Metrics: m})

	do(t, router, http.MethodPost, "/embed", `{"text":"hello"}`)
	do(t, router, http.MethodGet, "/nope", "")
	rec := do(t, router, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `embedsvc_http_requests_total{method="POST",route="/embed",status="200"} 1`)
	assert.Contains(t, body, `route="unmatched",status="404"`)
}

func TestMetricsEndpoint_DisabledWithoutMetrics(t *testing.T) {
	router := setupTestRouter(t, newTestService(localConstructor))

	rec := do(t, router, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIError(t *testing.T) {
	err := ErrEmbeddingFailed.WithDetails("timeout")
	assert.Equal(t, "Embedding error: timeout", err.Detail())
	assert.Equal(t, "EMBEDDING_FAILED: Embedding error: timeout", err.Error())
	assert.Equal(t, "Embedding error", ErrEmbeddingFailed.Detail(), "WithDetails must not mutate the original")
}
