package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/admission-go/internal/handlers"
	"github.com/serroba/admission-go/internal/middleware"
	"github.com/stretchr/testify/assert"
)

type testOutput struct {
	Body string `json:"body"`
}

func setupTestAPI(t *testing.T) (*chi.Mux, huma.API, chan handlers.RequestMeta) {
	t.Helper()

	return setupTestAPIWithTrust(t, true)
}

func setupTestAPIWithTrust(t *testing.T, trustProxyHeaders bool) (*chi.Mux, huma.API, chan handlers.RequestMeta) {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestMeta(api, func() string { return "generated-id" }, middleware.ClientIP(trustProxyHeaders)))

	metaChan := make(chan handlers.RequestMeta, 1)

	huma.Get(api, "/test", func(ctx context.Context, _ *struct{}) (*testOutput, error) {
		metaChan <- handlers.RequestMetaFromContext(ctx)

		return &testOutput{Body: "ok"}, nil
	})

	return router, api, metaChan
}

func TestRequestMeta(t *testing.T) {
	t.Run("extracts user-agent and user id", func(t *testing.T) {
		router, _, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("User-Agent", testUserAgent)
		req.Header.Set(middleware.UserIDHeader, "user-7")

		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		meta := <-metaChan
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, testUserAgent, meta.UserAgent)
		assert.Equal(t, "user-7", meta.UserID)
	})

	t.Run("extracts first IP from X-Forwarded-For", func(t *testing.T) {
		router, _, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1, 172.16.0.1")

		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		meta := <-metaChan
		assert.Equal(t, "192.168.1.1", meta.ClientIP)
	})

	t.Run("ignores X-Forwarded-For from untrusted peers", func(t *testing.T) {
		router, _, metaChan := setupTestAPIWithTrust(t, false)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		req.Header.Set("X-Forwarded-For", "192.168.1.1")

		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		meta := <-metaChan
		assert.Equal(t, "10.1.2.3", meta.ClientIP)
	})

	t.Run("falls back to the remote address", func(t *testing.T) {
		router, _, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.1.2.3:5555"

		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		meta := <-metaChan
		assert.Equal(t, "10.1.2.3", meta.ClientIP)
	})

	t.Run("generates a request id when none is sent", func(t *testing.T) {
		router, _, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		meta := <-metaChan
		assert.Equal(t, "generated-id", meta.RequestID)
		assert.Equal(t, "generated-id", w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("keeps a caller supplied request id", func(t *testing.T) {
		router, _, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(middleware.RequestIDHeader, "abc-123")

		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		meta := <-metaChan
		assert.Equal(t, "abc-123", meta.RequestID)
		assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("replaces an oversized request id", func(t *testing.T) {
		router, _, metaChan := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(middleware.RequestIDHeader, strings.Repeat("x", 65))

		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		meta := <-metaChan
		assert.Equal(t, "generated-id", meta.RequestID)
	})
}
