package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firepit-chat/firepit/internal/shared"
)

func TestMiddlewareAllowsWithinLimit(t *testing.T) {
	l := NewLimiter()
	cfg := Config{MaxRequests: 2, Window: time.Minute}

	handler := l.Middleware(cfg, KeyByPrincipal, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/servers", nil)
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), &shared.Principal{UserID: "u1"}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, "2", res.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", res.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, res.Header().Get("X-RateLimit-Reset"))
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	l := NewLimiter()
	cfg := Config{MaxRequests: 1, Window: time.Minute}

	handler := l.Middleware(cfg, KeyByPrincipal, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	makeReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/servers", nil)
		return req.WithContext(shared.ContextWithPrincipal(req.Context(), &shared.Principal{UserID: "u1"}))
	}

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, makeReq())
	require.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, makeReq())
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddlewareKeysPrincipalsSeparately(t *testing.T) {
	l := NewLimiter()
	cfg := Config{MaxRequests: 1, Window: time.Minute}

	handler := l.Middleware(cfg, KeyByPrincipal, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, user := range []string{"u1", "u2"} {
		req := httptest.NewRequest(http.MethodPost, "/servers", nil)
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), &shared.Principal{UserID: user}))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		assert.Equal(t, http.StatusNoContent, res.Code, "user %s should have an independent window", user)
	}
}

func TestKeyByPrincipalFallsBackToIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, "ip:10.0.0.9:1234", KeyByPrincipal(req))

	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), &shared.Principal{UserID: "u7"}))
	assert.Equal(t, "user:u7", KeyByPrincipal(req))
}
