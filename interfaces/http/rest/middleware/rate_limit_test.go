package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/Quan024/Phan-loai-bao/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func TestIPRateLimiterPerClientBuckets(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Another client has its own bucket.
	assert.True(t, limiter.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
}

func TestIPRateLimiterDropsIdleClients(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	limiter.lastSweep = now

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")
	assert.Equal(t, 2, limiter.Len())

	now = now.Add(2 * time.Minute)
	limiter.Allow("10.0.0.3")
	assert.Equal(t, 1, limiter.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := zap.NewNop()
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimit(limiter, pkgerrors.NewErrorHandler(logger, false), logger)(ok)

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/predict", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1:5001"))
	assert.Equal(t, http.StatusOK, send("192.0.2.7:5000"))
}

func TestRateLimitForwardedHeaders(t *testing.T) {
	logger := zap.NewNop()
	newRouter := func(trust bool) http.Handler {
		limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, TrustForwardedFor: trust})
		r := chi.NewRouter()
		r.Use(PeerAddr)
		r.Use(chimiddleware.RealIP)
		r.Use(RateLimit(limiter, pkgerrors.NewErrorHandler(logger, false), logger))
		r.Post("/predict", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return r
	}
	send := func(h http.Handler, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/predict", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("rotating forwarded addresses share the peer bucket", func(t *testing.T) {
		h := newRouter(false)
		assert.Equal(t, http.StatusOK, send(h, "203.0.113.1"))
		assert.Equal(t, http.StatusTooManyRequests, send(h, "203.0.113.2"))
		assert.Equal(t, http.StatusTooManyRequests, send(h, "203.0.113.3"))
	})

	t.Run("trusted proxy keys on the forwarded client", func(t *testing.T) {
		h := newRouter(true)
		assert.Equal(t, http.StatusOK, send(h, "203.0.113.1"))
		assert.Equal(t, http.StatusOK, send(h, "203.0.113.2"))
		assert.Equal(t, http.StatusTooManyRequests, send(h, "203.0.113.1"))
	})
}
