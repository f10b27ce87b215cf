package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	pkgerrors "github.com/Quan024/Phan-loai-bao/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds the per-client token bucket settings
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// Buckets idle for longer than this are dropped
	IdleTTL time.Duration
	// TrustForwardedFor keys buckets on the address chi's RealIP derives
	// from X-Forwarded-For or X-Real-IP. Enable it only behind a proxy that
	// overwrites those headers, otherwise clients can pick their own key.
	TrustForwardedFor bool
}

type peerAddrKey struct{}

// PeerAddr records the connection's RemoteAddr before RealIP rewrites it.
// It must run ahead of chi's RealIP.
func PeerAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerAddrKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP
type IPRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	config    RateLimitConfig
	lastSweep time.Time
	now       func() time.Time
}

// NewIPRateLimiter creates a limiter. A zero IdleTTL defaults to ten minutes.
func NewIPRateLimiter(config RateLimitConfig) *IPRateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &IPRateLimiter{
		visitors:  make(map[string]*visitor),
		config:    config,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether the client may proceed and consumes a token if so
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.config.IdleTTL {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.config.IdleTTL {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients
func (l *IPRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// RateLimit answers 429 once a client exhausts its bucket
func RateLimit(limiter *IPRateLimiter, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, limiter.config.TrustForwardedFor)
			if !limiter.Allow(ip) {
				logger.Debug("Rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
				errorHandler.Handle(w, r, pkgerrors.NewRateLimitError(limiter.config.RequestsPerSecond, limiter.config.Burst))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the bucket key for r. Unless forwarded headers are
// trusted it uses the peer address recorded by PeerAddr.
func clientIP(r *http.Request, trustForwarded bool) string {
	addr := r.RemoteAddr
	if !trustForwarded {
		if peer, ok := r.Context().Value(peerAddrKey{}).(string); ok {
			addr = peer
		}
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
