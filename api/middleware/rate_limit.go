package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/soundforms/atelier-backend/api/responses"
	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
)

// rateLimiter is the slice of the Redis client the middleware needs.
type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy binds a scope name to a fixed window budget.
type RateLimitPolicy struct {
	Scope  string
	Limit  int64
	Window time.Duration
}

// RateLimit applies a per-client fixed window limit. A Redis outage fails
// open: dropping traffic because the limiter is down hurts more than letting
// a burst through.
func RateLimit(policy RateLimitPolicy, limiter rateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || policy.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			scope := policy.Scope + ":" + clientIP(r)
			allowed, _, err := limiter.FixedWindowAllow(r.Context(), scope, policy.Limit, policy.Window)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "rate limiter unavailable, failing open", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
