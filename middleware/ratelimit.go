package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/upb/inventory-identity/services/ratelimit"
	"github.com/upb/inventory-identity/utils"
	"go.uber.org/zap"
)

// RateLimitChecker defines the interface for rate limit checking
type RateLimitChecker interface {
	CheckLimit(ctx context.Context, req ratelimit.Request) (*ratelimit.Result, error)
}

// RateLimiter throttles requests per client address and route.
// A nil checker or a backend failure lets the request through.
type RateLimiter struct {
	checker RateLimitChecker
	logger  *zap.Logger
}

// NewRateLimiter creates a new RateLimiter. checker may be nil.
func NewRateLimiter(checker RateLimitChecker, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{checker: checker, logger: logger}
}

// For returns middleware drawing from the bucket of routeID
func (l *RateLimiter) For(routeID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil || l.checker == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.checker.CheckLimit(r.Context(), ratelimit.Request{
				ClientIP: ClientIP(r),
				RouteID:  routeID,
			})
			if err != nil {
				l.logger.Warn("rate limiter unavailable, allowing request",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("route", routeID),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))

			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				l.logger.Info("request rate limited",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("route", routeID))
				_ = utils.WriteTooManyRequests(w, "", map[string]interface{}{"retry_after": secs})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
