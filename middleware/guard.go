package middleware

import (
	"net/http"

	"github.com/upb/inventory-identity/internal/policy"
	"github.com/upb/inventory-identity/services"
	"github.com/upb/inventory-identity/utils"
	"go.uber.org/zap"
)

// Guard inspects a request and returns an explicit decision. When allowing,
// the returned request carries whatever the guard attached to its context.
type Guard interface {
	Check(r *http.Request) (policy.Decision, *http.Request)
}

// GuardFunc adapts a function to Guard
type GuardFunc func(r *http.Request) (policy.Decision, *http.Request)

// Check calls f(r)
func (f GuardFunc) Check(r *http.Request) (policy.Decision, *http.Request) {
	return f(r)
}

// Enforce runs g before next and aborts the request on denial
func Enforce(g Guard, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, r2 := g.Check(r)
			if !decision.Allowed {
				logger.Warn("request denied",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("path", r.URL.Path),
					zap.String("reason", decision.Reason),
					zap.Error(decision.Err))
				writeDenial(w, decision.Err, logger)
				return
			}
			if r2 == nil {
				r2 = r
			}
			next.ServeHTTP(w, r2)
		})
	}
}

// writeDenial writes the guard failure with the shared error body.
// Only unauthorized and forbidden carry their message; anything else is a 500.
func writeDenial(w http.ResponseWriter, err error, logger *zap.Logger) {
	var writeErr error
	switch {
	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, services.GetErrorMessage(err))
	case services.IsForbiddenError(err):
		writeErr = utils.WriteForbidden(w, services.GetErrorMessage(err))
	default:
		logger.Error("guard failed", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "")
	}
	if writeErr != nil {
		logger.Error("failed to write denial response", zap.Error(writeErr))
	}
}
