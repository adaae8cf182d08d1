package middleware

import (
	"context"
	"net"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/services/audit"
)

// Context key type to avoid collisions
type contextKey string

const (
	// IdentityKey is the context key for the authenticated principal and tenant
	IdentityKey contextKey = "identity"

	// RefreshKey is the context key for verified refresh credentials
	RefreshKey contextKey = "refresh"
)

// RefreshCredentials is a refresh token whose signature and expiry have been verified
type RefreshCredentials struct {
	UserID uuid.UUID
	Token  string
}

// GetIdentityFromContext retrieves the identity attached by AccessGuard
func GetIdentityFromContext(ctx context.Context) *models.Identity {
	if val := ctx.Value(IdentityKey); val != nil {
		if id, ok := val.(*models.Identity); ok {
			return id
		}
	}
	return nil
}

// WithIdentity adds an identity to the context
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// GetRefreshFromContext retrieves the credentials attached by RefreshGuard
func GetRefreshFromContext(ctx context.Context) *RefreshCredentials {
	if val := ctx.Value(RefreshKey); val != nil {
		if creds, ok := val.(*RefreshCredentials); ok {
			return creds
		}
	}
	return nil
}

// WithRefresh adds refresh credentials to the context
func WithRefresh(ctx context.Context, creds *RefreshCredentials) context.Context {
	return context.WithValue(ctx, RefreshKey, creds)
}

// GetRequestIDFromContext retrieves the id assigned by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// RequestMeta records request id, client address and user agent for audit events.
// Mount after chi's RequestID and TrustedProxies.RealIP.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithRequestMeta(r.Context(), models.RequestMeta{
			RequestID: GetRequestIDFromContext(r.Context()),
			IPAddress: ClientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the client address without port
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
