package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/inventory-identity/internal/policy"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/services"
	"github.com/upb/inventory-identity/services/auth"
	"go.uber.org/zap"
)

// RefreshCookieName is the cookie carrying the refresh token
const RefreshCookieName = "refresh_token"

// Authenticator resolves a bearer access token to a fresh identity
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.Identity, error)
}

// RefreshVerifier checks the signature and expiry of a refresh token
type RefreshVerifier interface {
	VerifyRefresh(raw string) (*auth.Claims, error)
}

// AccessGuard authenticates requests carrying "Authorization: Bearer <token>"
type AccessGuard struct {
	authenticator Authenticator
	logger        *zap.Logger
}

// NewAccessGuard creates a new AccessGuard
func NewAccessGuard(authenticator Authenticator, logger *zap.Logger) *AccessGuard {
	return &AccessGuard{authenticator: authenticator, logger: logger}
}

// Check verifies the bearer token, reloads the principal and attaches the identity
func (g *AccessGuard) Check(r *http.Request) (policy.Decision, *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		return policy.Deny("missing bearer token", services.ErrUnauthorized), r
	}

	identity, err := g.authenticator.Authenticate(r.Context(), token)
	if err != nil {
		if services.IsNotFoundError(err) {
			// Never reveal that the principal vanished.
			err = services.ErrUnauthorized.Wrap(err)
		}
		return policy.Deny("authentication failed", err), r
	}

	g.logger.Debug("authentication successful",
		zap.String("request_id", GetRequestIDFromContext(r.Context())),
		zap.String("user_id", identity.User.ID.String()),
		zap.String("company_id", identity.Tenant.CompanyID.String()))

	return policy.Allow("authenticated"), r.WithContext(WithIdentity(r.Context(), identity))
}

// RequireAuth is AccessGuard as middleware
func (g *AccessGuard) RequireAuth(next http.Handler) http.Handler {
	return Enforce(g, g.logger)(next)
}

// RefreshGuard verifies the refresh cookie ahead of the refresh handler
type RefreshGuard struct {
	verifier RefreshVerifier
	logger   *zap.Logger
}

// NewRefreshGuard creates a new RefreshGuard
func NewRefreshGuard(verifier RefreshVerifier, logger *zap.Logger) *RefreshGuard {
	return &RefreshGuard{verifier: verifier, logger: logger}
}

// Check reads the refresh cookie (never a header) and attaches the verified credentials
func (g *RefreshGuard) Check(r *http.Request) (policy.Decision, *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return policy.Deny("missing refresh cookie", services.ErrUnauthorized), r
	}

	claims, err := g.verifier.VerifyRefresh(cookie.Value)
	if err != nil {
		return policy.Deny("refresh token rejected", err), r
	}

	creds := &RefreshCredentials{UserID: claims.UserID(), Token: cookie.Value}
	return policy.Allow("refresh token verified"), r.WithContext(WithRefresh(r.Context(), creds))
}

// RequireRefresh is RefreshGuard as middleware
func (g *RefreshGuard) RequireRefresh(next http.Handler) http.Handler {
	return Enforce(g, g.logger)(next)
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
