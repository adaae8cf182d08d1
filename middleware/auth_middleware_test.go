package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/inventory-identity/config"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/services"
	"github.com/upb/inventory-identity/services/auth"
	"github.com/upb/inventory-identity/utils"
	"go.uber.org/zap"
)

// MockAuthenticator is a mock implementation of Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func ownerIdentity() *models.Identity {
	companyID := uuid.New()
	u := models.NewUser("Owner One", "owner@example.com", "", models.RoleOwner)
	u.CompanyID = &companyID
	return &models.Identity{User: u, Tenant: models.Tenant{CompanyID: companyID}}
}

func okHandler(t *testing.T, check func(r *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func failHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestAccessGuard(t *testing.T) {
	logger := zap.NewNop()

	t.Run("valid bearer token attaches identity", func(t *testing.T) {
		authn := new(MockAuthenticator)
		identity := ownerIdentity()
		authn.On("Authenticate", mock.Anything, "valid-token").Return(identity, nil)

		handler := NewAccessGuard(authn, logger).RequireAuth(okHandler(t, func(r *http.Request) {
			got := GetIdentityFromContext(r.Context())
			require.NotNil(t, got)
			assert.Equal(t, identity.User.ID, got.User.ID)
			assert.Equal(t, identity.Tenant, got.Tenant)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		authn.AssertExpectations(t)
	})

	t.Run("scheme is case-insensitive", func(t *testing.T) {
		authn := new(MockAuthenticator)
		authn.On("Authenticate", mock.Anything, "tok").Return(ownerIdentity(), nil)

		handler := NewAccessGuard(authn, logger).RequireAuth(okHandler(t, nil))
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "bearer tok")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token returns 401", func(t *testing.T) {
		authn := new(MockAuthenticator)
		handler := NewAccessGuard(authn, logger).RequireAuth(failHandler(t))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthorized", decodeError(t, w).Error)
		authn.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
	})

	t.Run("non-bearer scheme returns 401", func(t *testing.T) {
		authn := new(MockAuthenticator)
		handler := NewAccessGuard(authn, logger).RequireAuth(failHandler(t))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refresh cookie is not accepted as access credential", func(t *testing.T) {
		authn := new(MockAuthenticator)
		handler := NewAccessGuard(authn, logger).RequireAuth(failHandler(t))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "whatever"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token returns 401", func(t *testing.T) {
		authn := new(MockAuthenticator)
		authn.On("Authenticate", mock.Anything, "bad").Return(nil, services.ErrInvalidToken)

		handler := NewAccessGuard(authn, logger).RequireAuth(failHandler(t))
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer bad")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid authentication token", decodeError(t, w).Message)
	})

	t.Run("vanished principal is reported as 401", func(t *testing.T) {
		authn := new(MockAuthenticator)
		authn.On("Authenticate", mock.Anything, "tok").Return(nil, services.ErrUserNotFound)

		handler := NewAccessGuard(authn, logger).RequireAuth(failHandler(t))
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "not found")
	})

	t.Run("backend failure returns 500 without detail", func(t *testing.T) {
		authn := new(MockAuthenticator)
		authn.On("Authenticate", mock.Anything, "tok").
			Return(nil, services.ErrDatabaseError.Wrap(errors.New("pq: connection reset")))

		handler := NewAccessGuard(authn, logger).RequireAuth(failHandler(t))
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "pq:")
	})
}

func TestRefreshGuard(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.AuthConfig{
		AccessSecret:  "access-secret-access-secret-0123",
		RefreshSecret: "refresh-secret-refresh-secret-01",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "inventory-identity",
	}
	issuer := auth.NewTokenIssuer(cfg)
	userID := uuid.New()
	pair, err := issuer.Issue(userID, "owner@example.com")
	require.NoError(t, err)

	t.Run("valid cookie attaches credentials", func(t *testing.T) {
		handler := NewRefreshGuard(issuer, logger).RequireRefresh(okHandler(t, func(r *http.Request) {
			creds := GetRefreshFromContext(r.Context())
			require.NotNil(t, creds)
			assert.Equal(t, userID, creds.UserID)
			assert.Equal(t, pair.RefreshToken, creds.Token)
		}))

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: pair.RefreshToken})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing cookie returns 401", func(t *testing.T) {
		handler := NewRefreshGuard(issuer, logger).RequireRefresh(failHandler(t))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token in header is ignored", func(t *testing.T) {
		handler := NewRefreshGuard(issuer, logger).RequireRefresh(failHandler(t))
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("access token in cookie returns 401", func(t *testing.T) {
		handler := NewRefreshGuard(issuer, logger).RequireRefresh(failHandler(t))
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: pair.AccessToken})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
