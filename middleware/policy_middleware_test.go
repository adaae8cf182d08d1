package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/upb/inventory-identity/internal/policy"
	"github.com/upb/inventory-identity/models"
	"go.uber.org/zap"
)

func TestRoleGuard(t *testing.T) {
	engine := policy.NewEngine(policy.RouteTable{
		"owners.only":   {Roles: []models.Role{models.RoleOwner}},
		"owners.public": {Public: true, Roles: []models.Role{models.RoleOwner}},
		"any.user":      {},
	})
	guard := NewRoleGuard(engine, zap.NewNop())

	staff := ownerIdentity()
	staff.User.Role = models.RoleStaff

	tests := []struct {
		name     string
		route    string
		identity *models.Identity
		want     int
	}{
		{"staff on owner route", "owners.only", staff, http.StatusForbidden},
		{"owner on owner route", "owners.only", ownerIdentity(), http.StatusOK},
		{"staff on public route", "owners.public", staff, http.StatusOK},
		{"anonymous on public route", "owners.public", nil, http.StatusOK},
		{"staff on authenticated route", "any.user", staff, http.StatusOK},
		{"anonymous on authenticated route", "any.user", nil, http.StatusUnauthorized},
		{"undeclared route", "nowhere", ownerIdentity(), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			}
			w := httptest.NewRecorder()

			guard.For(tt.route)(okHandler(t, nil)).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRoleGuard_ForbiddenBody(t *testing.T) {
	guard := NewRoleGuard(policy.NewEngine(policy.DefaultRoutes()), zap.NewNop())
	staff := ownerIdentity()
	staff.User.Role = models.RoleStaff

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stores", nil)
	req = req.WithContext(WithIdentity(req.Context(), staff))
	w := httptest.NewRecorder()

	guard.For(policy.RouteCreateStore)(failHandler(t)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "forbidden", body.Error)
	assert.Equal(t, "insufficient role", body.Message)
}

func TestEnforce_NilRequestFallsBack(t *testing.T) {
	g := GuardFunc(func(r *http.Request) (policy.Decision, *http.Request) {
		return policy.Allow("ok"), nil
	})

	w := httptest.NewRecorder()
	Enforce(g, zap.NewNop())(okHandler(t, nil)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
