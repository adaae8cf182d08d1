package middleware

import (
	"net/http"

	"github.com/upb/inventory-identity/internal/policy"
	"github.com/upb/inventory-identity/models"
	"go.uber.org/zap"
)

// RoleGuard applies the route policy table to authenticated requests
type RoleGuard struct {
	engine *policy.Engine
	logger *zap.Logger
}

// NewRoleGuard creates a new RoleGuard
func NewRoleGuard(engine *policy.Engine, logger *zap.Logger) *RoleGuard {
	return &RoleGuard{engine: engine, logger: logger}
}

// Guard returns the guard for routeID
func (g *RoleGuard) Guard(routeID string) Guard {
	return GuardFunc(func(r *http.Request) (policy.Decision, *http.Request) {
		var principal *models.User
		if id := GetIdentityFromContext(r.Context()); id != nil {
			principal = id.User
		}
		return g.engine.Evaluate(routeID, principal), r
	})
}

// For returns middleware enforcing the policy of routeID.
// Mount after AccessGuard on protected routes.
func (g *RoleGuard) For(routeID string) func(http.Handler) http.Handler {
	return Enforce(g.Guard(routeID), g.logger)
}
