package policy

import (
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/services"
)

// Engine evaluates route policies. It is safe for concurrent use; the table
// is copied at construction and never mutated afterwards.
type Engine struct {
	routes RouteTable
}

// NewEngine creates an engine over a copy of routes
func NewEngine(routes RouteTable) *Engine {
	return &Engine{routes: routes.Clone()}
}

// Policy returns the policy declared for routeID
func (e *Engine) Policy(routeID string) (RoutePolicy, bool) {
	p, ok := e.routes[routeID]
	return p, ok
}

// Evaluate decides whether principal may call routeID. principal is nil for
// unauthenticated requests.
func (e *Engine) Evaluate(routeID string, principal *models.User) Decision {
	p, ok := e.routes[routeID]
	if !ok {
		return Deny("route has no policy", services.ErrForbidden.WithDetail("route", routeID))
	}

	if p.Public {
		return Allow("public route")
	}

	if principal == nil {
		return Deny("not authenticated", services.ErrUnauthorized)
	}

	if !principal.Role.IsValid() {
		return Deny("unrecognised role", services.ErrForbidden)
	}

	if p.Roles == nil {
		return Allow("authenticated route")
	}

	if principal.HasRole(p.Roles...) {
		return Allow("role permitted")
	}

	return Deny("role not permitted", services.ErrInsufficientRole)
}
