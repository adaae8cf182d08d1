package policy

import (
	"github.com/upb/inventory-identity/models"
)

// Route identifiers known to the service.
const (
	RouteLogin       = "auth.login"
	RouteSignup      = "auth.signup"
	RouteRefresh     = "auth.refresh"
	RouteLive        = "health.live"
	RouteReady       = "health.ready"
	RouteMe          = "users.me"
	RouteCreateStaff = "users.create_staff"
	RouteCreateStore = "stores.create"
	RouteAuditList   = "audit.list"
)

// RoutePolicy is the access metadata declared for one route.
// A nil Roles means any authenticated principal; an empty non-nil Roles admits nobody.
type RoutePolicy struct {
	Public bool
	Roles  []models.Role
}

// RouteTable maps route identifiers to their policy
type RouteTable map[string]RoutePolicy

// Decision is the outcome of evaluating a route policy.
// Err is set exactly when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  string
	Err     error
}

// Allow returns an allowing decision
func Allow(reason string) Decision {
	return Decision{Allowed: true, Reason: reason}
}

// Deny returns a denying decision carrying err
func Deny(reason string, err error) Decision {
	return Decision{Allowed: false, Reason: reason, Err: err}
}

// DefaultRoutes returns the built-in route table
func DefaultRoutes() RouteTable {
	return RouteTable{
		RouteLogin:       {Public: true},
		RouteSignup:      {Public: true},
		RouteRefresh:     {Public: true},
		RouteLive:        {Public: true},
		RouteReady:       {Public: true},
		RouteMe:          {},
		RouteCreateStaff: {Roles: []models.Role{models.RoleOwner, models.RoleManager}},
		RouteCreateStore: {Roles: []models.Role{models.RoleOwner}},
		RouteAuditList:   {Roles: []models.Role{models.RoleOwner}},
	}
}

// Clone returns a deep copy of t
func (t RouteTable) Clone() RouteTable {
	out := make(RouteTable, len(t))
	for id, p := range t {
		var roles []models.Role
		if p.Roles != nil {
			roles = append([]models.Role{}, p.Roles...)
		}
		out[id] = RoutePolicy{Public: p.Public, Roles: roles}
	}
	return out
}
