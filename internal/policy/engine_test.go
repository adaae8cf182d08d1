package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/services"
)

func user(role models.Role) *models.User {
	return models.NewUser("Test Principal", "p@example.com", "", role)
}

func TestEngine_Evaluate(t *testing.T) {
	engine := NewEngine(RouteTable{
		"owners.only":   {Roles: []models.Role{models.RoleOwner}},
		"owners.public": {Public: true, Roles: []models.Role{models.RoleOwner}},
		"any.user":      {},
		"managers":      {Roles: []models.Role{models.RoleOwner, models.RoleManager}},
		"nobody":        {Roles: []models.Role{}},
	})

	tests := []struct {
		name      string
		route     string
		principal *models.User
		allowed   bool
		wantErr   error
	}{
		{"staff on owner route is forbidden", "owners.only", user(models.RoleStaff), false, services.ErrInsufficientRole},
		{"owner on owner route", "owners.only", user(models.RoleOwner), true, nil},
		{"public wins over roles", "owners.public", user(models.RoleStaff), true, nil},
		{"public without principal", "owners.public", nil, true, nil},
		{"authenticated-only route", "any.user", user(models.RoleStaff), true, nil},
		{"anonymous on authenticated route", "any.user", nil, false, services.ErrUnauthorized},
		{"anonymous on role route", "owners.only", nil, false, services.ErrUnauthorized},
		{"manager in set", "managers", user(models.RoleManager), true, nil},
		{"empty role set admits nobody", "nobody", user(models.RoleOwner), false, services.ErrInsufficientRole},
		{"unknown route fails closed", "not.declared", user(models.RoleOwner), false, services.ErrForbidden},
		{"unexpected role value", "any.user", user(models.Role("ADMIN")), false, services.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Evaluate(tt.route, tt.principal)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.NotEmpty(t, d.Reason)
			if tt.wantErr != nil {
				require.Error(t, d.Err)
				assert.ErrorIs(t, d.Err, tt.wantErr)
			} else {
				assert.NoError(t, d.Err)
			}
		})
	}
}

func TestEngine_InsufficientRoleIsForbidden(t *testing.T) {
	engine := NewEngine(DefaultRoutes())

	d := engine.Evaluate(RouteCreateStore, user(models.RoleStaff))
	assert.False(t, d.Allowed)
	assert.True(t, services.IsForbiddenError(d.Err))
}

func TestEngine_CopiesTable(t *testing.T) {
	table := RouteTable{"r": {Roles: []models.Role{models.RoleOwner}}}
	engine := NewEngine(table)

	table["r"].Roles[0] = models.RoleStaff
	delete(table, "r")

	p, ok := engine.Policy("r")
	require.True(t, ok)
	assert.Equal(t, []models.Role{models.RoleOwner}, p.Roles)
}

func TestDefaultRoutes(t *testing.T) {
	routes := DefaultRoutes()

	for _, id := range []string{RouteLogin, RouteSignup, RouteRefresh, RouteLive, RouteReady} {
		assert.True(t, routes[id].Public, id)
	}
	for _, id := range []string{RouteMe, RouteCreateStaff, RouteCreateStore, RouteAuditList} {
		p, ok := routes[id]
		require.True(t, ok, id)
		assert.False(t, p.Public, id)
	}
}
