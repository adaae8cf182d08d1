package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// User tests
func TestNewUser(t *testing.T) {
	user := NewUser("Jane Owner", "jane@example.com", "hash", RoleOwner)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "Jane Owner", user.Name)
	assert.Equal(t, RoleOwner, user.Role)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	assert.False(t, user.OwnsCompany())
}

func TestUser_JSONHidesPasswordHash(t *testing.T) {
	user := NewUser("Jane Owner", "jane@example.com", "$argon2id$secret", RoleOwner)

	data, err := json.Marshal(user)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "argon2id")
	assert.NotContains(t, string(data), "password")
}

func TestUser_OwnsCompany(t *testing.T) {
	user := NewUser("Jane Owner", "jane@example.com", "hash", RoleOwner)

	nilID := uuid.Nil
	user.CompanyID = &nilID
	assert.False(t, user.OwnsCompany())

	companyID := uuid.New()
	user.CompanyID = &companyID
	assert.True(t, user.OwnsCompany())
}

func TestUser_HasRole(t *testing.T) {
	user := NewUser("Sam Staff", "sam@example.com", "hash", RoleStaff)

	assert.True(t, user.HasRole(RoleOwner, RoleStaff))
	assert.False(t, user.HasRole(RoleOwner, RoleManager))
	assert.False(t, user.HasRole())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
		ok    bool
	}{
		{"OWNER", RoleOwner, true},
		{"manager", RoleManager, true},
		{" Staff ", RoleStaff, true},
		{"ADMIN", Role("ADMIN"), false},
		{"", Role(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseRole(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Company and store tests
func TestNewCompany(t *testing.T) {
	ownerID := uuid.New()
	company := NewCompany("Acme Trading", ownerID)

	assert.NotEqual(t, uuid.Nil, company.ID)
	assert.Equal(t, ownerID, company.OwnerID)
	assert.Equal(t, "companies", company.TableName())

	data, err := json.Marshal(company)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"company_name":"Acme Trading"`)
}

func TestNewStore(t *testing.T) {
	companyID := uuid.New()
	store := NewStore(companyID, "Downtown")

	assert.NotEqual(t, uuid.Nil, store.ID)
	assert.Equal(t, companyID, store.CompanyID)
	assert.Equal(t, "stores", store.TableName())
}

// Session tests
func TestRefreshSession_IsExpired(t *testing.T) {
	now := time.Now()
	session := NewRefreshSession(uuid.New(), "digest", now.Add(time.Minute))

	assert.False(t, session.IsExpired(now))
	assert.False(t, session.IsExpired(session.ExpiresAt))
	assert.True(t, session.IsExpired(now.Add(time.Minute+time.Second)))
}

func TestRefreshSession_JSONHidesDigest(t *testing.T) {
	session := NewRefreshSession(uuid.New(), "deadbeef", time.Now())

	data, err := json.Marshal(session)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "deadbeef")
}

// Audit log tests
func TestNewAuditLog(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()

	log := NewAuditLog(AuditActionLoginSucceeded).
		WithUser(userID).
		WithCompany(companyID).
		WithEmail("jane@example.com").
		WithRequest(RequestMeta{RequestID: "req-1", IPAddress: "10.0.0.1", UserAgent: "curl"}).
		WithDetails(map[string]string{"reason": "ok"})

	assert.NotEqual(t, uuid.Nil, log.ID)
	assert.Equal(t, AuditActionLoginSucceeded, log.Action)
	require.NotNil(t, log.UserID)
	assert.Equal(t, userID, *log.UserID)
	require.NotNil(t, log.CompanyID)
	assert.Equal(t, companyID, *log.CompanyID)
	assert.Equal(t, "req-1", log.RequestID)
	assert.Equal(t, "10.0.0.1", log.IPAddress)
	assert.JSONEq(t, `{"reason":"ok"}`, string(log.Details))
	assert.Equal(t, "audit_logs", log.TableName())
}
