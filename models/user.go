package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the capability tier of a principal
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
)

// Roles lists every role the system recognises
var Roles = []Role{RoleOwner, RoleManager, RoleStaff}

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleStaff:
		return true
	}
	return false
}

// ParseRole parses a role name. Matching is case-insensitive; the result is canonical.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// StoreLink ties a principal to the store it is staffed at
type StoreLink struct {
	StoreID   uuid.UUID `json:"store_id"`
	CompanyID uuid.UUID `json:"company_id"`
}

// User is an account (principal). CompanyID and Store are populated on reads.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Name         string     `json:"name" db:"name"`
	Role         Role       `json:"role" db:"role"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty" db:"-"`
	Store        *StoreLink `json:"store,omitempty" db:"-"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(name, email, passwordHash string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// OwnsCompany returns true if the user owns a company
func (u *User) OwnsCompany() bool {
	return u.CompanyID != nil && *u.CompanyID != uuid.Nil
}

// HasRole returns true if the user's role is one of roles
func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
