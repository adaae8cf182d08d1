package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshSession is the single active refresh credential of a principal.
// Only a digest of the refresh token is stored.
type RefreshSession struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the RefreshSession model
func (RefreshSession) TableName() string {
	return "refresh_sessions"
}

// NewRefreshSession creates a session row for userID
func NewRefreshSession(userID uuid.UUID, tokenHash string, expiresAt time.Time) *RefreshSession {
	now := time.Now().UTC()
	return &RefreshSession{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsExpired reports whether the session had expired at now
func (s *RefreshSession) IsExpired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// Tenant is the scope a principal acts within. ShopID is set only for store staff.
type Tenant struct {
	CompanyID uuid.UUID  `json:"company_id"`
	ShopID    *uuid.UUID `json:"shop_id,omitempty"`
}

// Identity is an authenticated principal together with its resolved tenant
type Identity struct {
	User   *User  `json:"user"`
	Tenant Tenant `json:"tenant"`
}
