package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/upb/inventory-identity/config"
	"github.com/upb/inventory-identity/services"
)

// Claims is the payload of both access and refresh tokens
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful issuance
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 tokens. Access and refresh tokens use distinct secrets.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	leeway        time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenIssuer builds an issuer from the auth configuration
func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		leeway:        cfg.Leeway,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// RefreshTTL returns the lifetime of refresh tokens
func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.refreshTTL
}

// Issue mints a new access/refresh pair for the principal
func (t *TokenIssuer) Issue(userID uuid.UUID, email string) (*TokenPair, error) {
	now := t.now()

	access, err := t.sign(userID, email, now, t.accessTTL, t.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	refresh, err := t.sign(userID, email, now, t.refreshTTL, t.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(t.refreshTTL).UTC(),
	}, nil
}

func (t *TokenIssuer) sign(userID uuid.UUID, email string, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess validates an access token and returns its claims
func (t *TokenIssuer) VerifyAccess(raw string) (*Claims, error) {
	return t.verify(raw, t.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims
func (t *TokenIssuer) VerifyRefresh(raw string) (*Claims, error) {
	return t.verify(raw, t.refreshSecret)
}

func (t *TokenIssuer) verify(raw string, secret []byte) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(t.leeway),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, services.ErrTokenExpired.Wrap(err)
		}
		return nil, services.ErrInvalidToken.Wrap(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, services.ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, services.ErrInvalidToken.Wrap(fmt.Errorf("subject: %w", err))
	}

	return claims, nil
}

// UserID returns the principal id carried in sub
func (c *Claims) UserID() uuid.UUID {
	id, _ := uuid.Parse(c.Subject)
	return id
}

// HashToken returns the digest under which a refresh token is stored
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// TokenMatches compares a presented refresh token against a stored digest in constant time
func TokenMatches(raw, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(raw)), []byte(digest)) == 1
}
