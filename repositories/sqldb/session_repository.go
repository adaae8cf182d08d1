package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/repositories"
	"go.uber.org/zap"
)

// SessionRepository implements the repositories.SessionRepository interface
type SessionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSessionRepository creates a new refresh session repository
func NewSessionRepository(db *DB, logger *zap.Logger) repositories.SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores the session, replacing any previous session of the same user
func (r *SessionRepository) Upsert(ctx context.Context, session *models.RefreshSession) error {
	query := `
		INSERT INTO refresh_sessions (user_id, token_hash, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert refresh session: %w", err)
	}

	r.logger.Debug("refresh session stored", zap.String("user_id", session.UserID.String()))
	return nil
}

// Get retrieves the session of a user
func (r *SessionRepository) Get(ctx context.Context, userID uuid.UUID) (*models.RefreshSession, error) {
	query := `
		SELECT user_id, token_hash, expires_at, created_at, updated_at
		FROM refresh_sessions
		WHERE user_id = $1
	`

	executor := GetExecutor(ctx, r.db)
	session := &models.RefreshSession{}

	err := executor.QueryRowContext(ctx, query, userID).Scan(
		&session.UserID,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("refresh session of %s: %w", userID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get refresh session: %w", err)
	}

	return session, nil
}

// Rotate swaps the stored digest from oldHash to newHash in one conditional update.
// Of several concurrent rotations presenting the same oldHash exactly one succeeds.
func (r *SessionRepository) Rotate(ctx context.Context, userID uuid.UUID, oldHash, newHash string, expiresAt time.Time) error {
	query := `
		UPDATE refresh_sessions
		SET token_hash = $1,
		    expires_at = $2,
		    updated_at = $3
		WHERE user_id = $4 AND token_hash = $5
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		newHash,
		expiresAt.UTC(),
		time.Now().UTC(),
		userID,
		oldHash,
	)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("refresh session of %s: %w", userID, repositories.ErrStaleSession)
	}

	r.logger.Debug("refresh session rotated", zap.String("user_id", userID.String()))
	return nil
}
