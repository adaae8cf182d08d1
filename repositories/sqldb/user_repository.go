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

// selectUser loads a user together with the company it owns and the store it staffs
const selectUser = `
	SELECT u.id, u.email, u.password_hash, u.name, u.role, u.created_at, u.updated_at,
	       c.id, ss.store_id, s.company_id
	FROM users u
	LEFT JOIN companies c ON c.owner_id = u.id
	LEFT JOIN store_staff ss ON ss.user_id = u.id
	LEFT JOIN stores s ON s.id = ss.store_id
`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user. A taken email yields repositories.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(user.Role),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create user %s: %w", user.Email, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created", zap.String("id", user.ID.String()), zap.String("email", user.Email))
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.scanOne(ctx, selectUser+" WHERE u.id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.scanOne(ctx, selectUser+" WHERE u.email = $1", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s: %w", email, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// AssignStore links a user to a store. A user is staffed at one store at most.
func (r *UserRepository) AssignStore(ctx context.Context, userID, storeID uuid.UUID) error {
	query := `
		INSERT INTO store_staff (user_id, store_id, created_at)
		VALUES ($1, $2, $3)
	`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, userID, storeID, time.Now().UTC()); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s already assigned: %w", userID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to assign store: %w", err)
	}

	r.logger.Debug("user assigned to store",
		zap.String("user_id", userID.String()),
		zap.String("store_id", storeID.String()))
	return nil
}

func (r *UserRepository) scanOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var (
		user         models.User
		role         string
		companyID    uuid.NullUUID
		storeID      uuid.NullUUID
		storeCompany uuid.NullUUID
	)

	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
		&companyID,
		&storeID,
		&storeCompany,
	)
	if err != nil {
		return nil, err
	}

	user.Role = models.Role(role)
	if companyID.Valid {
		id := companyID.UUID
		user.CompanyID = &id
	}
	if storeID.Valid && storeCompany.Valid {
		user.Store = &models.StoreLink{StoreID: storeID.UUID, CompanyID: storeCompany.UUID}
	}

	return &user, nil
}
