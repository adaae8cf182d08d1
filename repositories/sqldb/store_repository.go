package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/repositories"
	"go.uber.org/zap"
)

// StoreRepository implements the repositories.StoreRepository interface
type StoreRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *DB, logger *zap.Logger) repositories.StoreRepository {
	return &StoreRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new store
func (r *StoreRepository) Create(ctx context.Context, store *models.Store) error {
	query := `
		INSERT INTO stores (
			id, company_id, store_name, store_location, store_phone,
			store_email, store_city, store_country, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		store.ID,
		store.CompanyID,
		store.Name,
		store.Location,
		store.Phone,
		store.Email,
		store.City,
		store.Country,
		store.CreatedAt,
		store.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	r.logger.Debug("store created",
		zap.String("id", store.ID.String()),
		zap.String("company_id", store.CompanyID.String()))
	return nil
}

// GetByID retrieves a store by ID
func (r *StoreRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	query := `
		SELECT id, company_id, store_name, store_location, store_phone,
		       store_email, store_city, store_country, created_at, updated_at
		FROM stores
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	store := &models.Store{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&store.ID,
		&store.CompanyID,
		&store.Name,
		&store.Location,
		&store.Phone,
		&store.Email,
		&store.City,
		&store.Country,
		&store.CreatedAt,
		&store.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return store, nil
}
