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

// CompanyRepository implements the repositories.CompanyRepository interface
type CompanyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *DB, logger *zap.Logger) repositories.CompanyRepository {
	return &CompanyRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new company. An owner holds at most one company.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	query := `
		INSERT INTO companies (id, company_name, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		company.ID,
		company.Name,
		company.OwnerID,
		company.CreatedAt,
		company.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("owner %s already has a company: %w", company.OwnerID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create company: %w", err)
	}

	r.logger.Debug("company created", zap.String("id", company.ID.String()), zap.String("owner_id", company.OwnerID.String()))
	return nil
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	query := `
		SELECT id, company_name, owner_id, created_at, updated_at
		FROM companies
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	company := &models.Company{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.OwnerID,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("company %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return company, nil
}
