package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/inventory-identity/models"
)

var (
	// ErrNotFound is wrapped by every lookup that matches no row
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is wrapped when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")

	// ErrStaleSession is returned by SessionRepository.Rotate when the stored
	// digest no longer matches the one the caller presented
	ErrStaleSession = errors.New("refresh session was rotated concurrently")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes fn within a transaction. Repositories called with the
	// ctx handed to fn run on that transaction. Commits if fn succeeds, rolls back otherwise.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository persists principals and their store assignment
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user with its company and store links
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user with its company and store links
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// AssignStore links a user to the store it is staffed at
	AssignStore(ctx context.Context, userID, storeID uuid.UUID) error
}

// CompanyRepository persists companies
type CompanyRepository interface {
	// Create creates a new company
	Create(ctx context.Context, company *models.Company) error

	// GetByID retrieves a company by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

// StoreRepository persists stores
type StoreRepository interface {
	// Create creates a new store
	Create(ctx context.Context, store *models.Store) error

	// GetByID retrieves a store by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// SessionRepository holds the single refresh session per principal
type SessionRepository interface {
	// Upsert inserts or replaces the session of session.UserID
	Upsert(ctx context.Context, session *models.RefreshSession) error

	// Get retrieves the session of a user
	Get(ctx context.Context, userID uuid.UUID) (*models.RefreshSession, error)

	// Rotate replaces the digest and expiry only if the stored digest still equals oldHash.
	// Returns ErrStaleSession when it does not.
	Rotate(ctx context.Context, userID uuid.UUID, oldHash, newHash string, expiresAt time.Time) error
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// ListByCompany retrieves audit logs for a company, newest first
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users     UserRepository
	Companies CompanyRepository
	Stores    StoreRepository
	Sessions  SessionRepository
	AuditLogs AuditRepository
}
