package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is the top-level tenant, owned by exactly one principal
type Company struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"company_name" db:"company_name"`
	OwnerID   uuid.UUID `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Company model
func (Company) TableName() string {
	return "companies"
}

// NewCompany creates a new Company owned by ownerID
func NewCompany(name string, ownerID uuid.UUID) *Company {
	now := time.Now().UTC()
	return &Company{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store is a shop that belongs to a company
type Store struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CompanyID uuid.UUID `json:"company_id" db:"company_id"`
	Name      string    `json:"store_name" db:"store_name"`
	Location  string    `json:"store_location" db:"store_location"`
	Phone     string    `json:"store_phone" db:"store_phone"`
	Email     string    `json:"store_email" db:"store_email"`
	City      string    `json:"store_city" db:"store_city"`
	Country   string    `json:"store_country" db:"store_country"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Store model
func (Store) TableName() string {
	return "stores"
}

// NewStore creates a new Store under companyID
func NewStore(companyID uuid.UUID, name string) *Store {
	now := time.Now().UTC()
	return &Store{
		ID:        uuid.New(),
		CompanyID: companyID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
