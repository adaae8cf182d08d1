package store

import (
	"context"

	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/repositories"
	"github.com/upb/inventory-identity/services"
	"github.com/upb/inventory-identity/services/auth"
	"go.uber.org/zap"
)

// Input holds the attributes of a new store
type Input struct {
	Name     string
	Location string
	Phone    string
	Email    string
	City     string
	Country  string
}

// Service creates stores within the caller's company
type Service struct {
	stores repositories.StoreRepository
	audit  auth.AuditRecorder
	logger *zap.Logger
}

// NewService creates a new store service. recorder may be nil.
func NewService(stores repositories.StoreRepository, recorder auth.AuditRecorder, logger *zap.Logger) *Service {
	return &Service{stores: stores, audit: auth.RecorderOrNop(recorder), logger: logger}
}

// Create adds a store to the company of actor. Only company-level principals may create stores.
func (s *Service) Create(ctx context.Context, actor *models.Identity, in Input) (*models.Store, error) {
	if actor.Tenant.ShopID != nil || !actor.User.OwnsCompany() {
		return nil, services.ErrInsufficientRole
	}

	store := models.NewStore(actor.Tenant.CompanyID, in.Name)
	store.Location = in.Location
	store.Phone = in.Phone
	store.Email = in.Email
	store.City = in.City
	store.Country = in.Country

	if err := s.stores.Create(ctx, store); err != nil {
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	s.logger.Info("store created",
		zap.String("store_id", store.ID.String()),
		zap.String("company_id", store.CompanyID.String()))

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionStoreCreated).
		WithUser(actor.User.ID).
		WithCompany(store.CompanyID).
		WithDetails(map[string]string{"store_id": store.ID.String(), "store_name": store.Name}))

	return store, nil
}
