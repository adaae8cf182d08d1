package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/repositories"
	"github.com/upb/inventory-identity/services"
	"go.uber.org/zap"
)

// StaffInput describes a staff account to create at a store
type StaffInput struct {
	StoreID  uuid.UUID
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// CreateStaff creates a MANAGER or STAFF account linked to a store of the actor's company.
// A MANAGER may only create STAFF, and only at the store it is assigned to.
func (s *Service) CreateStaff(ctx context.Context, actor *models.Identity, in StaffInput) (*models.User, error) {
	if in.Role != models.RoleManager && in.Role != models.RoleStaff {
		return nil, services.ErrInvalidRole.WithDetail("role", string(in.Role))
	}

	switch actor.User.Role {
	case models.RoleOwner:
	case models.RoleManager:
		if in.Role != models.RoleStaff {
			return nil, services.ErrInsufficientRole
		}
	default:
		return nil, services.ErrInsufficientRole
	}

	store, err := s.stores.GetByID(ctx, in.StoreID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrStoreNotFound
		}
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	if store.CompanyID != actor.Tenant.CompanyID {
		return nil, services.ErrTenantMismatch
	}
	if actor.Tenant.ShopID != nil && *actor.Tenant.ShopID != store.ID {
		return nil, services.ErrTenantMismatch
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(in.Name, in.Email, digest, in.Role)

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return services.ErrDuplicateEmail.Wrap(err)
			}
			return err
		}
		return s.users.AssignStore(ctx, user.ID, store.ID)
	})
	if err != nil {
		if services.IsConflictError(err) {
			return nil, err
		}
		return nil, services.ErrTransactionFailed.Wrap(err)
	}

	user.Store = &models.StoreLink{StoreID: store.ID, CompanyID: store.CompanyID}

	s.logger.Info("staff account created",
		zap.String("user_id", user.ID.String()),
		zap.String("store_id", store.ID.String()),
		zap.String("role", string(user.Role)))
	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionStaffCreated).
		WithUser(actor.User.ID).
		WithCompany(actor.Tenant.CompanyID).
		WithDetails(map[string]string{
			"staff_id": user.ID.String(),
			"store_id": store.ID.String(),
			"role":     string(user.Role),
		}))

	return user, nil
}
