package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/inventory-identity/middleware"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/services/auth"
	"github.com/upb/inventory-identity/utils"
	"go.uber.org/zap"
)

// StaffCreator creates store staff on behalf of an authenticated actor
type StaffCreator interface {
	CreateStaff(ctx context.Context, actor *models.Identity, in auth.StaffInput) (*models.User, error)
}

// CreateStaffRequest is the body of POST /api/v1/users/staff
type CreateStaffRequest struct {
	StoreID  string `json:"storeId" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,min=5,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=32"`
	Role     string `json:"role" validate:"required,role"`
}

// MeResponse is the authenticated principal and its tenant
type MeResponse struct {
	User   *models.User  `json:"user"`
	Tenant models.Tenant `json:"tenant"`
}

// UserHandler serves /api/v1/users
type UserHandler struct {
	staff  StaffCreator
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(staff StaffCreator, logger *zap.Logger) *UserHandler {
	return &UserHandler{staff: staff, logger: logger}
}

// HandleMe handles GET /api/v1/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	if err := utils.WriteOK(w, MeResponse{User: identity.User, Tenant: identity.Tenant}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleCreateStaff handles POST /api/v1/users/staff
func (h *UserHandler) HandleCreateStaff(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req CreateStaffRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	role, _ := models.ParseRole(req.Role)

	user, err := h.staff.CreateStaff(r.Context(), identity, auth.StaffInput{
		StoreID:  uuid.MustParse(req.StoreID),
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, user); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
