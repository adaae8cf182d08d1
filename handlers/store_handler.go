package handlers

import (
	"context"
	"net/http"

	"github.com/upb/inventory-identity/middleware"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/services/store"
	"github.com/upb/inventory-identity/utils"
	"go.uber.org/zap"
)

// StoreCreator creates stores within the actor's company
type StoreCreator interface {
	Create(ctx context.Context, actor *models.Identity, in store.Input) (*models.Store, error)
}

// CreateStoreRequest is the body of POST /api/v1/stores
type CreateStoreRequest struct {
	Name     string `json:"store_name" validate:"required,max=100"`
	Location string `json:"store_location" validate:"required,max=200"`
	Phone    string `json:"store_phone" validate:"required,max=50"`
	Email    string `json:"store_email" validate:"required,email"`
	City     string `json:"store_city" validate:"required,max=100"`
	Country  string `json:"store_country" validate:"required,max=100"`
}

// StoreHandler serves /api/v1/stores
type StoreHandler struct {
	stores StoreCreator
	logger *zap.Logger
}

// NewStoreHandler creates a new StoreHandler
func NewStoreHandler(stores StoreCreator, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{stores: stores, logger: logger}
}

// HandleCreate handles POST /api/v1/stores
func (h *StoreHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req CreateStoreRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	created, err := h.stores.Create(r.Context(), identity, store.Input{
		Name:     req.Name,
		Location: req.Location,
		Phone:    req.Phone,
		Email:    req.Email,
		City:     req.City,
		Country:  req.Country,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, created); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
