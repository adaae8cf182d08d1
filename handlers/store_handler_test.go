package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/services"
	"github.com/upb/inventory-identity/services/store"
	"go.uber.org/zap"
)

// MockStoreCreator is a mock implementation of StoreCreator
type MockStoreCreator struct {
	mock.Mock
}

func (m *MockStoreCreator) Create(ctx context.Context, actor *models.Identity, in store.Input) (*models.Store, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

const storeBody = `{"store_name":"Downtown","store_location":"5th Ave 12","store_phone":"+57 300 000 0000","store_email":"downtown@example.com","store_city":"Medellin","store_country":"Colombia"}`

func TestStoreHandler_HandleCreate(t *testing.T) {
	logger := zap.NewNop()

	t.Run("created", func(t *testing.T) {
		identity := ownerIdentity()
		created := models.NewStore(identity.Tenant.CompanyID, "Downtown")

		stores := new(MockStoreCreator)
		stores.On("Create", mock.Anything, identity, store.Input{
			Name:     "Downtown",
			Location: "5th Ave 12",
			Phone:    "+57 300 000 0000",
			Email:    "downtown@example.com",
			City:     "Medellin",
			Country:  "Colombia",
		}).Return(created, nil)

		h := NewStoreHandler(stores, logger)
		w := httptest.NewRecorder()
		h.HandleCreate(w, withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/stores", strings.NewReader(storeBody)), identity))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), created.ID.String())
		stores.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		stores := new(MockStoreCreator)
		h := NewStoreHandler(stores, logger)

		w := httptest.NewRecorder()
		h.HandleCreate(w, withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/stores", strings.NewReader(`{"store_name":"Downtown"}`)), ownerIdentity()))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "store_city is required")
		stores.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("non owner", func(t *testing.T) {
		stores := new(MockStoreCreator)
		stores.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, services.ErrInsufficientRole)
		h := NewStoreHandler(stores, logger)

		w := httptest.NewRecorder()
		h.HandleCreate(w, withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/stores", strings.NewReader(storeBody)), ownerIdentity()))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no identity", func(t *testing.T) {
		h := NewStoreHandler(new(MockStoreCreator), logger)

		w := httptest.NewRecorder()
		h.HandleCreate(w, httptest.NewRequest(http.MethodPost, "/api/v1/stores", strings.NewReader(storeBody)))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
