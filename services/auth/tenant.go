package auth

import (
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/services"
)

// ResolveTenant derives the scope a principal acts within.
// Company ownership wins over a store assignment; a principal with neither is rejected.
func ResolveTenant(u *models.User) (models.Tenant, error) {
	if u == nil {
		return models.Tenant{}, services.ErrNoTenant
	}

	if u.OwnsCompany() {
		return models.Tenant{CompanyID: *u.CompanyID}, nil
	}

	if u.Store != nil {
		shopID := u.Store.StoreID
		return models.Tenant{CompanyID: u.Store.CompanyID, ShopID: &shopID}, nil
	}

	return models.Tenant{}, services.ErrNoTenant
}
