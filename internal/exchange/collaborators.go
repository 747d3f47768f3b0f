package exchange

import (
	"context"

	"github.com/KLLNR/trading-exchange-api/internal/models"
)

// ProductCatalog is the read-only view of the product-catalog service the
// exchange core depends on for ownership and eligibility checks.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProductsByOwner(ctx context.Context, ownerID int64) ([]models.Product, error)
}

// UserDirectory is the read-only view of the user-account service.
// GetShippingAddress is only ever called from the disclosure gate in the
// context of an accepted proposal.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetShippingAddress(ctx context.Context, userID int64) (*models.ShippingAddress, error)
}
