package clients

import (
	"context"
	"fmt"

	"github.com/KLLNR/trading-exchange-api/internal/config"
	"github.com/KLLNR/trading-exchange-api/internal/models"
)

// CatalogClient reads products from the product-catalog service.
type CatalogClient struct {
	*Client
}

func NewCatalogClient(cfg config.CollaboratorConfig) *CatalogClient {
	return &CatalogClient{Client: NewClient(cfg)}
}

func (c *CatalogClient) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := c.getJSON(ctx, fmt.Sprintf("/products/%d", id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *CatalogClient) ListProductsByOwner(ctx context.Context, ownerID int64) ([]models.Product, error) {
	var products []models.Product
	if err := c.getJSON(ctx, fmt.Sprintf("/products?ownerId=%d", ownerID), &products); err != nil {
		return nil, err
	}
	return products, nil
}
