package clients

import (
	"context"
	"fmt"

	"github.com/KLLNR/trading-exchange-api/internal/config"
	"github.com/KLLNR/trading-exchange-api/internal/models"
)

// UserClient reads user records from the user-account service. Shipping
// addresses are only requested by the disclosure gate once a proposal has
// been accepted; this client has no opinion on that rule.
type UserClient struct {
	*Client
}

func NewUserClient(cfg config.CollaboratorConfig) *UserClient {
	return &UserClient{Client: NewClient(cfg)}
}

func (c *UserClient) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%d", id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *UserClient) GetShippingAddress(ctx context.Context, userID int64) (*models.ShippingAddress, error) {
	var addr models.ShippingAddress
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%d/address", userID), &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}
