package client

import (
	"context"
)

// Repository defines the interface for client persistence
type Repository interface {
	// FindByShopifyID finds a client by its external platform customer id
	FindByShopifyID(ctx context.Context, shopifyCustomerID string) (*Client, error)

	// FindByEmail finds a client by email
	FindByEmail(ctx context.Context, email string) (*Client, error)

	// Create inserts a new client
	Create(ctx context.Context, c *Client) error

	// Save updates an existing client
	Save(ctx context.Context, c *Client) error
}
