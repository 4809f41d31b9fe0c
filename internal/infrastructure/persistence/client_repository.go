package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/storeops/backend/internal/domain/client"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormClientRepository implements client.Repository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByShopifyID finds a client by its external platform customer id
func (r *GormClientRepository) FindByShopifyID(ctx context.Context, shopifyCustomerID string) (*client.Client, error) {
	if shopifyCustomerID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.ClientModel
	if err := r.db.WithContext(ctx).
		Where("shopify_customer_id = ?", shopifyCustomerID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a client by email, case-insensitive
func (r *GormClientRepository) FindByEmail(ctx context.Context, email string) (*client.Client, error) {
	if email == "" {
		return nil, shared.ErrNotFound
	}
	var model models.ClientModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new client
func (r *GormClientRepository) Create(ctx context.Context, c *client.Client) error {
	model := models.ClientModelFromDomain(c)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, c *client.Client) error {
	model := models.ClientModelFromDomain(c)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormClientRepository implements client.Repository
var _ client.Repository = (*GormClientRepository)(nil)
