package persistence

import (
	"context"

	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCheckoutRepository implements order.CheckoutRepository using GORM
type GormCheckoutRepository struct {
	db *gorm.DB
}

// NewGormCheckoutRepository creates a new GormCheckoutRepository
func NewGormCheckoutRepository(db *gorm.DB) *GormCheckoutRepository {
	return &GormCheckoutRepository{db: db}
}

// UpsertByShopifyID inserts or updates keyed by the external checkout id.
// The recovery fields keep their stored values on conflict so repeated
// checkout updates never reschedule an already-queued recovery.
func (r *GormCheckoutRepository) UpsertByShopifyID(ctx context.Context, c *order.AbandonedCheckout) error {
	model := models.AbandonedCheckoutModelFromDomain(c)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "shopify_checkout_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"client_id", "email", "customer_name", "checkout_url",
				"total_price", "currency", "updated_at",
			}),
		}).
		Create(model).Error
}

// Ensure GormCheckoutRepository implements order.CheckoutRepository
var _ order.CheckoutRepository = (*GormCheckoutRepository)(nil)
