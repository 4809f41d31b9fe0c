package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTrackingRepository implements order.TrackingRepository using GORM
type GormTrackingRepository struct {
	db *gorm.DB
}

// NewGormTrackingRepository creates a new GormTrackingRepository
func NewGormTrackingRepository(db *gorm.DB) *GormTrackingRepository {
	return &GormTrackingRepository{db: db}
}

// FindByOrderAndNumber finds the entry for one tracking number of an order
func (r *GormTrackingRepository) FindByOrderAndNumber(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*order.TrackingEntry, error) {
	var model models.TrackingEntryModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND tracking_number = ?", orderID, trackingNumber).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Insert inserts a new tracking entry
func (r *GormTrackingRepository) Insert(ctx context.Context, t *order.TrackingEntry) error {
	model := models.TrackingEntryModelFromDomain(t)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update updates an existing tracking entry in place
func (r *GormTrackingRepository) Update(ctx context.Context, t *order.TrackingEntry) error {
	model := models.TrackingEntryModelFromDomain(t)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormTrackingRepository implements order.TrackingRepository
var _ order.TrackingRepository = (*GormTrackingRepository)(nil)
