package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByShopifyID finds an order by its external platform order id
func (r *GormOrderRepository) FindByShopifyID(ctx context.Context, shopifyOrderID string) (*order.Order, error) {
	if shopifyOrderID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("shopify_order_id = ?", shopifyOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpsertByShopifyID inserts or updates the order keyed by the external
// order id. The notification flags and recovery fields are never touched
// by the upsert; they have dedicated conditional updates.
func (r *GormOrderRepository) UpsertByShopifyID(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "shopify_order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"client_id", "order_number", "status", "total_amount",
				"currency", "line_items", "customer_email", "customer_phone",
				"platform_created_at", "platform_updated_at", "updated_at",
			}),
		}).
		Create(model).Error
}

// UpdateStatus sets the status of a stored order
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkRecoveryPending stamps the recovery fields only when no recovery
// status is set yet, so redeliveries never reschedule an order that is
// already queued or resolved
func (r *GormOrderRepository) MarkRecoveryPending(ctx context.Context, id uuid.UUID, nextCheckAt time.Time, checkoutURL string) error {
	updates := map[string]any{
		"recovery_status":        order.RecoveryPending,
		"recovery_next_check_at": nextCheckAt,
		"updated_at":             time.Now(),
	}
	if checkoutURL != "" {
		updates["abandoned_checkout_url"] = checkoutURL
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND (recovery_status IS NULL OR recovery_status = '')", id).
		Updates(updates).Error
}

// ClaimNotification atomically flips the notification flag for the given
// kind from false to true. The conditional update makes concurrent
// deliveries race safely: exactly one caller sees RowsAffected == 1.
func (r *GormOrderRepository) ClaimNotification(ctx context.Context, id uuid.UUID, kind order.NotificationKind) (bool, error) {
	column, err := notificationColumn(kind)
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where(fmt.Sprintf("id = ? AND %s = ?", column), id, false).
		Updates(map[string]any{column: true, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseNotification rolls a claimed flag back to false after a failed
// dispatch so the platform's redelivery can retry the send
func (r *GormOrderRepository) ReleaseNotification(ctx context.Context, id uuid.UUID, kind order.NotificationKind) error {
	column, err := notificationColumn(kind)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{column: false, "updated_at": time.Now()}).Error
}

func notificationColumn(kind order.NotificationKind) (string, error) {
	switch kind {
	case order.NotifyCreated:
		return "created_notified", nil
	case order.NotifyFulfilled:
		return "fulfilled_notified", nil
	}
	return "", shared.NewDomainError("UNKNOWN_NOTIFICATION_KIND", "Unknown notification kind: "+string(kind))
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
