package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storeops/backend/internal/domain/shared"
)

// NotificationKind identifies one of the per-order notification flags
type NotificationKind string

const (
	// NotifyCreated is the "order received" push, sent once when an order
	// is first observed as paid
	NotifyCreated NotificationKind = "created"
	// NotifyFulfilled is the "order shipped" push, sent once when tracking
	// numbers first appear
	NotifyFulfilled NotificationKind = "fulfilled"
)

// RecoveryPending marks an order as waiting for the payment recovery job
const RecoveryPending = "pending"

// LineItem is one purchased product within an order. Product and variant
// ids are kept as strings for cross-platform stability.
type LineItem struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order represents one purchase synced from the commerce platform.
// Orders are upserted keyed by ShopifyOrderID and never deleted.
type Order struct {
	shared.BaseEntity
	ClientID             uuid.UUID
	ShopifyOrderID       string
	OrderNumber          string
	Status               Status
	TotalAmount          decimal.Decimal
	Currency             string
	LineItems            []LineItem
	CustomerEmail        string
	CustomerPhone        string
	CreatedNotified      bool
	FulfilledNotified    bool
	RecoveryStatus       string
	RecoveryNextCheckAt  *time.Time
	AbandonedCheckoutURL string
	PlatformCreatedAt    *time.Time
	PlatformUpdatedAt    *time.Time
}

// Notified reports whether the given notification kind was already sent
func (o *Order) Notified(kind NotificationKind) bool {
	switch kind {
	case NotifyCreated:
		return o.CreatedNotified
	case NotifyFulfilled:
		return o.FulfilledNotified
	}
	return false
}

// MarkNotified records in memory that the given notification kind was
// sent; the persisted flag is owned by Repository.ClaimNotification
func (o *Order) MarkNotified(kind NotificationKind) {
	switch kind {
	case NotifyCreated:
		o.CreatedNotified = true
	case NotifyFulfilled:
		o.FulfilledNotified = true
	}
}

// AdvanceToFulfilled moves the order forward to fulfilled when tracking
// data is recorded. It never regresses a delivered order and never
// resurrects a cancelled one. Returns true if the status changed.
func (o *Order) AdvanceToFulfilled() bool {
	if o.Status.IsFulfilledOrLater() || o.Status == StatusCancelled {
		return false
	}
	o.Status = StatusFulfilled
	o.Touch()
	return true
}

// NeedsRecoveryStamp reports whether the order should be handed to the
// payment recovery job: still unpaid and not yet scheduled
func (o *Order) NeedsRecoveryStamp() bool {
	return o.Status == StatusCreated && o.RecoveryStatus == ""
}
