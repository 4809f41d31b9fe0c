package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for order persistence
type Repository interface {
	// FindByShopifyID finds an order by its external platform order id
	FindByShopifyID(ctx context.Context, shopifyOrderID string) (*Order, error)

	// UpsertByShopifyID inserts or updates the order keyed by its external
	// order id. Safe to repeat with identical input.
	UpsertByShopifyID(ctx context.Context, o *Order) error

	// UpdateStatus sets the status of a stored order
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// MarkRecoveryPending stamps the recovery fields only when no recovery
	// status is set yet (conditional update, idempotent under redelivery)
	MarkRecoveryPending(ctx context.Context, id uuid.UUID, nextCheckAt time.Time, checkoutURL string) error

	// ClaimNotification atomically flips the notification flag for the
	// given kind from false to true. Returns true if this caller won the
	// claim, false if the flag was already set. The winner must send the
	// notification and call ReleaseNotification if the send fails.
	ClaimNotification(ctx context.Context, id uuid.UUID, kind NotificationKind) (bool, error)

	// ReleaseNotification rolls a claimed flag back to false after a
	// failed dispatch so the platform's redelivery can retry
	ReleaseNotification(ctx context.Context, id uuid.UUID, kind NotificationKind) error
}

// TrackingRepository defines the interface for tracking entry persistence.
// There is no native uniqueness constraint on (order, tracking number);
// callers look up before writing.
type TrackingRepository interface {
	// FindByOrderAndNumber finds the entry for one tracking number of an order
	FindByOrderAndNumber(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*TrackingEntry, error)

	// Insert inserts a new tracking entry
	Insert(ctx context.Context, t *TrackingEntry) error

	// Update updates an existing tracking entry in place
	Update(ctx context.Context, t *TrackingEntry) error
}

// CheckoutRepository defines the interface for abandoned checkout persistence
type CheckoutRepository interface {
	// UpsertByShopifyID inserts or updates keyed by the external checkout id
	UpsertByShopifyID(ctx context.Context, c *AbandonedCheckout) error
}
