package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storeops/backend/internal/domain/shared"
)

// AbandonedCheckout is a checkout that was started but not (yet) paid,
// upserted keyed by the external checkout id and stamped for the
// recovery job.
type AbandonedCheckout struct {
	shared.BaseEntity
	ShopifyCheckoutID   string
	ClientID            uuid.UUID
	Email               string
	CustomerName        string
	CheckoutURL         string
	TotalPrice          decimal.Decimal
	Currency            string
	RecoveryStatus      string
	RecoveryNextCheckAt *time.Time
}

// NewAbandonedCheckout creates an abandoned checkout scheduled for a
// recovery check at nextCheckAt
func NewAbandonedCheckout(shopifyCheckoutID string, clientID uuid.UUID, nextCheckAt time.Time) *AbandonedCheckout {
	return &AbandonedCheckout{
		BaseEntity:          shared.NewBaseEntity(),
		ShopifyCheckoutID:   shopifyCheckoutID,
		ClientID:            clientID,
		RecoveryStatus:      RecoveryPending,
		RecoveryNextCheckAt: &nextCheckAt,
	}
}
