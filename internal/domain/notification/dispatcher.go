package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/storeops/backend/internal/domain/client"
)

// ShippedDetails carries optional enrichment for the "order shipped"
// message. Recipient may be nil when the caller only has the client id.
type ShippedDetails struct {
	Recipient         *client.Client
	EstimatedDelivery string
	ServiceType       string
}

// Dispatcher sends customer-facing messages (push/SMS/email) and reports
// whether the send was confirmed. Implementations live in infrastructure;
// the webhook engine only ever talks to this interface so it can be
// tested with fakes.
type Dispatcher interface {
	// SendOrderCreated sends the "order received" message
	SendOrderCreated(ctx context.Context, clientID uuid.UUID, orderNumber string, recipient *client.Client) error

	// SendOrderShipped sends the "order shipped" message with one or more
	// tracking numbers for multi-piece shipments
	SendOrderShipped(ctx context.Context, clientID uuid.UUID, orderNumber, carrier string, trackingNumbers []string, details ShippedDetails) error

	// UpdateTags syncs the client's tag set to the push provider profile
	UpdateTags(ctx context.Context, playerID string, tags []string) error
}
