package platform

import (
	"context"

	"github.com/google/uuid"
)

// Gateway reads records back from the upstream commerce platform's Admin
// API. It is used as an enrichment fallback when a webhook references a
// record this service has not seen yet (events arrive unordered) or
// arrives with fields blanked out. A lookup miss returns (nil, nil).
type Gateway interface {
	GetOrderByID(ctx context.Context, orderID string) (*OrderPayload, error)
	GetCustomerByID(ctx context.Context, customerID string) (*CustomerPayload, error)
}

// BrowsingEvent is one observed shopper action recorded for CRM context
type BrowsingEvent struct {
	EventType string
	Handle    string // phone or email used to match the shopper
	ClientID  uuid.UUID
	URL       string
	Metadata  map[string]any
}

// Enricher performs best-effort CRM enrichment side tasks. Failures are
// logged by implementations and never propagate into webhook processing.
type Enricher interface {
	// SyncContactSnapshot refreshes the stored contact profile for a
	// phone number on the given messaging channel
	SyncContactSnapshot(ctx context.Context, phone, channel string) error

	// RecordBrowsingEvent stores one shopper action
	RecordBrowsingEvent(ctx context.Context, e BrowsingEvent) error
}
