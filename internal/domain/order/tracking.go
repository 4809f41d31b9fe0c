package order

import (
	"github.com/google/uuid"
	"github.com/storeops/backend/internal/domain/shared"
)

// TrackingStatusInTransit is the initial status of a freshly fulfilled shipment
const TrackingStatusInTransit = "in_transit"

// TrackingEntry is one tracking number within an order's shipment(s).
// Multi-piece orders produce several entries for the same order. The
// store has no uniqueness constraint on (order, tracking number); the
// tracking reconciler enforces it via read-before-write.
type TrackingEntry struct {
	shared.BaseEntity
	OrderID        uuid.UUID
	Carrier        string
	TrackingNumber string
	TrackingURL    string
	CurrentStatus  string
}

// NewTrackingEntry creates a tracking entry for a just-fulfilled shipment
func NewTrackingEntry(orderID uuid.UUID, carrier, trackingNumber, trackingURL string) *TrackingEntry {
	return &TrackingEntry{
		BaseEntity:     shared.NewBaseEntity(),
		OrderID:        orderID,
		Carrier:        carrier,
		TrackingNumber: trackingNumber,
		TrackingURL:    trackingURL,
		CurrentStatus:  TrackingStatusInTransit,
	}
}

// Refresh updates carrier and URL in place on a repeat sighting of the
// same tracking number
func (t *TrackingEntry) Refresh(carrier, trackingURL string) {
	t.Carrier = carrier
	t.TrackingURL = trackingURL
	t.CurrentStatus = TrackingStatusInTransit
	t.Touch()
}
