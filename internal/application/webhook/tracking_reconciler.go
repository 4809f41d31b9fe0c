package webhook

import (
	"context"
	"errors"

	"github.com/storeops/backend/internal/domain/audit"
	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/domain/platform"
	"github.com/storeops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultCarrier is used when a fulfillment omits the tracking company
const DefaultCarrier = "Estafeta"

// TrackingSummary reports what a tracking reconciliation recorded, with
// the carrier and number list needed for the shipped notification
type TrackingSummary struct {
	Recorded    bool
	Carrier     string
	Numbers     []string
	ServiceType string
}

// TrackingReconciler merges the carrier/tracking-number pairs of
// fulfillment records into TrackingEntry rows without duplicating them.
// The store has no uniqueness constraint on (order, tracking number), so
// the reconciler looks up before writing; a race between two concurrent
// deliveries of the same fulfillment at worst updates the same logical
// row twice with identical data.
type TrackingReconciler struct {
	tracking       order.TrackingRepository
	auditor        audit.Recorder
	logger         *zap.Logger
	defaultCarrier string
}

// NewTrackingReconciler creates a new TrackingReconciler
func NewTrackingReconciler(tracking order.TrackingRepository, auditor audit.Recorder, logger *zap.Logger) *TrackingReconciler {
	return &TrackingReconciler{
		tracking:       tracking,
		auditor:        auditor,
		logger:         logger.Named("tracking"),
		defaultCarrier: DefaultCarrier,
	}
}

// SetDefaultCarrier overrides the fallback carrier name
func (r *TrackingReconciler) SetDefaultCarrier(carrier string) {
	if carrier != "" {
		r.defaultCarrier = carrier
	}
}

// Reconcile upserts one TrackingEntry per (order, tracking number) pair
// found in the fulfillment records. Row-level store failures are logged
// and audited but do not stop the remaining numbers from being recorded.
func (r *TrackingReconciler) Reconcile(ctx context.Context, ord *order.Order, fulfillments []platform.FulfillmentPayload) TrackingSummary {
	summary := TrackingSummary{Carrier: r.defaultCarrier}

	for i := range fulfillments {
		f := &fulfillments[i]
		numbers := f.Numbers()
		if len(numbers) == 0 {
			continue
		}

		carrier := f.TrackingCompany
		if carrier == "" {
			carrier = r.defaultCarrier
		}
		summary.Carrier = carrier
		if f.Service != "" {
			summary.ServiceType = f.Service
		}

		for j, number := range numbers {
			if err := r.upsert(ctx, ord, carrier, number, f.URLFor(j)); err != nil {
				r.logger.Error("failed to save tracking entry",
					zap.String("order_number", ord.OrderNumber),
					zap.String("tracking_number", number),
					zap.Error(err))
				r.recordFailure(ctx, ord, number, err)
				continue
			}
			summary.Recorded = true
			summary.Numbers = append(summary.Numbers, number)
		}
	}

	return summary
}

func (r *TrackingReconciler) upsert(ctx context.Context, ord *order.Order, carrier, number, url string) error {
	existing, err := r.tracking.FindByOrderAndNumber(ctx, ord.ID, number)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if existing != nil {
		existing.Refresh(carrier, url)
		return r.tracking.Update(ctx, existing)
	}
	return r.tracking.Insert(ctx, order.NewTrackingEntry(ord.ID, carrier, number, url))
}

func (r *TrackingReconciler) recordFailure(ctx context.Context, ord *order.Order, number string, err error) {
	if r.auditor == nil {
		return
	}
	clientID := ord.ClientID
	r.auditor.Record(ctx, audit.Entry{
		Category:  audit.CategoryWebhook,
		EventType: "tracking_upsert_error",
		Severity:  audit.SeverityError,
		Payload: map[string]any{
			"order_number":    ord.OrderNumber,
			"tracking_number": number,
			"error":           err.Error(),
		},
		ClientID: &clientID,
	})
}
