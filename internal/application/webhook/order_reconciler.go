package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storeops/backend/internal/domain/audit"
	"github.com/storeops/backend/internal/domain/client"
	"github.com/storeops/backend/internal/domain/notification"
	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/domain/platform"
	"github.com/storeops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// defaultRecoveryDelay is how far ahead unpaid orders are scheduled for
// the payment recovery job
const defaultRecoveryDelay = time.Hour

// ReconcileResult reports what an order reconciliation did
type ReconcileResult struct {
	Order         *order.Order
	IsNew         bool
	NotifyCreated bool
	CreatedSent   bool
	ShippedSent   bool
}

// OrderReconciler converts order and fulfillment events into idempotent
// Order/TrackingEntry state and decides which notifications are owed.
// Every mutation is an upsert keyed by the external order id, so
// duplicated and reordered deliveries converge on the same stored state.
type OrderReconciler struct {
	orders        order.Repository
	resolver      *IdentityResolver
	tracking      *TrackingReconciler
	gate          *NotificationGate
	gateway       platform.Gateway
	auditor       audit.Recorder
	logger        *zap.Logger
	storeBaseURL  string
	recoveryDelay time.Duration
	now           func() time.Time
}

// NewOrderReconciler creates a new OrderReconciler. gateway may be nil;
// the fulfillment fallback for unknown orders is then disabled.
func NewOrderReconciler(
	orders order.Repository,
	resolver *IdentityResolver,
	tracking *TrackingReconciler,
	gate *NotificationGate,
	gateway platform.Gateway,
	auditor audit.Recorder,
	logger *zap.Logger,
) *OrderReconciler {
	return &OrderReconciler{
		orders:        orders,
		resolver:      resolver,
		tracking:      tracking,
		gate:          gate,
		gateway:       gateway,
		auditor:       auditor,
		logger:        logger.Named("reconciler"),
		recoveryDelay: defaultRecoveryDelay,
		now:           time.Now,
	}
}

// SetRecoveryDelay overrides how far ahead the recovery check is stamped
func (r *OrderReconciler) SetRecoveryDelay(d time.Duration) {
	if d > 0 {
		r.recoveryDelay = d
	}
}

// SetStoreBaseURL configures the storefront base used to build checkout
// recovery links from an order's token
func (r *OrderReconciler) SetStoreBaseURL(url string) {
	r.storeBaseURL = url
}

// SetClock overrides the time source (tests)
func (r *OrderReconciler) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Reconcile processes one order event: resolves the client, computes the
// next status, upserts the order, stamps recovery for unpaid orders,
// merges any fulfillments riding on the event, and applies the
// notification gate. A store failure on the order upsert aborts the
// dependent steps for this event; the caller still acknowledges the
// delivery and relies on the platform's redelivery to recover.
func (r *OrderReconciler) Reconcile(ctx context.Context, evt *platform.OrderPayload) (*ReconcileResult, error) {
	r.recordRaw(ctx, "order_event", evt.ExternalID(), evt.Name, evt.FinancialStatus)

	recipient, err := r.resolver.Resolve(ctx, evt.Customer, evt.BestEmail())
	if err != nil {
		r.logger.Warn("no client for order event, skipping",
			zap.String("order_number", evt.Name),
			zap.Error(err))
		return nil, err
	}

	existing, err := r.orders.FindByShopifyID(ctx, evt.ExternalID())
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("order lookup: %w", err)
	}

	isNew := existing == nil
	currentStatus := order.StatusNone
	if existing != nil {
		currentStatus = existing.Status
	}

	nextStatus := order.NextStatus(currentStatus, order.StatusEvent{
		Cancelled:       evt.Cancelled(),
		FinancialStatus: evt.FinancialStatus,
	})

	// Notify exactly at the moment an order is first observed as paid,
	// never on repeat "paid" deliveries.
	notifyCreated := nextStatus == order.StatusPaid &&
		(isNew || currentStatus == order.StatusCreated)

	ord := r.buildOrder(existing, recipient, evt, nextStatus)
	if err := r.orders.UpsertByShopifyID(ctx, ord); err != nil {
		r.logger.Error("order upsert failed",
			zap.String("order_number", evt.Name),
			zap.Error(err))
		return nil, fmt.Errorf("order upsert: %w", err)
	}

	result := &ReconcileResult{Order: ord, IsNew: isNew, NotifyCreated: notifyCreated}

	if ord.NeedsRecoveryStamp() {
		r.stampRecovery(ctx, ord, evt)
	}

	var summary TrackingSummary
	if len(evt.Fulfillments) > 0 {
		summary = r.tracking.Reconcile(ctx, ord, evt.Fulfillments)
		if summary.Recorded && ord.AdvanceToFulfilled() {
			if err := r.orders.UpdateStatus(ctx, ord.ID, order.StatusFulfilled); err != nil {
				r.logger.Error("failed to advance order to fulfilled",
					zap.String("order_number", ord.OrderNumber),
					zap.Error(err))
			}
		}
	}

	if summary.Recorded {
		sent, err := r.gate.SendShipped(ctx, ord, summary.Carrier, summary.Numbers, notification.ShippedDetails{
			Recipient:   recipient,
			ServiceType: summary.ServiceType,
		})
		if err != nil {
			r.logger.Error("shipped notification failed",
				zap.String("order_number", ord.OrderNumber),
				zap.Error(err))
		}
		result.ShippedSent = sent
	}

	// A shipped notice must never be chased by a late "order received"
	// notice: once the event shows tracking, the created message is
	// suppressed for good.
	alreadyFulfilled := summary.Recorded || hasTrackedFulfillment(evt)
	if notifyCreated && !alreadyFulfilled {
		sent, err := r.gate.SendCreated(ctx, ord, recipient)
		if err != nil {
			r.logger.Error("created notification failed",
				zap.String("order_number", ord.OrderNumber),
				zap.Error(err))
		}
		result.CreatedSent = sent
	}

	return result, nil
}

// ReconcileFulfillment processes a dedicated fulfillment event. When the
// order is not in the store yet (events arrive unordered), the full
// order is fetched from the platform and reconciled first.
func (r *OrderReconciler) ReconcileFulfillment(ctx context.Context, evt *platform.FulfillmentPayload) error {
	r.recordRaw(ctx, "fulfillment_event", evt.OrderID.String(), "", "")

	if !evt.HasTracking() {
		return nil
	}

	ord, err := r.orders.FindByShopifyID(ctx, evt.OrderID.String())
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("order lookup: %w", err)
	}

	if ord == nil {
		ord = r.backfillOrder(ctx, evt.OrderID.String())
	}
	if ord == nil {
		r.logger.Warn("fulfillment for unknown order, acknowledging",
			zap.String("shopify_order_id", evt.OrderID.String()))
		return nil
	}

	summary := r.tracking.Reconcile(ctx, ord, []platform.FulfillmentPayload{*evt})
	if !summary.Recorded {
		return nil
	}

	if ord.AdvanceToFulfilled() {
		if err := r.orders.UpdateStatus(ctx, ord.ID, order.StatusFulfilled); err != nil {
			r.logger.Error("failed to advance order to fulfilled",
				zap.String("order_number", ord.OrderNumber),
				zap.Error(err))
		}
	}

	if _, err := r.gate.SendShipped(ctx, ord, summary.Carrier, summary.Numbers, notification.ShippedDetails{
		ServiceType: summary.ServiceType,
	}); err != nil {
		r.logger.Error("shipped notification failed",
			zap.String("order_number", ord.OrderNumber),
			zap.Error(err))
	}
	return nil
}

// backfillOrder fetches an unknown order from the platform and runs it
// through the normal reconciliation path
func (r *OrderReconciler) backfillOrder(ctx context.Context, shopifyOrderID string) *order.Order {
	if r.gateway == nil {
		return nil
	}
	payload, err := r.gateway.GetOrderByID(ctx, shopifyOrderID)
	if err != nil {
		r.logger.Error("platform order fetch failed",
			zap.String("shopify_order_id", shopifyOrderID),
			zap.Error(err))
		return nil
	}
	if payload == nil {
		return nil
	}
	res, err := r.Reconcile(ctx, payload)
	if err != nil {
		return nil
	}
	return res.Order
}

func (r *OrderReconciler) buildOrder(existing *order.Order, recipient *client.Client, evt *platform.OrderPayload, status order.Status) *order.Order {
	var ord *order.Order
	if existing != nil {
		ord = existing
		ord.Touch()
	} else {
		ord = &order.Order{BaseEntity: shared.NewBaseEntity()}
	}

	ord.ClientID = recipient.ID
	ord.ShopifyOrderID = evt.ExternalID()
	ord.OrderNumber = evt.Name
	ord.Status = status
	ord.TotalAmount = parsePrice(evt.TotalPrice)
	ord.Currency = evt.Currency
	ord.LineItems = normalizeLineItems(evt.LineItems)
	ord.CustomerEmail = evt.BestEmail()
	if evt.Customer != nil {
		ord.CustomerPhone = evt.Customer.BestPhone()
	}
	ord.PlatformCreatedAt = evt.CreatedAt
	ord.PlatformUpdatedAt = evt.UpdatedAt
	return ord
}

func (r *OrderReconciler) stampRecovery(ctx context.Context, ord *order.Order, evt *platform.OrderPayload) {
	nextCheck := r.now().Add(r.recoveryDelay)
	checkoutURL := ""
	if r.storeBaseURL != "" && evt.CheckoutID.String() != "" && evt.Token != "" {
		checkoutURL = r.storeBaseURL + "/checkout/" + evt.Token
	}
	if err := r.orders.MarkRecoveryPending(ctx, ord.ID, nextCheck, checkoutURL); err != nil {
		r.logger.Error("failed to stamp recovery schedule",
			zap.String("order_number", ord.OrderNumber),
			zap.Error(err))
	}
}

func (r *OrderReconciler) recordRaw(ctx context.Context, eventType, externalID, orderNumber, financialStatus string) {
	if r.auditor == nil {
		return
	}
	payload := map[string]any{"shopify_order_id": externalID}
	if orderNumber != "" {
		payload["order_number"] = orderNumber
	}
	if financialStatus != "" {
		payload["financial_status"] = financialStatus
	}
	r.auditor.Record(ctx, audit.Entry{
		Category:  audit.CategoryWebhook,
		EventType: eventType,
		Severity:  audit.SeverityInfo,
		Payload:   payload,
	})
}

// hasTrackedFulfillment reports whether the raw event already carries
// tracking data, even if recording it failed
func hasTrackedFulfillment(evt *platform.OrderPayload) bool {
	for i := range evt.Fulfillments {
		if evt.Fulfillments[i].HasTracking() {
			return true
		}
	}
	return false
}

// normalizeLineItems coerces platform line items into the stored shape,
// with ids as strings for cross-platform stability
func normalizeLineItems(items []platform.LineItemPayload) []order.LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]order.LineItem, 0, len(items))
	for i := range items {
		it := &items[i]
		out = append(out, order.LineItem{
			ProductID: it.ProductID.String(),
			VariantID: it.VariantID.String(),
			Title:     it.DisplayTitle(),
			Quantity:  it.Quantity,
			Price:     parsePrice(it.Price),
		})
	}
	return out
}

// parsePrice parses a platform money string, zero when absent or malformed
func parsePrice(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
