package webhook

import (
	"context"
	"time"

	"github.com/storeops/backend/internal/domain/audit"
	"github.com/storeops/backend/internal/domain/client"
	"github.com/storeops/backend/internal/domain/notification"
	"github.com/storeops/backend/internal/domain/order"
	"go.uber.org/zap"
)

// defaultDispatchTimeout bounds how long a single dispatcher call may
// hold up webhook processing
const defaultDispatchTimeout = 5 * time.Second

// NotificationGate enforces at-most-once delivery per notification kind
// per order. The per-kind flag is claimed with a single conditional
// update before sending, so two concurrent deliveries of the same event
// race on the claim instead of on the dispatcher: the loser sees the
// flag already set and does nothing. A failed send rolls the claim back
// so the platform's redelivery can retry.
type NotificationGate struct {
	orders     order.Repository
	dispatcher notification.Dispatcher
	auditor    audit.Recorder
	logger     *zap.Logger
	timeout    time.Duration
}

// NewNotificationGate creates a new NotificationGate
func NewNotificationGate(orders order.Repository, dispatcher notification.Dispatcher, auditor audit.Recorder, logger *zap.Logger) *NotificationGate {
	return &NotificationGate{
		orders:     orders,
		dispatcher: dispatcher,
		auditor:    auditor,
		logger:     logger.Named("notify"),
		timeout:    defaultDispatchTimeout,
	}
}

// SetDispatchTimeout overrides the per-send dispatcher timeout
func (g *NotificationGate) SetDispatchTimeout(d time.Duration) {
	if d > 0 {
		g.timeout = d
	}
}

// SendCreated sends the "order received" message at most once per order.
// Returns true only when this call dispatched the message.
func (g *NotificationGate) SendCreated(ctx context.Context, ord *order.Order, recipient *client.Client) (bool, error) {
	return g.sendOnce(ctx, ord, order.NotifyCreated, func(sendCtx context.Context) error {
		return g.dispatcher.SendOrderCreated(sendCtx, ord.ClientID, ord.OrderNumber, recipient)
	})
}

// SendShipped sends the "order shipped" message at most once per order,
// carrying every tracking number recorded so far for multi-piece orders
func (g *NotificationGate) SendShipped(ctx context.Context, ord *order.Order, carrier string, trackingNumbers []string, details notification.ShippedDetails) (bool, error) {
	return g.sendOnce(ctx, ord, order.NotifyFulfilled, func(sendCtx context.Context) error {
		return g.dispatcher.SendOrderShipped(sendCtx, ord.ClientID, ord.OrderNumber, carrier, trackingNumbers, details)
	})
}

func (g *NotificationGate) sendOnce(ctx context.Context, ord *order.Order, kind order.NotificationKind, send func(context.Context) error) (bool, error) {
	// Advisory fast path; the persisted claim below is authoritative.
	if ord.Notified(kind) {
		return false, nil
	}

	claimed, err := g.orders.ClaimNotification(ctx, ord.ID, kind)
	if err != nil {
		g.logger.Error("failed to claim notification flag",
			zap.String("order_number", ord.OrderNumber),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return false, err
	}
	if !claimed {
		g.logger.Debug("notification already sent, skipping",
			zap.String("order_number", ord.OrderNumber),
			zap.String("kind", string(kind)))
		return false, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := send(sendCtx); err != nil {
		g.logger.Error("notification dispatch failed, releasing claim",
			zap.String("order_number", ord.OrderNumber),
			zap.String("kind", string(kind)),
			zap.Error(err))
		if relErr := g.orders.ReleaseNotification(ctx, ord.ID, kind); relErr != nil {
			// The claim is stuck set with no message delivered; surface it
			// loudly for manual replay.
			g.logger.Error("failed to release notification claim",
				zap.String("order_number", ord.OrderNumber),
				zap.String("kind", string(kind)),
				zap.Error(relErr))
			g.record(ctx, ord, kind, "notification_claim_stuck", audit.SeverityError)
		}
		return false, err
	}

	ord.MarkNotified(kind)
	g.logger.Info("notification sent",
		zap.String("order_number", ord.OrderNumber),
		zap.String("kind", string(kind)))
	g.record(ctx, ord, kind, "notification_sent", audit.SeverityInfo)
	return true, nil
}

func (g *NotificationGate) record(ctx context.Context, ord *order.Order, kind order.NotificationKind, eventType, severity string) {
	if g.auditor == nil {
		return
	}
	clientID := ord.ClientID
	g.auditor.Record(ctx, audit.Entry{
		Category:  audit.CategoryNotification,
		EventType: eventType,
		Severity:  severity,
		Payload: map[string]any{
			"order_number": ord.OrderNumber,
			"kind":         string(kind),
		},
		ClientID: &clientID,
	})
}
