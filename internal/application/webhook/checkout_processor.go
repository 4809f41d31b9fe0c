package webhook

import (
	"context"
	"time"

	"github.com/storeops/backend/internal/domain/audit"
	"github.com/storeops/backend/internal/domain/client"
	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/domain/platform"
	"go.uber.org/zap"
)

const enrichmentTimeout = 10 * time.Second

// CheckoutProcessor turns checkout events into abandoned-checkout
// records and kicks off best-effort CRM enrichment for the shopper.
type CheckoutProcessor struct {
	checkouts     order.CheckoutRepository
	resolver      *IdentityResolver
	enricher      platform.Enricher
	auditor       audit.Recorder
	logger        *zap.Logger
	recoveryDelay time.Duration
	now           func() time.Time
	async         bool
}

// NewCheckoutProcessor creates a new CheckoutProcessor. enricher may be
// nil; enrichment is then skipped.
func NewCheckoutProcessor(
	checkouts order.CheckoutRepository,
	resolver *IdentityResolver,
	enricher platform.Enricher,
	auditor audit.Recorder,
	logger *zap.Logger,
) *CheckoutProcessor {
	return &CheckoutProcessor{
		checkouts:     checkouts,
		resolver:      resolver,
		enricher:      enricher,
		auditor:       auditor,
		logger:        logger.Named("checkout"),
		recoveryDelay: defaultRecoveryDelay,
		now:           time.Now,
		async:         true,
	}
}

// SetRecoveryDelay overrides how far ahead the recovery check is stamped
func (p *CheckoutProcessor) SetRecoveryDelay(d time.Duration) {
	if d > 0 {
		p.recoveryDelay = d
	}
}

// SetClock overrides the time source (tests)
func (p *CheckoutProcessor) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// SetSynchronous makes enrichment run inline instead of in a goroutine
// (tests)
func (p *CheckoutProcessor) SetSynchronous() {
	p.async = false
}

// Process handles one checkout event. Anonymous checkouts (no email and
// no customer id) are acknowledged and skipped; identified ones are
// upserted keyed by the external checkout id so repeated updates for the
// same in-progress checkout collapse into one record.
func (p *CheckoutProcessor) Process(ctx context.Context, evt *platform.CheckoutPayload) error {
	p.record(ctx, evt)

	if !evt.Identifiable() {
		p.logger.Debug("anonymous checkout, skipping",
			zap.String("shopify_checkout_id", evt.ExternalID()))
		return nil
	}

	shopper, err := p.resolver.Resolve(ctx, evt.Customer, evt.Email)
	if err != nil {
		return err
	}

	chk := order.NewAbandonedCheckout(evt.ExternalID(), shopper.ID, p.now().Add(p.recoveryDelay))
	chk.Email = evt.Email
	if chk.Email == "" && evt.Customer != nil {
		chk.Email = evt.Customer.Email
	}
	chk.CustomerName = shopper.Name
	chk.CheckoutURL = evt.AbandonedCheckoutURL
	chk.TotalPrice = parsePrice(evt.TotalPrice)
	chk.Currency = evt.Currency

	if err := p.checkouts.UpsertByShopifyID(ctx, chk); err != nil {
		p.logger.Error("abandoned checkout upsert failed",
			zap.String("shopify_checkout_id", evt.ExternalID()),
			zap.Error(err))
		return err
	}

	p.enrich(ctx, shopper, evt)
	return nil
}

// enrich refreshes the shopper's CRM snapshot and records a browsing
// event. Runs detached from the request so a slow CRM cannot delay the
// webhook acknowledgement, and failures only log.
func (p *CheckoutProcessor) enrich(ctx context.Context, shopper *client.Client, evt *platform.CheckoutPayload) {
	if p.enricher == nil {
		return
	}

	run := func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("checkout enrichment panicked", zap.Any("panic", r))
			}
		}()

		if shopper.Phone != "" {
			if err := p.enricher.SyncContactSnapshot(ctx, shopper.Phone, "whatsapp"); err != nil {
				p.logger.Warn("contact snapshot sync failed",
					zap.String("client_id", shopper.ID.String()),
					zap.Error(err))
			}
		}

		be := platform.BrowsingEvent{
			EventType: "checkout_started",
			Handle:    shopper.Email,
			ClientID:  shopper.ID,
			URL:       evt.AbandonedCheckoutURL,
			Metadata: map[string]any{
				"shopify_checkout_id": evt.ExternalID(),
				"total_price":         evt.TotalPrice,
				"currency":            evt.Currency,
				"item_count":          len(evt.LineItems),
			},
		}
		if err := p.enricher.RecordBrowsingEvent(ctx, be); err != nil {
			p.logger.Warn("browsing event insert failed",
				zap.String("client_id", shopper.ID.String()),
				zap.Error(err))
		}
	}

	if !p.async {
		run(ctx)
		return
	}

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), enrichmentTimeout)
	go func() {
		defer cancel()
		run(detached)
	}()
}

func (p *CheckoutProcessor) record(ctx context.Context, evt *platform.CheckoutPayload) {
	if p.auditor == nil {
		return
	}
	p.auditor.Record(ctx, audit.Entry{
		Category:  audit.CategoryWebhook,
		EventType: "checkout_event",
		Severity:  audit.SeverityInfo,
		Payload: map[string]any{
			"shopify_checkout_id": evt.ExternalID(),
			"identifiable":        evt.Identifiable(),
		},
	})
}
