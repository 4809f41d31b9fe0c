package webhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/storeops/backend/internal/domain/client"
	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/domain/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type checkoutFixture struct {
	checkouts *MockCheckoutRepository
	clients   *MockClientRepository
	enricher  *MockEnricher
	processor *CheckoutProcessor
}

func newCheckoutFixture(withEnricher bool) *checkoutFixture {
	f := &checkoutFixture{
		checkouts: new(MockCheckoutRepository),
		clients:   new(MockClientRepository),
		enricher:  new(MockEnricher),
	}
	log := zap.NewNop()
	resolver := NewIdentityResolver(f.clients, nil, log)
	var enricher platform.Enricher
	if withEnricher {
		enricher = f.enricher
	}
	f.processor = NewCheckoutProcessor(f.checkouts, resolver, enricher, nil, log)
	f.processor.SetSynchronous()
	return f
}

func checkoutPayload() *platform.CheckoutPayload {
	return &platform.CheckoutPayload{
		ID:                   json.Number("31337"),
		Email:                "ana@example.com",
		AbandonedCheckoutURL: "https://tienda.example.com/checkout/tok_abc",
		TotalPrice:           "450.00",
		Currency:             "MXN",
		Customer:             &platform.CustomerPayload{ID: json.Number("123"), Email: "ana@example.com"},
		LineItems:            []platform.LineItemPayload{{Title: "Collar", Quantity: 1, Price: "450.00"}},
	}
}

func TestCheckoutProcessor_Process_AnonymousCheckoutIsSkipped(t *testing.T) {
	f := newCheckoutFixture(false)

	err := f.processor.Process(context.Background(), &platform.CheckoutPayload{
		ID: json.Number("31337"),
	})

	assert.NoError(t, err)
	f.clients.AssertNotCalled(t, "FindByShopifyID", mock.Anything, mock.Anything)
	f.checkouts.AssertNotCalled(t, "UpsertByShopifyID", mock.Anything, mock.Anything)
}

func TestCheckoutProcessor_Process_UpsertsRecordWithRecoverySchedule(t *testing.T) {
	f := newCheckoutFixture(false)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	f.processor.SetClock(func() time.Time { return now })

	shopper := client.NewClient("123", "ana@example.com", "Ana", "", nil)
	f.clients.On("FindByShopifyID", mock.Anything, "123").Return(shopper, nil)

	var captured *order.AbandonedCheckout
	f.checkouts.On("UpsertByShopifyID", mock.Anything, mock.AnythingOfType("*order.AbandonedCheckout")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*order.AbandonedCheckout)
		}).
		Return(nil)

	err := f.processor.Process(context.Background(), checkoutPayload())

	assert.NoError(t, err)
	assert.Equal(t, "31337", captured.ShopifyCheckoutID)
	assert.Equal(t, shopper.ID, captured.ClientID)
	assert.Equal(t, "ana@example.com", captured.Email)
	assert.Equal(t, "Ana", captured.CustomerName)
	assert.Equal(t, "https://tienda.example.com/checkout/tok_abc", captured.CheckoutURL)
	assert.Equal(t, "450", captured.TotalPrice.String())
	assert.Equal(t, order.RecoveryPending, captured.RecoveryStatus)
	assert.Equal(t, now.Add(time.Hour), *captured.RecoveryNextCheckAt)
}

func TestCheckoutProcessor_Process_RepeatedUpdatesUseSameExternalKey(t *testing.T) {
	f := newCheckoutFixture(false)
	shopper := client.NewClient("123", "ana@example.com", "Ana", "", nil)
	f.clients.On("FindByShopifyID", mock.Anything, "123").Return(shopper, nil)
	f.checkouts.On("UpsertByShopifyID", mock.Anything,
		mock.MatchedBy(func(c *order.AbandonedCheckout) bool {
			return c.ShopifyCheckoutID == "31337"
		})).Return(nil).Twice()

	ctx := context.Background()
	assert.NoError(t, f.processor.Process(ctx, checkoutPayload()))
	assert.NoError(t, f.processor.Process(ctx, checkoutPayload()))
	f.checkouts.AssertExpectations(t)
}

func TestCheckoutProcessor_Process_EnrichesShopper(t *testing.T) {
	f := newCheckoutFixture(true)
	shopper := client.NewClient("123", "ana@example.com", "Ana", "+5215512345678", nil)
	f.clients.On("FindByShopifyID", mock.Anything, "123").Return(shopper, nil)
	f.checkouts.On("UpsertByShopifyID", mock.Anything, mock.Anything).Return(nil)
	f.enricher.On("SyncContactSnapshot", mock.Anything, "+5215512345678", "whatsapp").Return(nil)
	f.enricher.On("RecordBrowsingEvent", mock.Anything,
		mock.MatchedBy(func(e platform.BrowsingEvent) bool {
			return e.EventType == "checkout_started" &&
				e.Handle == "ana@example.com" &&
				e.ClientID == shopper.ID &&
				e.Metadata["shopify_checkout_id"] == "31337" &&
				e.Metadata["total_price"] == "450.00" &&
				e.Metadata["currency"] == "MXN" &&
				e.Metadata["item_count"] == 1
		})).Return(nil)

	err := f.processor.Process(context.Background(), checkoutPayload())

	assert.NoError(t, err)
	f.enricher.AssertExpectations(t)
}

func TestCheckoutProcessor_Process_SkipsContactSyncWithoutPhone(t *testing.T) {
	f := newCheckoutFixture(true)
	shopper := client.NewClient("123", "ana@example.com", "Ana", "", nil)
	f.clients.On("FindByShopifyID", mock.Anything, "123").Return(shopper, nil)
	f.checkouts.On("UpsertByShopifyID", mock.Anything, mock.Anything).Return(nil)
	f.enricher.On("RecordBrowsingEvent", mock.Anything, mock.Anything).Return(nil)

	err := f.processor.Process(context.Background(), checkoutPayload())

	assert.NoError(t, err)
	f.enricher.AssertNotCalled(t, "SyncContactSnapshot", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckoutProcessor_Process_EnrichmentFailuresDoNotFailProcessing(t *testing.T) {
	f := newCheckoutFixture(true)
	shopper := client.NewClient("123", "ana@example.com", "Ana", "+521", nil)
	f.clients.On("FindByShopifyID", mock.Anything, "123").Return(shopper, nil)
	f.checkouts.On("UpsertByShopifyID", mock.Anything, mock.Anything).Return(nil)
	f.enricher.On("SyncContactSnapshot", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
	f.enricher.On("RecordBrowsingEvent", mock.Anything, mock.Anything).Return(assert.AnError)

	err := f.processor.Process(context.Background(), checkoutPayload())

	assert.NoError(t, err)
}

func TestCheckoutProcessor_Process_UpsertFailurePropagates(t *testing.T) {
	f := newCheckoutFixture(true)
	shopper := client.NewClient("123", "ana@example.com", "Ana", "", nil)
	f.clients.On("FindByShopifyID", mock.Anything, "123").Return(shopper, nil)
	f.checkouts.On("UpsertByShopifyID", mock.Anything, mock.Anything).Return(assert.AnError)

	err := f.processor.Process(context.Background(), checkoutPayload())

	assert.Error(t, err)
	f.enricher.AssertNotCalled(t, "RecordBrowsingEvent", mock.Anything, mock.Anything)
}

func TestCheckoutProcessor_Process_ResolverFailurePropagates(t *testing.T) {
	f := newCheckoutFixture(false)
	f.clients.On("FindByShopifyID", mock.Anything, "123").Return(nil, assert.AnError)

	err := f.processor.Process(context.Background(), checkoutPayload())

	assert.Error(t, err)
	f.checkouts.AssertNotCalled(t, "UpsertByShopifyID", mock.Anything, mock.Anything)
}
