package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appwebhook "github.com/storeops/backend/internal/application/webhook"
	"github.com/storeops/backend/internal/domain/client"
	"github.com/storeops/backend/internal/domain/notification"
	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testWebhookSecret = "shpss_handler_secret"

// stubClientRepo is an in-memory client.Repository
type stubClientRepo struct {
	mu      sync.Mutex
	clients map[string]*client.Client // keyed by shopify customer id
}

func newStubClientRepo() *stubClientRepo {
	return &stubClientRepo{clients: make(map[string]*client.Client)}
}

func (r *stubClientRepo) FindByShopifyID(_ context.Context, id string) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cl, ok := r.clients[id]; ok {
		return cl, nil
	}
	return nil, shared.ErrNotFound
}

func (r *stubClientRepo) FindByEmail(_ context.Context, email string) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cl := range r.clients {
		if cl.Email == email {
			return cl, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubClientRepo) Create(_ context.Context, c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := c.ShopifyCustomerID
	if key == "" {
		key = c.Email
	}
	r.clients[key] = c
	return nil
}

func (r *stubClientRepo) Save(_ context.Context, _ *client.Client) error { return nil }

// stubOrderRepo is an in-memory order.Repository
type stubOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*order.Order // keyed by shopify order id
	claims    map[string]bool         // keyed by id+kind
	upsertErr error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		orders: make(map[string]*order.Order),
		claims: make(map[string]bool),
	}
}

func (r *stubOrderRepo) FindByShopifyID(_ context.Context, id string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		return o, nil
	}
	return nil, shared.ErrNotFound
}

func (r *stubOrderRepo) UpsertByShopifyID(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.orders[o.ShopifyOrderID] = o
	return nil
}

func (r *stubOrderRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ order.Status) error {
	return nil
}

func (r *stubOrderRepo) MarkRecoveryPending(_ context.Context, _ uuid.UUID, _ time.Time, _ string) error {
	return nil
}

func (r *stubOrderRepo) ClaimNotification(_ context.Context, id uuid.UUID, kind order.NotificationKind) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := id.String() + "/" + string(kind)
	if r.claims[key] {
		return false, nil
	}
	r.claims[key] = true
	return true, nil
}

func (r *stubOrderRepo) ReleaseNotification(_ context.Context, id uuid.UUID, kind order.NotificationKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, id.String()+"/"+string(kind))
	return nil
}

// stubTrackingRepo is an in-memory order.TrackingRepository
type stubTrackingRepo struct {
	mu      sync.Mutex
	entries []*order.TrackingEntry
}

func (r *stubTrackingRepo) FindByOrderAndNumber(_ context.Context, orderID uuid.UUID, number string) (*order.TrackingEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.OrderID == orderID && e.TrackingNumber == number {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubTrackingRepo) Insert(_ context.Context, t *order.TrackingEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, t)
	return nil
}

func (r *stubTrackingRepo) Update(_ context.Context, _ *order.TrackingEntry) error { return nil }

// stubCheckoutRepo is an in-memory order.CheckoutRepository
type stubCheckoutRepo struct {
	mu        sync.Mutex
	checkouts []*order.AbandonedCheckout
}

func (r *stubCheckoutRepo) UpsertByShopifyID(_ context.Context, c *order.AbandonedCheckout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkouts = append(r.checkouts, c)
	return nil
}

// stubDispatcher counts sends
type stubDispatcher struct {
	mu           sync.Mutex
	createdSends int
	shippedSends int
}

func (d *stubDispatcher) SendOrderCreated(_ context.Context, _ uuid.UUID, _ string, _ *client.Client) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createdSends++
	return nil
}

func (d *stubDispatcher) SendOrderShipped(_ context.Context, _ uuid.UUID, _, _ string, _ []string, _ notification.ShippedDetails) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shippedSends++
	return nil
}

func (d *stubDispatcher) UpdateTags(_ context.Context, _ string, _ []string) error { return nil }

type webhookTestEnv struct {
	engine      *gin.Engine
	handler     *WebhookHandler
	clients     *stubClientRepo
	orders      *stubOrderRepo
	tracking    *stubTrackingRepo
	checkouts   *stubCheckoutRepo
	dispatcher  *stubDispatcher
	idempotency shared.IdempotencyStore
}

func newWebhookTestEnv(t *testing.T) *webhookTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	env := &webhookTestEnv{
		clients:    newStubClientRepo(),
		orders:     newStubOrderRepo(),
		tracking:   &stubTrackingRepo{},
		checkouts:  &stubCheckoutRepo{},
		dispatcher: &stubDispatcher{},
	}

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	env.idempotency = store

	verifier := appwebhook.NewSignatureVerifier(testWebhookSecret, nil, log)
	resolver := appwebhook.NewIdentityResolver(env.clients, nil, log)
	trackingReconciler := appwebhook.NewTrackingReconciler(env.tracking, nil, log)
	gate := appwebhook.NewNotificationGate(env.orders, env.dispatcher, nil, log)
	reconciler := appwebhook.NewOrderReconciler(env.orders, resolver, trackingReconciler, gate, nil, nil, log)
	checkoutProcessor := appwebhook.NewCheckoutProcessor(env.checkouts, resolver, nil, nil, log)
	checkoutProcessor.SetSynchronous()
	customerSync := appwebhook.NewCustomerSync(env.clients, nil, nil, nil, log)

	h := NewWebhookHandler(verifier, reconciler, checkoutProcessor, customerSync, env.idempotency, time.Hour, log)
	env.handler = h

	env.engine = gin.New()
	h.RegisterRoutes(env.engine.Group("/api/v1"))
	return env
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (env *webhookTestEnv) post(path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func (env *webhookTestEnv) postSigned(path string, body []byte) *httptest.ResponseRecorder {
	return env.post(path, body, map[string]string{HeaderHmac: signBody(body)})
}

func ackOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	return resp.Data
}

func orderCreateBody() []byte {
	return []byte(`{
		"id": 9001,
		"name": "#1001",
		"email": "ana@example.com",
		"financial_status": "paid",
		"total_price": "1299.50",
		"currency": "MXN",
		"customer": {"id": 123, "email": "ana@example.com", "first_name": "Ana"}
	}`)
}

func TestWebhookHandler_RejectsBadSignature(t *testing.T) {
	env := newWebhookTestEnv(t)

	w := env.post("/api/v1/webhooks/shopify/order-create", orderCreateBody(),
		map[string]string{HeaderHmac: "bm90LXRoZS1yZWFsLXNpZ25hdHVyZQ=="})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.orders.orders)
}

func TestWebhookHandler_RejectsMissingSignature(t *testing.T) {
	env := newWebhookTestEnv(t)

	w := env.post("/api/v1/webhooks/shopify/order-create", orderCreateBody(), nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookHandler_BadRequestOnInvalidJSON(t *testing.T) {
	env := newWebhookTestEnv(t)
	body := []byte(`{"id": 9001,`)

	w := env.postSigned("/api/v1/webhooks/shopify/order-create", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_BadRequestOnMissingOrderID(t *testing.T) {
	env := newWebhookTestEnv(t)
	body := []byte(`{"name": "#1001", "email": "ana@example.com"}`)

	w := env.postSigned("/api/v1/webhooks/shopify/order-create", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_ProcessesOrderCreate(t *testing.T) {
	env := newWebhookTestEnv(t)

	w := env.postSigned("/api/v1/webhooks/shopify/order-create", orderCreateBody())

	assert.Equal(t, http.StatusOK, w.Code)
	ack := ackOf(t, w)
	assert.Equal(t, true, ack["processed"])

	stored, ok := env.orders.orders["9001"]
	assert.True(t, ok)
	assert.Equal(t, order.StatusPaid, stored.Status)
	assert.Equal(t, 1, env.dispatcher.createdSends)
	// The unknown customer was auto-provisioned along the way.
	_, err := env.clients.FindByShopifyID(context.Background(), "123")
	assert.NoError(t, err)
}

// largeOrderBody builds an order payload with enough line items to run
// well past 64KB, the size class where truncated reads used to corrupt
// the signature check.
func largeOrderBody(t *testing.T) []byte {
	t.Helper()
	items := make([]map[string]any, 0, 600)
	for i := 0; i < 600; i++ {
		items = append(items, map[string]any{
			"id":         100000 + i,
			"product_id": 77,
			"title":      strings.Repeat("x", 120),
			"quantity":   1,
			"price":      "10.00",
		})
	}
	body, err := json.Marshal(map[string]any{
		"id":               9002,
		"name":             "#1002",
		"email":            "ana@example.com",
		"financial_status": "paid",
		"total_price":      "6000.00",
		"currency":         "MXN",
		"customer":         map[string]any{"id": 123, "email": "ana@example.com"},
		"line_items":       items,
	})
	assert.NoError(t, err)
	assert.Greater(t, len(body), 64<<10)
	return body
}

func TestWebhookHandler_LargeSignedPayloadIsAccepted(t *testing.T) {
	env := newWebhookTestEnv(t)

	w := env.postSigned("/api/v1/webhooks/shopify/order-create", largeOrderBody(t))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, ackOf(t, w)["processed"])

	stored, ok := env.orders.orders["9002"]
	assert.True(t, ok)
	assert.Equal(t, order.StatusPaid, stored.Status)
}

func TestWebhookHandler_OversizedPayloadIsRejected(t *testing.T) {
	env := newWebhookTestEnv(t)
	env.handler.SetMaxBodySize(1 << 10)

	w := env.postSigned("/api/v1/webhooks/shopify/order-create", largeOrderBody(t))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, env.orders.orders)
}

func TestWebhookHandler_DuplicateDeliveryIsAcknowledgedOnce(t *testing.T) {
	env := newWebhookTestEnv(t)
	headers := map[string]string{
		HeaderHmac:       signBody(orderCreateBody()),
		HeaderDeliveryID: "delivery-abc",
	}

	first := env.post("/api/v1/webhooks/shopify/order-create", orderCreateBody(), headers)
	second := env.post("/api/v1/webhooks/shopify/order-create", orderCreateBody(), headers)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, true, ackOf(t, second)["duplicate"])
	assert.Equal(t, 1, env.dispatcher.createdSends)
}

func TestWebhookHandler_RedeliveryWithNewIDStaysIdempotent(t *testing.T) {
	env := newWebhookTestEnv(t)

	first := env.post("/api/v1/webhooks/shopify/order-create", orderCreateBody(),
		map[string]string{HeaderHmac: signBody(orderCreateBody()), HeaderDeliveryID: "delivery-1"})
	second := env.post("/api/v1/webhooks/shopify/order-updated", orderCreateBody(),
		map[string]string{HeaderHmac: signBody(orderCreateBody()), HeaderDeliveryID: "delivery-2"})

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	// One stored order, one notification, no matter how often it arrives.
	assert.Len(t, env.orders.orders, 1)
	assert.Equal(t, 1, env.dispatcher.createdSends)
}

func TestWebhookHandler_ProcessingFailureStillAcknowledges(t *testing.T) {
	env := newWebhookTestEnv(t)
	env.orders.upsertErr = assert.AnError

	w := env.postSigned("/api/v1/webhooks/shopify/order-create", orderCreateBody())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, ackOf(t, w)["processed"])
}

func TestWebhookHandler_FulfillmentEventRecordsTracking(t *testing.T) {
	env := newWebhookTestEnv(t)

	// Seed the order through the normal path first.
	env.postSigned("/api/v1/webhooks/shopify/order-create", orderCreateBody())

	body := []byte(`{"order_id": 9001, "tracking_company": "DHL", "tracking_number": "A1"}`)
	w := env.postSigned("/api/v1/webhooks/shopify/fulfillment-update", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, ackOf(t, w)["processed"])
	assert.Len(t, env.tracking.entries, 1)
	assert.Equal(t, "DHL", env.tracking.entries[0].Carrier)
	assert.Equal(t, 1, env.dispatcher.shippedSends)
}

func TestWebhookHandler_FulfillmentMissingOrderIDIsBadRequest(t *testing.T) {
	env := newWebhookTestEnv(t)
	body := []byte(`{"tracking_number": "A1"}`)

	w := env.postSigned("/api/v1/webhooks/shopify/fulfillment-update", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_AnonymousCheckoutIsSkipped(t *testing.T) {
	env := newWebhookTestEnv(t)
	body := []byte(`{"id": 31337, "total_price": "450.00"}`)

	w := env.postSigned("/api/v1/webhooks/shopify/checkout-update", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous checkout", ackOf(t, w)["skipped"])
	assert.Empty(t, env.checkouts.checkouts)
}

func TestWebhookHandler_IdentifiedCheckoutIsStored(t *testing.T) {
	env := newWebhookTestEnv(t)
	body := []byte(`{
		"id": 31337,
		"email": "ana@example.com",
		"abandoned_checkout_url": "https://tienda.example.com/checkout/tok",
		"total_price": "450.00",
		"currency": "MXN",
		"customer": {"id": 123, "email": "ana@example.com"}
	}`)

	w := env.postSigned("/api/v1/webhooks/shopify/checkout-update", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, ackOf(t, w)["processed"])
	assert.Len(t, env.checkouts.checkouts, 1)
	assert.Equal(t, "31337", env.checkouts.checkouts[0].ShopifyCheckoutID)
}

func TestWebhookHandler_CustomerUpdateForUnknownCustomerIsAcknowledged(t *testing.T) {
	env := newWebhookTestEnv(t)
	body := []byte(`{"id": 123, "email": "ana@example.com", "tags": "vip"}`)

	w := env.postSigned("/api/v1/webhooks/shopify/customer-update", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, ackOf(t, w)["processed"])
	// Customer events never provision clients on their own.
	assert.Empty(t, env.clients.clients)
}
