package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storeops/backend/internal/domain/audit"
	"github.com/storeops/backend/internal/domain/client"
	"github.com/storeops/backend/internal/domain/notification"
	"github.com/storeops/backend/internal/domain/order"
	"github.com/storeops/backend/internal/domain/platform"
	"github.com/stretchr/testify/mock"
)

// MockClientRepository is a mock implementation of client.Repository
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByShopifyID(ctx context.Context, shopifyCustomerID string) (*client.Client, error) {
	args := m.Called(ctx, shopifyCustomerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientRepository) FindByEmail(ctx context.Context, email string) (*client.Client, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientRepository) Create(ctx context.Context, c *client.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockClientRepository) Save(ctx context.Context, c *client.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByShopifyID(ctx context.Context, shopifyOrderID string) (*order.Order, error) {
	args := m.Called(ctx, shopifyOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) UpsertByShopifyID(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkRecoveryPending(ctx context.Context, id uuid.UUID, nextCheckAt time.Time, checkoutURL string) error {
	args := m.Called(ctx, id, nextCheckAt, checkoutURL)
	return args.Error(0)
}

func (m *MockOrderRepository) ClaimNotification(ctx context.Context, id uuid.UUID, kind order.NotificationKind) (bool, error) {
	args := m.Called(ctx, id, kind)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) ReleaseNotification(ctx context.Context, id uuid.UUID, kind order.NotificationKind) error {
	args := m.Called(ctx, id, kind)
	return args.Error(0)
}

// MockTrackingRepository is a mock implementation of order.TrackingRepository
type MockTrackingRepository struct {
	mock.Mock
}

func (m *MockTrackingRepository) FindByOrderAndNumber(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*order.TrackingEntry, error) {
	args := m.Called(ctx, orderID, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.TrackingEntry), args.Error(1)
}

func (m *MockTrackingRepository) Insert(ctx context.Context, t *order.TrackingEntry) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTrackingRepository) Update(ctx context.Context, t *order.TrackingEntry) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

// MockCheckoutRepository is a mock implementation of order.CheckoutRepository
type MockCheckoutRepository struct {
	mock.Mock
}

func (m *MockCheckoutRepository) UpsertByShopifyID(ctx context.Context, c *order.AbandonedCheckout) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// MockDispatcher is a mock implementation of notification.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) SendOrderCreated(ctx context.Context, clientID uuid.UUID, orderNumber string, recipient *client.Client) error {
	args := m.Called(ctx, clientID, orderNumber, recipient)
	return args.Error(0)
}

func (m *MockDispatcher) SendOrderShipped(ctx context.Context, clientID uuid.UUID, orderNumber, carrier string, trackingNumbers []string, details notification.ShippedDetails) error {
	args := m.Called(ctx, clientID, orderNumber, carrier, trackingNumbers, details)
	return args.Error(0)
}

func (m *MockDispatcher) UpdateTags(ctx context.Context, playerID string, tags []string) error {
	args := m.Called(ctx, playerID, tags)
	return args.Error(0)
}

// MockGateway is a mock implementation of platform.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GetOrderByID(ctx context.Context, orderID string) (*platform.OrderPayload, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.OrderPayload), args.Error(1)
}

func (m *MockGateway) GetCustomerByID(ctx context.Context, customerID string) (*platform.CustomerPayload, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.CustomerPayload), args.Error(1)
}

// MockEnricher is a mock implementation of platform.Enricher
type MockEnricher struct {
	mock.Mock
}

func (m *MockEnricher) SyncContactSnapshot(ctx context.Context, phone, channel string) error {
	args := m.Called(ctx, phone, channel)
	return args.Error(0)
}

func (m *MockEnricher) RecordBrowsingEvent(ctx context.Context, e platform.BrowsingEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

// recordingAuditor captures audit entries in memory for assertions
type recordingAuditor struct {
	entries []audit.Entry
}

func (a *recordingAuditor) Record(_ context.Context, e audit.Entry) {
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) Recent(_ context.Context, _ []string, _ int) ([]audit.Record, error) {
	return nil, nil
}

func (a *recordingAuditor) byCategory(category string) []audit.Entry {
	var out []audit.Entry
	for _, e := range a.entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}
