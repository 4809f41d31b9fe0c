package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storeops/backend/internal/domain/order"
)

// OrderModel is the persistence model for the Order domain entity.
type OrderModel struct {
	BaseModel
	ClientID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ShopifyOrderID       string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_shopify_id"`
	OrderNumber          string          `gorm:"type:varchar(50);index"`
	Status               order.Status    `gorm:"type:varchar(20);not null;default:'created'"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency             string          `gorm:"type:varchar(10)"`
	LineItems            string          `gorm:"type:jsonb;default:'[]'"`
	CustomerEmail        string          `gorm:"type:varchar(200)"`
	CustomerPhone        string          `gorm:"type:varchar(50)"`
	CreatedNotified      bool            `gorm:"not null;default:false"`
	FulfilledNotified    bool            `gorm:"not null;default:false"`
	RecoveryStatus       string          `gorm:"type:varchar(20)"`
	RecoveryNextCheckAt  *time.Time      `gorm:"index"`
	AbandonedCheckoutURL string          `gorm:"type:text"`
	PlatformCreatedAt    *time.Time
	PlatformUpdatedAt    *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *order.Order {
	var items []order.LineItem
	if m.LineItems != "" {
		_ = json.Unmarshal([]byte(m.LineItems), &items)
	}
	return &order.Order{
		BaseEntity:           m.BaseModel.ToDomain(),
		ClientID:             m.ClientID,
		ShopifyOrderID:       m.ShopifyOrderID,
		OrderNumber:          m.OrderNumber,
		Status:               m.Status,
		TotalAmount:          m.TotalAmount,
		Currency:             m.Currency,
		LineItems:            items,
		CustomerEmail:        m.CustomerEmail,
		CustomerPhone:        m.CustomerPhone,
		CreatedNotified:      m.CreatedNotified,
		FulfilledNotified:    m.FulfilledNotified,
		RecoveryStatus:       m.RecoveryStatus,
		RecoveryNextCheckAt:  m.RecoveryNextCheckAt,
		AbandonedCheckoutURL: m.AbandonedCheckoutURL,
		PlatformCreatedAt:    m.PlatformCreatedAt,
		PlatformUpdatedAt:    m.PlatformUpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Order entity.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.ClientID = o.ClientID
	m.ShopifyOrderID = o.ShopifyOrderID
	m.OrderNumber = o.OrderNumber
	m.Status = o.Status
	m.TotalAmount = o.TotalAmount
	m.Currency = o.Currency
	items := o.LineItems
	if items == nil {
		items = []order.LineItem{}
	}
	m.LineItems = marshalJSONColumn(items)
	m.CustomerEmail = o.CustomerEmail
	m.CustomerPhone = o.CustomerPhone
	m.CreatedNotified = o.CreatedNotified
	m.FulfilledNotified = o.FulfilledNotified
	m.RecoveryStatus = o.RecoveryStatus
	m.RecoveryNextCheckAt = o.RecoveryNextCheckAt
	m.AbandonedCheckoutURL = o.AbandonedCheckoutURL
	m.PlatformCreatedAt = o.PlatformCreatedAt
	m.PlatformUpdatedAt = o.PlatformUpdatedAt
}

// OrderModelFromDomain creates a new persistence model from a domain Order entity.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// TrackingEntryModel is the persistence model for the TrackingEntry
// domain entity. Deliberately no unique index on (order_id,
// tracking_number): historical rows predate the dedup logic and the
// reconciler enforces uniqueness via read-before-write.
type TrackingEntryModel struct {
	BaseModel
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Carrier        string    `gorm:"type:varchar(100)"`
	TrackingNumber string    `gorm:"type:varchar(100);not null;index"`
	TrackingURL    string    `gorm:"type:text"`
	CurrentStatus  string    `gorm:"type:varchar(30);not null;default:'in_transit'"`
}

// TableName returns the table name for GORM
func (TrackingEntryModel) TableName() string {
	return "order_tracking"
}

// ToDomain converts the persistence model to a domain TrackingEntry entity.
func (m *TrackingEntryModel) ToDomain() *order.TrackingEntry {
	return &order.TrackingEntry{
		BaseEntity:     m.BaseModel.ToDomain(),
		OrderID:        m.OrderID,
		Carrier:        m.Carrier,
		TrackingNumber: m.TrackingNumber,
		TrackingURL:    m.TrackingURL,
		CurrentStatus:  m.CurrentStatus,
	}
}

// FromDomain populates the persistence model from a domain TrackingEntry entity.
func (m *TrackingEntryModel) FromDomain(t *order.TrackingEntry) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.OrderID = t.OrderID
	m.Carrier = t.Carrier
	m.TrackingNumber = t.TrackingNumber
	m.TrackingURL = t.TrackingURL
	m.CurrentStatus = t.CurrentStatus
}

// TrackingEntryModelFromDomain creates a new persistence model from a
// domain TrackingEntry entity.
func TrackingEntryModelFromDomain(t *order.TrackingEntry) *TrackingEntryModel {
	m := &TrackingEntryModel{}
	m.FromDomain(t)
	return m
}

// AbandonedCheckoutModel is the persistence model for the
// AbandonedCheckout domain entity.
type AbandonedCheckoutModel struct {
	BaseModel
	ShopifyCheckoutID   string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_checkouts_shopify_id"`
	ClientID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	Email               string          `gorm:"type:varchar(200)"`
	CustomerName        string          `gorm:"type:varchar(200)"`
	CheckoutURL         string          `gorm:"type:text"`
	TotalPrice          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency            string          `gorm:"type:varchar(10)"`
	RecoveryStatus      string          `gorm:"type:varchar(20)"`
	RecoveryNextCheckAt *time.Time      `gorm:"index"`
}

// TableName returns the table name for GORM
func (AbandonedCheckoutModel) TableName() string {
	return "abandoned_checkouts"
}

// ToDomain converts the persistence model to a domain AbandonedCheckout entity.
func (m *AbandonedCheckoutModel) ToDomain() *order.AbandonedCheckout {
	return &order.AbandonedCheckout{
		BaseEntity:          m.BaseModel.ToDomain(),
		ShopifyCheckoutID:   m.ShopifyCheckoutID,
		ClientID:            m.ClientID,
		Email:               m.Email,
		CustomerName:        m.CustomerName,
		CheckoutURL:         m.CheckoutURL,
		TotalPrice:          m.TotalPrice,
		Currency:            m.Currency,
		RecoveryStatus:      m.RecoveryStatus,
		RecoveryNextCheckAt: m.RecoveryNextCheckAt,
	}
}

// FromDomain populates the persistence model from a domain AbandonedCheckout entity.
func (m *AbandonedCheckoutModel) FromDomain(c *order.AbandonedCheckout) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.ShopifyCheckoutID = c.ShopifyCheckoutID
	m.ClientID = c.ClientID
	m.Email = c.Email
	m.CustomerName = c.CustomerName
	m.CheckoutURL = c.CheckoutURL
	m.TotalPrice = c.TotalPrice
	m.Currency = c.Currency
	m.RecoveryStatus = c.RecoveryStatus
	m.RecoveryNextCheckAt = c.RecoveryNextCheckAt
}

// AbandonedCheckoutModelFromDomain creates a new persistence model from
// a domain AbandonedCheckout entity.
func AbandonedCheckoutModelFromDomain(c *order.AbandonedCheckout) *AbandonedCheckoutModel {
	m := &AbandonedCheckoutModel{}
	m.FromDomain(c)
	return m
}
