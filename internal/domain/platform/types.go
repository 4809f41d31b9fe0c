package platform

import (
	"encoding/json"
	"strings"
	"time"
)

// AddressPayload is the address sub-object of a platform customer
type AddressPayload struct {
	Phone string `json:"phone"`
}

// CustomerPayload is the customer sub-object embedded in platform events
type CustomerPayload struct {
	ID             json.Number     `json:"id"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Tags           string          `json:"tags"`
	DefaultAddress *AddressPayload `json:"default_address"`
}

// ExternalID returns the platform customer id as a string, empty when absent
func (c *CustomerPayload) ExternalID() string {
	if c == nil {
		return ""
	}
	return c.ID.String()
}

// FullName joins first and last name, empty when both are missing
func (c *CustomerPayload) FullName() string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if c.FirstName != "" {
		parts = append(parts, c.FirstName)
	}
	if c.LastName != "" {
		parts = append(parts, c.LastName)
	}
	return strings.Join(parts, " ")
}

// BestPhone returns the customer phone, falling back to the default address
func (c *CustomerPayload) BestPhone() string {
	if c == nil {
		return ""
	}
	if c.Phone != "" {
		return c.Phone
	}
	if c.DefaultAddress != nil {
		return c.DefaultAddress.Phone
	}
	return ""
}

// ParseTags splits a platform comma-separated tag string, trimming
// whitespace and dropping empty entries
func ParseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// LineItemPayload is one line item of a platform order or checkout
type LineItemPayload struct {
	ProductID json.Number `json:"product_id"`
	VariantID json.Number `json:"variant_id"`
	Title     string      `json:"title"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	Price     string      `json:"price"`
}

// DisplayTitle returns the item title, falling back to the name field
func (l *LineItemPayload) DisplayTitle() string {
	if l.Title != "" {
		return l.Title
	}
	return l.Name
}

// FulfillmentPayload is a shipment record, delivered either as a
// dedicated fulfillment event or nested inside an order event. Older
// payload shapes use the singular tracking fields, newer ones the plural.
type FulfillmentPayload struct {
	ID              json.Number `json:"id"`
	OrderID         json.Number `json:"order_id"`
	TrackingCompany string      `json:"tracking_company"`
	TrackingNumber  string      `json:"tracking_number"`
	TrackingNumbers []string    `json:"tracking_numbers"`
	TrackingURL     string      `json:"tracking_url"`
	TrackingURLs    []string    `json:"tracking_urls"`
	Service         string      `json:"service"`
}

// Numbers returns the tracking numbers, supporting both the plural and
// the singular field shape
func (f *FulfillmentPayload) Numbers() []string {
	if len(f.TrackingNumbers) > 0 {
		return f.TrackingNumbers
	}
	if f.TrackingNumber != "" {
		return []string{f.TrackingNumber}
	}
	return nil
}

// URLs returns the tracking URLs, supporting both field shapes
func (f *FulfillmentPayload) URLs() []string {
	if len(f.TrackingURLs) > 0 {
		return f.TrackingURLs
	}
	if f.TrackingURL != "" {
		return []string{f.TrackingURL}
	}
	return nil
}

// URLFor pairs a tracking URL with the number at index i. When the URL
// list is shorter than the number list the first URL is reused.
func (f *FulfillmentPayload) URLFor(i int) string {
	urls := f.URLs()
	if len(urls) == 0 {
		return ""
	}
	if i < len(urls) {
		return urls[i]
	}
	return urls[0]
}

// HasTracking reports whether any tracking number is present
func (f *FulfillmentPayload) HasTracking() bool {
	return len(f.Numbers()) > 0
}

// OrderPayload is the body of a platform order event
type OrderPayload struct {
	ID              json.Number          `json:"id"`
	Name            string               `json:"name"`
	Email           string               `json:"email"`
	FinancialStatus string               `json:"financial_status"`
	CancelledAt     *time.Time           `json:"cancelled_at"`
	TotalPrice      string               `json:"total_price"`
	Currency        string               `json:"currency"`
	CreatedAt       *time.Time           `json:"created_at"`
	UpdatedAt       *time.Time           `json:"updated_at"`
	Token           string               `json:"token"`
	CheckoutID      json.Number          `json:"checkout_id"`
	Customer        *CustomerPayload     `json:"customer"`
	LineItems       []LineItemPayload    `json:"line_items"`
	Fulfillments    []FulfillmentPayload `json:"fulfillments"`
}

// ExternalID returns the platform order id as a string
func (o *OrderPayload) ExternalID() string {
	return o.ID.String()
}

// BestEmail returns the order email, falling back to the customer sub-object
func (o *OrderPayload) BestEmail() string {
	if o.Email != "" {
		return o.Email
	}
	return o.customerEmail()
}

func (o *OrderPayload) customerEmail() string {
	if o.Customer == nil {
		return ""
	}
	return o.Customer.Email
}

// Cancelled reports whether the order carries a cancellation timestamp
func (o *OrderPayload) Cancelled() bool {
	return o.CancelledAt != nil
}

// CheckoutPayload is the body of a platform checkout event
type CheckoutPayload struct {
	ID                   json.Number       `json:"id"`
	Email                string            `json:"email"`
	AbandonedCheckoutURL string            `json:"abandoned_checkout_url"`
	TotalPrice           string            `json:"total_price"`
	Currency             string            `json:"currency"`
	Customer             *CustomerPayload  `json:"customer"`
	LineItems            []LineItemPayload `json:"line_items"`
}

// ExternalID returns the platform checkout id as a string
func (c *CheckoutPayload) ExternalID() string {
	return c.ID.String()
}

// Identifiable reports whether the checkout can be tied to a customer
func (c *CheckoutPayload) Identifiable() bool {
	return c.Email != "" || (c.Customer != nil && c.Customer.ID.String() != "")
}
