package models

import (
	"encoding/json"

	"github.com/storeops/backend/internal/domain/client"
)

// ClientModel is the persistence model for the Client domain entity.
type ClientModel struct {
	BaseModel
	ShopifyCustomerID string `gorm:"type:varchar(50);uniqueIndex:idx_clients_shopify_id,where:shopify_customer_id <> ''"`
	Email             string `gorm:"type:varchar(200);index"`
	Phone             string `gorm:"type:varchar(50)"`
	Name              string `gorm:"type:varchar(200)"`
	Tags              string `gorm:"type:jsonb;default:'[]'"`
	OneSignalPlayerID string `gorm:"type:varchar(100)"`
	Role              string `gorm:"type:varchar(20);not null;default:'client'"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client entity.
func (m *ClientModel) ToDomain() *client.Client {
	var tags []string
	if m.Tags != "" {
		_ = json.Unmarshal([]byte(m.Tags), &tags)
	}
	return &client.Client{
		BaseEntity:        m.BaseModel.ToDomain(),
		ShopifyCustomerID: m.ShopifyCustomerID,
		Email:             m.Email,
		Phone:             m.Phone,
		Name:              m.Name,
		Tags:              tags,
		OneSignalPlayerID: m.OneSignalPlayerID,
		Role:              m.Role,
	}
}

// FromDomain populates the persistence model from a domain Client entity.
func (m *ClientModel) FromDomain(c *client.Client) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.ShopifyCustomerID = c.ShopifyCustomerID
	m.Email = c.Email
	m.Phone = c.Phone
	m.Name = c.Name
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	m.Tags = marshalJSONColumn(tags)
	m.OneSignalPlayerID = c.OneSignalPlayerID
	m.Role = c.Role
}

// ClientModelFromDomain creates a new persistence model from a domain Client entity.
func ClientModelFromDomain(c *client.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}

// marshalJSONColumn serializes a value for a jsonb column, empty
// collections become the JSON empty form rather than SQL NULL
func marshalJSONColumn(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
