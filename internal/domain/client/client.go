package client

import (
	"github.com/storeops/backend/internal/domain/shared"
)

// Client represents a customer identity synced from the commerce platform.
// Clients are auto-provisioned on the first webhook referencing an unknown
// customer and are never deleted by this service.
type Client struct {
	shared.BaseEntity
	ShopifyCustomerID string // external platform id, empty when unknown
	Email             string
	Phone             string
	Name              string
	Tags              []string
	OneSignalPlayerID string
	Role              string
}

// NewClient creates a new client provisioned from platform customer data
func NewClient(shopifyCustomerID, email, name, phone string, tags []string) *Client {
	return &Client{
		BaseEntity:        shared.NewBaseEntity(),
		ShopifyCustomerID: shopifyCustomerID,
		Email:             email,
		Phone:             phone,
		Name:              name,
		Tags:              tags,
		Role:              "client",
	}
}

// SyncProfile updates name and phone from a newer platform snapshot.
// Empty incoming values never erase stored ones.
func (c *Client) SyncProfile(name, phone string) {
	if name != "" {
		c.Name = name
	}
	if phone != "" {
		c.Phone = phone
	}
	c.Touch()
}

// ApplyTags replaces the stored tags with a non-empty incoming list,
// reporting which tags are new; the platform payload carries the full
// tag set, so stored tags absent from it were removed upstream.
// When the incoming list is empty, the stored tags are kept unless
// overwriteOnEmpty is set; the upstream platform occasionally delivers
// customer payloads with the tag field blanked out, so clearing on empty
// is an explicit policy decision rather than a default.
// Returns the tags that were newly added.
func (c *Client) ApplyTags(incoming []string, overwriteOnEmpty bool) []string {
	if len(incoming) == 0 {
		if overwriteOnEmpty {
			c.Tags = []string{}
			c.Touch()
		}
		return nil
	}

	existing := make(map[string]bool, len(c.Tags))
	for _, t := range c.Tags {
		existing[t] = true
	}

	var added []string
	for _, t := range incoming {
		if !existing[t] {
			added = append(added, t)
		}
	}

	c.Tags = incoming
	c.Touch()
	return added
}

// HasExternalID reports whether the client is linked to a platform customer
func (c *Client) HasExternalID() bool {
	return c.ShopifyCustomerID != ""
}

// LinkExternalID attaches the platform customer id to a client that was
// previously matched by email only
func (c *Client) LinkExternalID(shopifyCustomerID string) {
	if shopifyCustomerID == "" || c.ShopifyCustomerID == shopifyCustomerID {
		return
	}
	c.ShopifyCustomerID = shopifyCustomerID
	c.Touch()
}
