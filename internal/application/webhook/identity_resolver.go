package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/storeops/backend/internal/domain/audit"
	"github.com/storeops/backend/internal/domain/client"
	"github.com/storeops/backend/internal/domain/platform"
	"github.com/storeops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// fallbackClientName is used when a customer payload carries neither a
// name nor an email to derive one from
const fallbackClientName = "Cliente B2B"

// IdentityResolver finds or lazily creates a Client from the customer
// data embedded in an event. Lookup order: external platform id, then
// email, then auto-provision.
type IdentityResolver struct {
	clients client.Repository
	auditor audit.Recorder
	logger  *zap.Logger
}

// NewIdentityResolver creates a new IdentityResolver
func NewIdentityResolver(clients client.Repository, auditor audit.Recorder, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{
		clients: clients,
		auditor: auditor,
		logger:  logger.Named("identity"),
	}
}

// Resolve returns the client for the given customer payload, creating it
// when unknown. email overrides the payload's own email when set (order
// events carry the order email separately from the customer sub-object).
// A nil result with a nil error never happens: a store failure during
// creation is returned as an error and the caller must skip dependent
// processing rather than fail the whole request.
func (r *IdentityResolver) Resolve(ctx context.Context, customer *platform.CustomerPayload, email string) (*client.Client, error) {
	if email == "" && customer != nil {
		email = customer.Email
	}
	externalID := customer.ExternalID()

	if externalID != "" {
		found, err := r.clients.FindByShopifyID(ctx, externalID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("client lookup by external id: %w", err)
		}
		if found != nil {
			return found, nil
		}
	}

	if email != "" {
		found, err := r.clients.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("client lookup by email: %w", err)
		}
		if found != nil {
			return found, nil
		}
	}

	if externalID == "" && email == "" {
		return nil, shared.ErrClientUnresolvable
	}

	created := client.NewClient(
		externalID,
		email,
		synthesizeName(customer, email),
		customer.BestPhone(),
		platform.ParseTags(rawTags(customer)),
	)

	if err := r.clients.Create(ctx, created); err != nil {
		r.logger.Error("failed to auto-provision client",
			zap.String("email", email),
			zap.String("shopify_customer_id", externalID),
			zap.Error(err))
		return nil, fmt.Errorf("client auto-provision: %w", err)
	}

	r.logger.Info("auto-provisioned client",
		zap.String("email", email),
		zap.String("shopify_customer_id", externalID))
	if r.auditor != nil {
		id := created.ID
		r.auditor.Record(ctx, audit.Entry{
			Category:  audit.CategoryClient,
			EventType: "client_auto_provisioned",
			Severity:  audit.SeverityInfo,
			Payload:   map[string]any{"email": email, "shopify_customer_id": externalID},
			ClientID:  &id,
		})
	}
	return created, nil
}

func rawTags(customer *platform.CustomerPayload) string {
	if customer == nil {
		return ""
	}
	return customer.Tags
}

// synthesizeName picks a display name: full name from the payload, then
// the email's local part, then a generic placeholder
func synthesizeName(customer *platform.CustomerPayload, email string) string {
	if name := customer.FullName(); name != "" {
		return name
	}
	if local := emailLocalPart(email); local != "" {
		return local
	}
	return fallbackClientName
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return ""
}
