package webhook

import (
	"context"
	"errors"

	"github.com/storeops/backend/internal/domain/audit"
	"github.com/storeops/backend/internal/domain/client"
	"github.com/storeops/backend/internal/domain/notification"
	"github.com/storeops/backend/internal/domain/platform"
	"github.com/storeops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CustomerSync keeps stored client profiles aligned with customer events
// from the commerce platform. Only clients already known to this service
// are updated; customer events never auto-provision, since a customer
// record without an order carries no value here.
type CustomerSync struct {
	clients          client.Repository
	gateway          platform.Gateway
	dispatcher       notification.Dispatcher
	auditor          audit.Recorder
	logger           *zap.Logger
	overwriteOnEmpty bool
}

// NewCustomerSync creates a new CustomerSync. gateway and dispatcher may
// be nil; the tag re-fetch and push-tag mirroring are then skipped.
func NewCustomerSync(
	clients client.Repository,
	gateway platform.Gateway,
	dispatcher notification.Dispatcher,
	auditor audit.Recorder,
	logger *zap.Logger,
) *CustomerSync {
	return &CustomerSync{
		clients:    clients,
		gateway:    gateway,
		dispatcher: dispatcher,
		auditor:    auditor,
		logger:     logger.Named("customer_sync"),
	}
}

// SetOverwriteTagsOnEmpty makes an empty incoming tag list clear stored
// tags instead of keeping them
func (s *CustomerSync) SetOverwriteTagsOnEmpty(v bool) {
	s.overwriteOnEmpty = v
}

// ProcessUpdate applies a customer update event to the matching stored
// client. Events for customers not in the system are acknowledged and
// skipped. Empty tag fields are treated as suspect and re-fetched from
// the platform before the configured overwrite policy is applied.
func (s *CustomerSync) ProcessUpdate(ctx context.Context, evt *platform.CustomerPayload) error {
	s.record(ctx, "customer_update", evt)

	cl, err := s.find(ctx, evt)
	if err != nil {
		return err
	}
	if cl == nil {
		s.logger.Debug("customer event for client not in system, skipping",
			zap.String("shopify_customer_id", evt.ExternalID()))
		return nil
	}

	tags := platform.ParseTags(evt.Tags)
	if len(tags) == 0 {
		tags = s.refetchTags(ctx, evt.ExternalID())
	}

	cl.LinkExternalID(evt.ExternalID())
	cl.SyncProfile(evt.FullName(), evt.BestPhone())
	added := cl.ApplyTags(tags, s.overwriteOnEmpty)

	if err := s.clients.Save(ctx, cl); err != nil {
		s.logger.Error("client save failed",
			zap.String("client_id", cl.ID.String()),
			zap.Error(err))
		return err
	}

	if len(added) > 0 {
		s.logger.Info("client tags updated",
			zap.String("client_id", cl.ID.String()),
			zap.Strings("added", added))
	}

	s.mirrorTags(ctx, cl)
	return nil
}

// ProcessCreate handles a customer create event. Provisioning waits for
// the first order, so the event is only audited.
func (s *CustomerSync) ProcessCreate(ctx context.Context, evt *platform.CustomerPayload) error {
	s.record(ctx, "customer_create", evt)
	return nil
}

// ProcessDelete handles a customer delete event. Stored clients are kept
// for order history, so the event is only audited.
func (s *CustomerSync) ProcessDelete(ctx context.Context, evt *platform.CustomerPayload) error {
	s.record(ctx, "customer_delete", evt)
	return nil
}

func (s *CustomerSync) find(ctx context.Context, evt *platform.CustomerPayload) (*client.Client, error) {
	if id := evt.ExternalID(); id != "" {
		cl, err := s.clients.FindByShopifyID(ctx, id)
		if err == nil {
			return cl, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	if evt.Email != "" {
		cl, err := s.clients.FindByEmail(ctx, evt.Email)
		if err == nil {
			return cl, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// refetchTags asks the platform for the customer's current tags. Update
// events are known to sometimes arrive with the tag field blanked out,
// so an empty list is double-checked before any overwrite decision.
func (s *CustomerSync) refetchTags(ctx context.Context, customerID string) []string {
	if s.gateway == nil || customerID == "" {
		return nil
	}
	fresh, err := s.gateway.GetCustomerByID(ctx, customerID)
	if err != nil {
		s.logger.Warn("customer tag re-fetch failed",
			zap.String("shopify_customer_id", customerID),
			zap.Error(err))
		return nil
	}
	if fresh == nil {
		return nil
	}
	return platform.ParseTags(fresh.Tags)
}

// mirrorTags pushes the client's tags to their push-notification profile,
// best effort
func (s *CustomerSync) mirrorTags(ctx context.Context, cl *client.Client) {
	if s.dispatcher == nil || cl.OneSignalPlayerID == "" {
		return
	}
	if err := s.dispatcher.UpdateTags(ctx, cl.OneSignalPlayerID, cl.Tags); err != nil {
		s.logger.Warn("push tag mirror failed",
			zap.String("client_id", cl.ID.String()),
			zap.Error(err))
	}
}

func (s *CustomerSync) record(ctx context.Context, eventType string, evt *platform.CustomerPayload) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		Category:  audit.CategoryClient,
		EventType: eventType,
		Severity:  audit.SeverityInfo,
		Payload: map[string]any{
			"shopify_customer_id": evt.ExternalID(),
			"email":               evt.Email,
		},
	})
}
