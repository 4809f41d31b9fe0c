package handler

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	appwebhook "github.com/storeops/backend/internal/application/webhook"
	"github.com/storeops/backend/internal/domain/platform"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/logger"
	"github.com/storeops/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Platform webhook headers
const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderDeliveryID = "X-Shopify-Webhook-Id"
)

// defaultMaxWebhookBody caps webhook body size. Order payloads grow with
// line item count, so the cap is generous; the platform itself stops at
// 50MB.
const defaultMaxWebhookBody = 50 << 20

// webhookOutcome is the result of one event-specific processing step
type webhookOutcome struct {
	processed  bool
	skipReason string
	badRequest string
}

func processedOutcome() webhookOutcome {
	return webhookOutcome{processed: true}
}

func skippedOutcome(reason string) webhookOutcome {
	return webhookOutcome{skipReason: reason}
}

func badRequestOutcome(msg string) webhookOutcome {
	return webhookOutcome{badRequest: msg}
}

func failedOutcome() webhookOutcome {
	return webhookOutcome{}
}

// WebhookHandler receives platform webhooks, authenticates them, dedups
// deliveries, and hands the payload to the reconciliation engine.
//
// Status codes follow the platform's retry contract: 401 only for a
// failed signature check, 400 for requests we could never parse, and
// 200 for everything else including downstream processing failures,
// because redelivering a payload that failed processing cannot succeed
// any better and only produces duplicate work.
type WebhookHandler struct {
	BaseHandler
	verifier    *appwebhook.SignatureVerifier
	reconciler  *appwebhook.OrderReconciler
	checkouts   *appwebhook.CheckoutProcessor
	customers   *appwebhook.CustomerSync
	idempotency shared.IdempotencyStore
	dedupTTL    time.Duration
	maxBody     int64
	logger      *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler. idempotency may be
// nil; delivery dedup is then disabled and replays rely on upsert
// idempotency alone.
func NewWebhookHandler(
	verifier *appwebhook.SignatureVerifier,
	reconciler *appwebhook.OrderReconciler,
	checkouts *appwebhook.CheckoutProcessor,
	customers *appwebhook.CustomerSync,
	idempotency shared.IdempotencyStore,
	dedupTTL time.Duration,
	zapLogger *zap.Logger,
) *WebhookHandler {
	if dedupTTL <= 0 {
		dedupTTL = 24 * time.Hour
	}
	return &WebhookHandler{
		verifier:    verifier,
		reconciler:  reconciler,
		checkouts:   checkouts,
		customers:   customers,
		idempotency: idempotency,
		dedupTTL:    dedupTTL,
		maxBody:     defaultMaxWebhookBody,
		logger:      zapLogger.Named("webhook_handler"),
	}
}

// SetMaxBodySize overrides the webhook body size limit
func (h *WebhookHandler) SetMaxBodySize(n int64) {
	if n > 0 {
		h.maxBody = n
	}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks/shopify")
	{
		webhooks.POST("/order-create", h.HandleOrderEvent)
		webhooks.POST("/order-updated", h.HandleOrderEvent)
		webhooks.POST("/fulfillment-update", h.HandleFulfillmentEvent)
		webhooks.POST("/checkout-update", h.HandleCheckoutEvent)
		webhooks.POST("/customer-create", h.HandleCustomerCreate)
		webhooks.POST("/customer-update", h.HandleCustomerUpdate)
		webhooks.POST("/customer-delete", h.HandleCustomerDelete)
	}
}

// HandleOrderEvent processes order create/update webhooks
func (h *WebhookHandler) HandleOrderEvent(c *gin.Context) {
	h.handle(c, func(ctx context.Context, raw []byte) webhookOutcome {
		var payload platform.OrderPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return badRequestOutcome("invalid JSON payload")
		}
		if payload.ExternalID() == "" {
			return badRequestOutcome("missing order id")
		}
		if _, err := h.reconciler.Reconcile(ctx, &payload); err != nil {
			return failedOutcome()
		}
		return processedOutcome()
	})
}

// HandleFulfillmentEvent processes dedicated fulfillment webhooks
func (h *WebhookHandler) HandleFulfillmentEvent(c *gin.Context) {
	h.handle(c, func(ctx context.Context, raw []byte) webhookOutcome {
		var payload platform.FulfillmentPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return badRequestOutcome("invalid JSON payload")
		}
		if payload.OrderID.String() == "" {
			return badRequestOutcome("missing order id")
		}
		if err := h.reconciler.ReconcileFulfillment(ctx, &payload); err != nil {
			return failedOutcome()
		}
		return processedOutcome()
	})
}

// HandleCheckoutEvent processes checkout create/update webhooks
func (h *WebhookHandler) HandleCheckoutEvent(c *gin.Context) {
	h.handle(c, func(ctx context.Context, raw []byte) webhookOutcome {
		var payload platform.CheckoutPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return badRequestOutcome("invalid JSON payload")
		}
		if !payload.Identifiable() {
			return skippedOutcome("anonymous checkout")
		}
		if err := h.checkouts.Process(ctx, &payload); err != nil {
			return failedOutcome()
		}
		return processedOutcome()
	})
}

// HandleCustomerUpdate processes customer update webhooks
func (h *WebhookHandler) HandleCustomerUpdate(c *gin.Context) {
	h.handleCustomer(c, h.customers.ProcessUpdate)
}

// HandleCustomerCreate processes customer create webhooks
func (h *WebhookHandler) HandleCustomerCreate(c *gin.Context) {
	h.handleCustomer(c, h.customers.ProcessCreate)
}

// HandleCustomerDelete processes customer delete webhooks
func (h *WebhookHandler) HandleCustomerDelete(c *gin.Context) {
	h.handleCustomer(c, h.customers.ProcessDelete)
}

func (h *WebhookHandler) handleCustomer(c *gin.Context, process func(context.Context, *platform.CustomerPayload) error) {
	h.handle(c, func(ctx context.Context, raw []byte) webhookOutcome {
		var payload platform.CustomerPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return badRequestOutcome("invalid JSON payload")
		}
		if err := process(ctx, &payload); err != nil {
			return failedOutcome()
		}
		return processedOutcome()
	})
}

// handle runs the shared webhook pipeline: raw body capture, signature
// verification, delivery dedup, then the event-specific processing step
func (h *WebhookHandler) handle(c *gin.Context, process func(ctx context.Context, raw []byte) webhookOutcome) {
	log := logger.GetGinLogger(c)

	// Read one byte past the limit so an oversized body is rejected
	// outright instead of silently truncated, which would make a valid
	// signature fail the check below.
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBody+1))
	if err != nil {
		h.BadRequest(c, "failed to read request body")
		return
	}
	if int64(len(raw)) > h.maxBody {
		h.PayloadTooLarge(c, "webhook payload too large")
		return
	}

	topic := c.GetHeader(HeaderTopic)
	ctx := c.Request.Context()

	if !h.verifier.Verify(ctx, topic, raw, c.GetHeader(HeaderHmac)) {
		h.Unauthorized(c, shared.ErrInvalidSignature.Message)
		return
	}

	deliveryID := c.GetHeader(HeaderDeliveryID)
	if deliveryID != "" {
		// The access log middleware usually attached the id already;
		// only enrich here when running without it.
		if logger.GetDeliveryID(ctx) == "" {
			ctx, log = logger.WithDeliveryID(ctx, log, deliveryID)
		}

		if h.idempotency != nil {
			fresh, err := h.idempotency.MarkProcessed(ctx, deliveryID, h.dedupTTL)
			if err != nil {
				// Dedup is an optimization; the upserts behind it are
				// idempotent, so process anyway when the store is down.
				log.Warn("delivery dedup unavailable", zap.Error(err))
			} else if !fresh {
				log.Debug("duplicate delivery, acknowledging",
					zap.String("topic", topic))
				h.Success(c, dto.WebhookAck{Received: true, Duplicate: true})
				return
			}
		}
	}

	outcome := process(ctx, raw)
	switch {
	case outcome.badRequest != "":
		h.BadRequest(c, outcome.badRequest)
	case outcome.skipReason != "":
		h.Success(c, dto.WebhookAck{Received: true, Skipped: outcome.skipReason})
	case !outcome.processed:
		log.Error("webhook processing failed, acknowledging to stop retries",
			zap.String("topic", topic))
		h.Success(c, dto.WebhookAck{Received: true, Processed: false})
	default:
		h.Success(c, dto.WebhookAck{Received: true, Processed: true})
	}
}
