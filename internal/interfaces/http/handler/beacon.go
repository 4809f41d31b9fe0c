package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storeops/backend/internal/domain/audit"
	"github.com/storeops/backend/internal/domain/platform"
	"github.com/storeops/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const defaultRecentLimit = 50

// BeaconHandler ingests lightweight storefront pings (page views,
// checkout steps) and exposes the recent audit trail for debugging.
// Beacons carry no secrets and are only ever recorded, never acted on,
// so the endpoints are unauthenticated.
type BeaconHandler struct {
	BaseHandler
	auditor  audit.Recorder
	enricher platform.Enricher
	logger   *zap.Logger
}

// NewBeaconHandler creates a new BeaconHandler. enricher may be nil
// when no CRM is configured.
func NewBeaconHandler(auditor audit.Recorder, enricher platform.Enricher, zapLogger *zap.Logger) *BeaconHandler {
	return &BeaconHandler{
		auditor:  auditor,
		enricher: enricher,
		logger:   zapLogger.Named("beacon_handler"),
	}
}

// RegisterRoutes registers beacon routes
func (h *BeaconHandler) RegisterRoutes(rg *gin.RouterGroup) {
	beacon := rg.Group("/webhooks/beacon")
	{
		beacon.POST("", h.Record)
		beacon.GET("/recent", h.Recent)
	}
}

// Record stores one storefront beacon ping
func (h *BeaconHandler) Record(c *gin.Context) {
	var req dto.BeaconRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "invalid beacon payload: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	payload := map[string]any{
		"event_type": req.EventType,
		"handle":     req.Handle,
		"url":        req.URL,
	}
	for k, v := range req.Metadata {
		payload["meta_"+k] = v
	}

	h.auditor.Record(ctx, audit.Entry{
		Category:  audit.CategoryBeacon,
		EventType: req.EventType,
		Severity:  audit.SeverityInfo,
		Payload:   payload,
	})

	if h.enricher != nil && req.Handle != "" {
		if err := h.enricher.RecordBrowsingEvent(ctx, platform.BrowsingEvent{
			EventType: req.EventType,
			Handle:    req.Handle,
			URL:       req.URL,
			Metadata:  req.Metadata,
		}); err != nil {
			h.logger.Warn("failed to record browsing event",
				zap.String("event_type", req.EventType),
				zap.Error(err))
		}
	}

	h.Success(c, gin.H{"received": true})
}

// Recent returns the newest beacon and webhook audit records
func (h *BeaconHandler) Recent(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	categories := []string{audit.CategoryBeacon}
	if c.Query("include_webhooks") == "true" {
		categories = append(categories, audit.CategoryWebhook, audit.CategoryVerification)
	}

	records, err := h.auditor.Recent(c.Request.Context(), categories, limit)
	if err != nil {
		h.logger.Error("failed to load recent audit records", zap.Error(err))
		h.InternalError(c, "failed to load recent records")
		return
	}

	out := make([]dto.BeaconRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.BeaconRecordResponse{
			ID:        r.ID.String(),
			Category:  r.Category,
			EventType: r.EventType,
			Severity:  r.Severity,
			Payload:   r.Payload,
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		})
	}

	h.Success(c, out)
}
