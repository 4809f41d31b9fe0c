package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/storeops/backend/internal/domain/platform"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CRMEnricher implements platform.Enricher: contact snapshots go to an
// external CRM endpoint, browsing events to the local store.
type CRMEnricher struct {
	cfg        config.CRMConfig
	db         *gorm.DB
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCRMEnricher creates a new CRMEnricher
func NewCRMEnricher(cfg config.CRMConfig, db *gorm.DB, httpClient *http.Client, logger *zap.Logger) *CRMEnricher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &CRMEnricher{
		cfg:        cfg,
		db:         db,
		httpClient: httpClient,
		logger:     logger.Named("crm"),
	}
}

// SyncContactSnapshot refreshes the stored contact profile for a phone
// number on the given messaging channel. A missing base URL disables the
// sync rather than failing it.
func (e *CRMEnricher) SyncContactSnapshot(ctx context.Context, phone, channel string) error {
	if e.cfg.BaseURL == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"phone":   phone,
		"channel": channel,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/contacts/sync", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("snapshot sync request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("snapshot sync status %d", resp.StatusCode)
	}
	return nil
}

// RecordBrowsingEvent stores one shopper action
func (e *CRMEnricher) RecordBrowsingEvent(ctx context.Context, ev platform.BrowsingEvent) error {
	metadata := "{}"
	if len(ev.Metadata) > 0 {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("marshal browsing metadata: %w", err)
		}
		metadata = string(b)
	}

	row := models.BrowsingEventModel{
		ID:        uuid.New(),
		EventType: ev.EventType,
		Handle:    ev.Handle,
		ClientID:  ev.ClientID,
		URL:       ev.URL,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	return e.db.WithContext(ctx).Create(&row).Error
}

// Ensure CRMEnricher implements platform.Enricher
var _ platform.Enricher = (*CRMEnricher)(nil)
