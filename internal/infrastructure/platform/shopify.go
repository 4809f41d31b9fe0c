package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/storeops/backend/internal/domain/platform"
	"github.com/storeops/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ShopifyGateway implements platform.Gateway against the Shopify Admin
// REST API. It is the enrichment fallback for events that reference
// records this service has not seen or that arrive with fields blanked.
type ShopifyGateway struct {
	cfg        config.ShopifyConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewShopifyGateway creates a new ShopifyGateway
func NewShopifyGateway(cfg config.ShopifyConfig, httpClient *http.Client, logger *zap.Logger) *ShopifyGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &ShopifyGateway{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("shopify"),
	}
}

// GetOrderByID fetches one order. A 404 returns (nil, nil).
func (g *ShopifyGateway) GetOrderByID(ctx context.Context, orderID string) (*platform.OrderPayload, error) {
	var envelope struct {
		Order *platform.OrderPayload `json:"order"`
	}
	found, err := g.get(ctx, fmt.Sprintf("/orders/%s.json", orderID), &envelope)
	if err != nil || !found {
		return nil, err
	}
	return envelope.Order, nil
}

// GetCustomerByID fetches one customer. A 404 returns (nil, nil).
func (g *ShopifyGateway) GetCustomerByID(ctx context.Context, customerID string) (*platform.CustomerPayload, error) {
	var envelope struct {
		Customer *platform.CustomerPayload `json:"customer"`
	}
	found, err := g.get(ctx, fmt.Sprintf("/customers/%s.json", customerID), &envelope)
	if err != nil || !found {
		return nil, err
	}
	return envelope.Customer, nil
}

// get performs one Admin API GET. Returns (false, nil) on 404.
func (g *ShopifyGateway) get(ctx context.Context, path string, out any) (bool, error) {
	url := fmt.Sprintf("https://%s/admin/api/%s%s", g.cfg.ShopDomain, g.cfg.APIVersion, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", g.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("admin api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.Warn("admin api error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return false, fmt.Errorf("admin api status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode admin api response: %w", err)
	}
	return true, nil
}

// Ensure ShopifyGateway implements platform.Gateway
var _ platform.Gateway = (*ShopifyGateway)(nil)
