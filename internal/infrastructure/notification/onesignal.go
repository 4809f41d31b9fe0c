package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/storeops/backend/internal/domain/client"
	"github.com/storeops/backend/internal/domain/notification"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// OneSignalDispatcher implements notification.Dispatcher against the
// OneSignal REST API, targeting clients by external user id so sends
// work even before a device registers a player id.
type OneSignalDispatcher struct {
	cfg        config.OneSignalConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOneSignalDispatcher creates a new OneSignalDispatcher
func NewOneSignalDispatcher(cfg config.OneSignalConfig, httpClient *http.Client, logger *zap.Logger) *OneSignalDispatcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OneSignalDispatcher{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("onesignal"),
	}
}

// SendOrderCreated sends the "order received" message
func (d *OneSignalDispatcher) SendOrderCreated(ctx context.Context, clientID uuid.UUID, orderNumber string, recipient *client.Client) error {
	name := ""
	if recipient != nil {
		name = recipient.Name
	}
	contents := fmt.Sprintf("¡Gracias por tu compra! Tu pedido %s fue recibido.", orderNumber)
	if name != "" {
		contents = fmt.Sprintf("¡Gracias por tu compra, %s! Tu pedido %s fue recibido.", name, orderNumber)
	}
	return d.send(ctx, clientID, map[string]any{
		"headings": map[string]string{"en": "Pedido recibido"},
		"contents": map[string]string{"en": contents},
		"data": map[string]any{
			"type":         "order_created",
			"order_number": orderNumber,
		},
	})
}

// SendOrderShipped sends the "order shipped" message with the tracking numbers
func (d *OneSignalDispatcher) SendOrderShipped(ctx context.Context, clientID uuid.UUID, orderNumber, carrier string, trackingNumbers []string, details notification.ShippedDetails) error {
	contents := fmt.Sprintf("Tu pedido %s va en camino con %s. Guía: %s",
		orderNumber, carrier, strings.Join(trackingNumbers, ", "))
	data := map[string]any{
		"type":             "order_shipped",
		"order_number":     orderNumber,
		"carrier":          carrier,
		"tracking_numbers": trackingNumbers,
	}
	if details.ServiceType != "" {
		data["service_type"] = details.ServiceType
	}
	if details.EstimatedDelivery != "" {
		data["estimated_delivery"] = details.EstimatedDelivery
	}
	return d.send(ctx, clientID, map[string]any{
		"headings": map[string]string{"en": "Pedido enviado"},
		"contents": map[string]string{"en": contents},
		"data":     data,
	})
}

// UpdateTags syncs the client's tag set to the push provider profile
func (d *OneSignalDispatcher) UpdateTags(ctx context.Context, playerID string, tags []string) error {
	if playerID == "" {
		return shared.ErrInvalidInput
	}
	tagMap := make(map[string]string, len(tags))
	for _, t := range tags {
		tagMap[t] = "1"
	}
	body := map[string]any{
		"app_id": d.cfg.AppID,
		"tags":   tagMap,
	}
	url := fmt.Sprintf("%s/players/%s", d.cfg.BaseURL, playerID)
	return d.do(ctx, http.MethodPut, url, body)
}

// send posts one notification addressed by external user id
func (d *OneSignalDispatcher) send(ctx context.Context, clientID uuid.UUID, message map[string]any) error {
	body := map[string]any{
		"app_id":                        d.cfg.AppID,
		"include_external_user_ids":     []string{clientID.String()},
		"channel_for_external_user_ids": "push",
	}
	for k, v := range message {
		body[k] = v
	}
	url := d.cfg.BaseURL + "/notifications"
	return d.do(ctx, http.MethodPost, url, body)
}

func (d *OneSignalDispatcher) do(ctx context.Context, method, url string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+d.cfg.APIKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		d.logger.Warn("provider rejected request",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return fmt.Errorf("%w: status %d", shared.ErrDispatchFailed, resp.StatusCode)
	}
	return nil
}

// Ensure OneSignalDispatcher implements notification.Dispatcher
var _ notification.Dispatcher = (*OneSignalDispatcher)(nil)
