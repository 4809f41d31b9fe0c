package dto

// WebhookAck is the data payload acknowledged back to the platform.
// The HTTP status is 200 even when Processed is false: retries cannot
// fix a processing failure, so the platform is told to stop resending.
type WebhookAck struct {
	Received  bool   `json:"received"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Skipped   string `json:"skipped,omitempty"`
}

// BeaconRequest is one shopper beacon ping from the storefront
type BeaconRequest struct {
	EventType string         `json:"event_type" binding:"required"`
	Handle    string         `json:"handle"`
	URL       string         `json:"url"`
	Metadata  map[string]any `json:"metadata"`
}

// BeaconRecordResponse is one audit record in the beacon debug view
type BeaconRecordResponse struct {
	ID        string         `json:"id"`
	Category  string         `json:"category"`
	EventType string         `json:"event_type"`
	Severity  string         `json:"severity"`
	Payload   map[string]any `json:"payload"`
	CreatedAt string         `json:"created_at"`
}
