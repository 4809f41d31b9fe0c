package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Log categories
const (
	CategoryWebhook      = "webhook"
	CategoryVerification = "webhook_verification"
	CategoryBeacon       = "beacon"
	CategoryNotification = "notification"
	CategoryClient       = "client"
	CategorySystem       = "system"
)

// Severities
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Entry is one audit event to be recorded
type Entry struct {
	Category  string
	EventType string
	Severity  string
	Payload   map[string]any
	ClientID  *uuid.UUID
}

// Record is a stored audit entry
type Record struct {
	ID        uuid.UUID
	Category  string
	EventType string
	Severity  string
	Payload   map[string]any
	ClientID  *uuid.UUID
	CreatedAt time.Time
}

// Recorder persists audit entries. Record is fire-and-forget: it must
// never block the caller beyond queueing and a failed write must never
// abort request handling.
type Recorder interface {
	Record(ctx context.Context, e Entry)

	// Recent returns the newest records in the given categories, newest
	// first, for the beacon debugging view
	Recent(ctx context.Context, categories []string, limit int) ([]Record, error)
}
