package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/storeops/backend/internal/domain/audit"
)

// SystemLogModel is the persistence model for audit records.
type SystemLogModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	Category  string     `gorm:"type:varchar(50);not null;index"`
	EventType string     `gorm:"type:varchar(100);not null"`
	Severity  string     `gorm:"type:varchar(20);not null;default:'info'"`
	Payload   string     `gorm:"type:jsonb;default:'{}'"`
	ClientID  *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SystemLogModel) TableName() string {
	return "system_logs"
}

// ToDomain converts the persistence model to a domain audit Record.
func (m *SystemLogModel) ToDomain() audit.Record {
	var payload map[string]any
	if m.Payload != "" {
		_ = json.Unmarshal([]byte(m.Payload), &payload)
	}
	return audit.Record{
		ID:        m.ID,
		Category:  m.Category,
		EventType: m.EventType,
		Severity:  m.Severity,
		Payload:   payload,
		ClientID:  m.ClientID,
		CreatedAt: m.CreatedAt,
	}
}

// SystemLogModelFromEntry creates a persistence model from an audit Entry.
func SystemLogModelFromEntry(e audit.Entry) *SystemLogModel {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return &SystemLogModel{
		ID:        uuid.New(),
		Category:  e.Category,
		EventType: e.EventType,
		Severity:  e.Severity,
		Payload:   marshalJSONColumn(payload),
		ClientID:  e.ClientID,
		CreatedAt: time.Now(),
	}
}

// BrowsingEventModel is the persistence model for shopper browsing events.
type BrowsingEventModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	EventType string    `gorm:"type:varchar(50);not null;index"`
	Handle    string    `gorm:"type:varchar(200);index"`
	ClientID  uuid.UUID `gorm:"type:uuid;index"`
	URL       string    `gorm:"type:text"`
	Metadata  string    `gorm:"type:jsonb;default:'{}'"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (BrowsingEventModel) TableName() string {
	return "browsing_events"
}
