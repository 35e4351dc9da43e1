package dto

import (
	"time"

	"github.com/cargodesk/cargodesk/internal/domain"
)

// AuditEntryResponse view of one append-only log row.
type AuditEntryResponse struct {
	ID         string             `json:"id"`
	TableName  string             `json:"table_name"`
	RecordID   string             `json:"record_id"`
	Action     domain.AuditAction `json:"action"`
	OldValues  map[string]any     `json:"old_values,omitempty"`
	NewValues  map[string]any     `json:"new_values,omitempty"`
	ActorID    *string            `json:"actor_id,omitempty"`
	OriginAddr string             `json:"origin_addr,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}
