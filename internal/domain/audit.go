package domain

import "time"

// AuditAction captures what kind of mutation an audit entry records.
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

// AuditEntry is an append-only record of a mutating action on any entity.
type AuditEntry struct {
	ID         string
	TableName  string
	RecordID   string
	Action     AuditAction
	OldValues  map[string]any
	NewValues  map[string]any
	ActorID    *string
	OriginAddr string
	CreatedAt  time.Time
}
