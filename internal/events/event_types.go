package events

import (
	"time"

	"github.com/cargodesk/cargodesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketAssigned    EventType = "ticket_assigned"
	EventCommentAdded      EventType = "comment_added"
	EventQuoteSubmitted    EventType = "quote_submitted"
	EventTicketClosed      EventType = "ticket_closed"
	EventSLABreachImminent EventType = "sla_breach_imminent"
)

// Event represents a lifecycle event emitted by services. Carries enough
// context for the dispatcher to resolve recipients without re-reading state.
type Event struct {
	ID           string              `json:"id"`
	Type         EventType           `json:"type"`
	TicketID     string              `json:"ticket_id"`
	Status       domain.TicketStatus `json:"status"`
	DepartmentID string              `json:"department_id"`
	ActorID      *string             `json:"actor_id,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	Payload      interface{}         `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CreatorID string                `json:"creator_id"`
	Type      domain.TicketType     `json:"ticket_type"`
	Priority  domain.TicketPriority `json:"priority"`
	Title     string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
	AssignerID string `json:"assigner_id"`
	Notes      string `json:"notes,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	BodyPreview string `json:"body_preview"`
}

// QuoteSubmittedPayload payload.
type QuoteSubmittedPayload struct {
	QuoteID  string  `json:"quote_id"`
	AuthorID string  `json:"author_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	ClosedByID string              `json:"closed_by_id"`
	OldStatus  domain.TicketStatus `json:"old_status"`
}

// SLABreachImminentPayload payload.
type SLABreachImminentPayload struct {
	SLAHours     int       `json:"sla_hours"`
	Deadline     time.Time `json:"deadline"`
	AssigneeID   *string   `json:"assignee_id,omitempty"`
	CreatorID    string    `json:"creator_id"`
	ElapsedHours float64   `json:"elapsed_hours"`
}
