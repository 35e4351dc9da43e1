package dto

import (
	"time"

	"github.com/cargodesk/cargodesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Type         domain.TicketType     `json:"type"`
	DepartmentID string                `json:"department_id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
	Notes      string `json:"notes"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// CreateQuoteRequest payload.
type CreateQuoteRequest struct {
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency"`
	ValidUntil *time.Time `json:"valid_until"`
	Notes      string     `json:"notes"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                `json:"id"`
	ReferenceKey string                `json:"reference_key"`
	Type         domain.TicketType     `json:"type"`
	DepartmentID string                `json:"department_id"`
	CreatorID    string                `json:"creator_id"`
	AssigneeID   *string               `json:"assignee_id"`
	Title        string                `json:"title"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	ClosedAt     *time.Time            `json:"closed_at,omitempty"`
}

// TicketDetailResponse provides the full ticket thread with derived SLA state.
type TicketDetailResponse struct {
	TicketSummary
	Description string               `json:"description"`
	SLAHours    int                  `json:"sla_hours"`
	SLABreached bool                 `json:"sla_breached"`
	Comments    []CommentResponse    `json:"comments"`
	Quotes      []QuoteResponse      `json:"quotes,omitempty"`
	Assignments []AssignmentResponse `json:"assignments"`
}

// CommentResponse thread entry.
type CommentResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// QuoteResponse rate quotation.
type QuoteResponse struct {
	ID         string     `json:"id"`
	AuthorID   string     `json:"author_id"`
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AssignmentResponse history entry.
type AssignmentResponse struct {
	ID         string    `json:"id"`
	AssigneeID string    `json:"assignee_id"`
	AssignerID string    `json:"assigner_id"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
