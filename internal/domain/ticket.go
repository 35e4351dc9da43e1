package domain

import "time"

// TicketType differentiates rate inquiries from general requests.
type TicketType string

const (
	TicketTypeRFQ     TicketType = "RFQ"
	TicketTypeGeneral TicketType = "GEN"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for rate inquiries and general requests.
type Ticket struct {
	ID           string
	ReferenceKey string
	Type         TicketType
	CreatorID    string
	DepartmentID string
	AssigneeID   *string
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusPending},
	TicketStatusInProgress: {TicketStatusPending, TicketStatusResolved},
	TicketStatusPending:    {TicketStatusInProgress, TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusClosed},
	TicketStatusClosed:     {},
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s TicketStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether the status graph permits current -> next.
// Closing is reachable from any non-closed state; closed is terminal here,
// the super-admin override is decided by the caller.
func CanTransition(current, next TicketStatus) bool {
	if current == TicketStatusClosed {
		return false
	}
	if next == TicketStatusClosed {
		return true
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are permitted without a
// super-admin override.
func (t *Ticket) Terminal() bool {
	return t.Status == TicketStatusClosed
}

// SLABreached derives whether the ticket has exceeded its department's SLA.
// The clock runs from creation; resolved and closed tickets never breach.
func (t *Ticket) SLABreached(now time.Time, slaHours int) bool {
	if slaHours <= 0 {
		return false
	}
	if t.Status == TicketStatusResolved || t.Status == TicketStatusClosed {
		return false
	}
	return now.Sub(t.CreatedAt) > time.Duration(slaHours)*time.Hour
}
