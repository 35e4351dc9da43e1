package domain

import "time"

// Assignment is an immutable history entry written each time a ticket is
// (re)assigned.
type Assignment struct {
	ID         string
	TicketID   string
	AssigneeID string
	AssignerID string
	Notes      string
	CreatedAt  time.Time
}
