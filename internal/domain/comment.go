package domain

import "time"

// Comment captures a thread entry on a ticket. Comments are immutable once
// created.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}
