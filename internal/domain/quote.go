package domain

import "time"

// Quote is a rate quotation submitted against an RFQ ticket.
type Quote struct {
	ID         string
	TicketID   string
	AuthorID   string
	Amount     float64
	Currency   string
	ValidUntil *time.Time
	Notes      string
	CreatedAt  time.Time
}
