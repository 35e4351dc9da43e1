package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		current TicketStatus
		next    TicketStatus
		want    bool
	}{
		{"open to in progress", TicketStatusOpen, TicketStatusInProgress, true},
		{"open to pending", TicketStatusOpen, TicketStatusPending, true},
		{"open to resolved", TicketStatusOpen, TicketStatusResolved, false},
		{"in progress to pending", TicketStatusInProgress, TicketStatusPending, true},
		{"in progress to resolved", TicketStatusInProgress, TicketStatusResolved, true},
		{"pending back to in progress", TicketStatusPending, TicketStatusInProgress, true},
		{"pending to resolved", TicketStatusPending, TicketStatusResolved, true},
		{"resolved to in progress", TicketStatusResolved, TicketStatusInProgress, false},
		{"resolved to closed", TicketStatusResolved, TicketStatusClosed, true},
		{"open straight to closed", TicketStatusOpen, TicketStatusClosed, true},
		{"pending straight to closed", TicketStatusPending, TicketStatusClosed, true},
		{"closed to anything", TicketStatusClosed, TicketStatusOpen, false},
		{"closed to closed", TicketStatusClosed, TicketStatusClosed, false},
		{"self transition", TicketStatusOpen, TicketStatusOpen, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.current, tc.next); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.current, tc.next, got, tc.want)
			}
		})
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusPending, TicketStatusResolved, TicketStatusClosed} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = false", s)
		}
	}
	if ValidStatus("ARCHIVED") {
		t.Error("unknown status reported valid")
	}
	if ValidStatus("open") {
		t.Error("lowercase status reported valid")
	}
}

func TestTerminal(t *testing.T) {
	ticket := &Ticket{Status: TicketStatusResolved}
	if ticket.Terminal() {
		t.Error("resolved should not be terminal")
	}
	ticket.Status = TicketStatusClosed
	if !ticket.Terminal() {
		t.Error("closed should be terminal")
	}
}

func TestSLABreached(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		status   TicketStatus
		slaHours int
		elapsed  time.Duration
		want     bool
	}{
		{"within window", TicketStatusOpen, 24, 23 * time.Hour, false},
		{"exactly at window", TicketStatusOpen, 24, 24 * time.Hour, false},
		{"past window", TicketStatusOpen, 24, 24*time.Hour + time.Second, true},
		{"pending past window", TicketStatusPending, 24, 30 * time.Hour, true},
		{"in progress past window", TicketStatusInProgress, 24, 30 * time.Hour, true},
		{"resolved never breaches", TicketStatusResolved, 24, 100 * time.Hour, false},
		{"closed never breaches", TicketStatusClosed, 24, 100 * time.Hour, false},
		{"zero sla disables", TicketStatusOpen, 0, 1000 * time.Hour, false},
		{"negative sla disables", TicketStatusOpen, -5, 1000 * time.Hour, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := &Ticket{Status: tc.status, CreatedAt: created}
			now := created.Add(tc.elapsed)
			if got := ticket.SLABreached(now, tc.slaHours); got != tc.want {
				t.Fatalf("SLABreached(+%v, %d) = %v, want %v", tc.elapsed, tc.slaHours, got, tc.want)
			}
		})
	}
}
