package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cargodesk/cargodesk/internal/domain"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	d.Subscribe(EventTicketClosed, func(_ context.Context, e Event) error {
		t.Error("closed handler should not fire for created event")
		return nil
	})

	event := Event{
		ID:        "ev-1",
		Type:      EventTicketCreated,
		TicketID:  "t-1",
		Status:    domain.TicketStatusOpen,
		Timestamp: time.Now(),
	}
	if err := d.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("delivered %d times, want 2", len(got))
	}
	if got[0].TicketID != "t-1" {
		t.Fatalf("unexpected event %+v", got[0])
	}
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()

	ran := false
	d.Subscribe(EventCommentAdded, func(_ context.Context, _ Event) error {
		return errors.New("handler exploded")
	})
	d.Subscribe(EventCommentAdded, func(_ context.Context, _ Event) error {
		ran = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventCommentAdded}); err != nil {
		t.Fatalf("Publish surfaced handler error: %v", err)
	}
	if !ran {
		t.Fatal("later handler skipped after earlier failure")
	}
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), Event{Type: EventQuoteSubmitted}); err != nil {
		t.Fatalf("Publish with no subscribers: %v", err)
	}
}
