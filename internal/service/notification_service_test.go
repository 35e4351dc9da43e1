package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cargodesk/cargodesk/internal/domain"
	"github.com/cargodesk/cargodesk/internal/events"
	"github.com/cargodesk/cargodesk/internal/notify"
)

type captureProvider struct {
	messages []notify.Message
	failErr  error
}

func (p *captureProvider) Send(_ context.Context, msg notify.Message) error {
	if p.failErr != nil {
		return p.failErr
	}
	p.messages = append(p.messages, msg)
	return nil
}

func TestNotificationRecipients(t *testing.T) {
	dept := "dept-ops"
	creator := &domain.User{ID: "user-1", Email: "creator@cargodesk.test", RoleName: domain.RoleUser, Active: true}
	assignee := staffUser("staff-1", domain.RoleDomesticOpsStaff, dept)
	manager := staffUser("mgr-1", domain.RoleDomesticOpsManager, dept)
	otherManager := staffUser("mgr-2", domain.RoleDomesticOpsManager, dept)
	otherManager.Active = false
	peer := staffUser("staff-2", domain.RoleDomesticOpsStaff, dept)

	tickets := newFakeTicketRepo()
	assigneeID := assignee.ID
	tickets.put(&domain.Ticket{
		ID:           "t-1",
		ReferenceKey: "GEN-AB12CD34",
		Type:         domain.TicketTypeGeneral,
		CreatorID:    creator.ID,
		DepartmentID: dept,
		AssigneeID:   &assigneeID,
		Title:        "Customs hold",
		Status:       domain.TicketStatusInProgress,
		Priority:     domain.TicketPriorityHigh,
		CreatedAt:    time.Now(),
	})

	provider := &captureProvider{}
	svc := NewNotificationService(tickets, newFakeUserRepo(creator, assignee, manager, otherManager, peer), provider, zap.NewNop())

	dispatcher := events.NewInMemoryDispatcher()
	svc.RegisterHandlers(dispatcher)

	actorID := manager.ID
	err := dispatcher.Publish(context.Background(), events.Event{
		ID:           "ev-1",
		Type:         events.EventCommentAdded,
		TicketID:     "t-1",
		Status:       domain.TicketStatusInProgress,
		DepartmentID: dept,
		ActorID:      &actorID,
		Timestamp:    time.Now(),
		Payload:      events.CommentAddedPayload{CommentID: "c-1", AuthorID: actorID, BodyPreview: "cleared tomorrow"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(provider.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(provider.messages))
	}
	got := append([]string{}, provider.messages[0].To...)
	sort.Strings(got)
	// creator and assignee, but not the acting manager, the inactive manager,
	// or uninvolved department staff
	want := []string{"creator@cargodesk.test", "staff-1@cargodesk.test"}
	if len(got) != len(want) {
		t.Fatalf("recipients = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("recipients = %v, want %v", got, want)
		}
	}
	if provider.messages[0].Subject == "" || provider.messages[0].Body == "" {
		t.Error("empty subject or body")
	}
}

func TestNotificationDeliveryFailureIsSwallowed(t *testing.T) {
	dept := "dept-ops"
	creator := &domain.User{ID: "user-1", Email: "creator@cargodesk.test", RoleName: domain.RoleUser, Active: true}
	tickets := newFakeTicketRepo()
	tickets.put(&domain.Ticket{
		ID: "t-1", ReferenceKey: "RFQ-99AA88BB", Type: domain.TicketTypeRFQ,
		CreatorID: creator.ID, DepartmentID: dept,
		Status: domain.TicketStatusOpen, CreatedAt: time.Now(),
	})

	provider := &captureProvider{failErr: errors.New("smtp down")}
	svc := NewNotificationService(tickets, newFakeUserRepo(creator), provider, zap.NewNop())

	dispatcher := events.NewInMemoryDispatcher()
	svc.RegisterHandlers(dispatcher)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type: events.EventTicketCreated, TicketID: "t-1",
		Payload: events.TicketCreatedPayload{CreatorID: creator.ID, Type: domain.TicketTypeRFQ},
	})
	if err != nil {
		t.Fatalf("delivery failure surfaced to publisher: %v", err)
	}
}

func TestNotificationUnknownTicketSkipped(t *testing.T) {
	provider := &captureProvider{}
	svc := NewNotificationService(newFakeTicketRepo(), newFakeUserRepo(), provider, zap.NewNop())

	dispatcher := events.NewInMemoryDispatcher()
	svc.RegisterHandlers(dispatcher)

	if err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketClosed, TicketID: "gone"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(provider.messages) != 0 {
		t.Errorf("messages = %d, want 0", len(provider.messages))
	}
}
