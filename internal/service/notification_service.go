package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cargodesk/cargodesk/internal/domain"
	"github.com/cargodesk/cargodesk/internal/events"
	"github.com/cargodesk/cargodesk/internal/notify"
	"github.com/cargodesk/cargodesk/internal/repository"
)

// NotificationService turns lifecycle events into outbound notifications.
// Recipients are the ticket creator, the current assignee and the managers of
// the owning department. Every send is best-effort: a delivery failure is
// logged and never surfaces to the transition that emitted the event.
type NotificationService struct {
	tickets  repository.TicketRepository
	users    repository.UserRepository
	provider notify.Provider
	logger   *zap.Logger
}

// NewNotificationService wires a notification service.
func NewNotificationService(
	tickets repository.TicketRepository,
	users repository.UserRepository,
	provider notify.Provider,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		tickets:  tickets,
		users:    users,
		provider: provider,
		logger:   logger,
	}
}

// RegisterHandlers subscribes the service to every event type it handles.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.handle)
	dispatcher.Subscribe(events.EventTicketAssigned, s.handle)
	dispatcher.Subscribe(events.EventCommentAdded, s.handle)
	dispatcher.Subscribe(events.EventQuoteSubmitted, s.handle)
	dispatcher.Subscribe(events.EventTicketClosed, s.handle)
	dispatcher.Subscribe(events.EventSLABreachImminent, s.handle)
}

func (s *NotificationService) handle(ctx context.Context, event events.Event) error {
	msg, err := s.render(ctx, event)
	if err != nil {
		s.logger.Warn("notification render failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err),
		)
		return nil
	}
	if len(msg.To) == 0 {
		return nil
	}
	if err := s.provider.Send(ctx, msg); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *NotificationService) render(ctx context.Context, event events.Event) (notify.Message, error) {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return notify.Message{}, fmt.Errorf("load ticket: %w", err)
	}

	recipients, err := s.resolveRecipients(ctx, ticket, event)
	if err != nil {
		return notify.Message{}, err
	}

	var subject, body string
	switch event.Type {
	case events.EventTicketCreated:
		subject = fmt.Sprintf("[%s] Ticket created: %s", ticket.ReferenceKey, ticket.Title)
		body = fmt.Sprintf("A new %s ticket %s was opened with priority %s.",
			ticket.Type, ticket.ReferenceKey, ticket.Priority)
	case events.EventTicketAssigned:
		subject = fmt.Sprintf("[%s] Ticket assigned", ticket.ReferenceKey)
		body = fmt.Sprintf("Ticket %s (%s) has been assigned. Current status: %s.",
			ticket.ReferenceKey, ticket.Title, ticket.Status)
	case events.EventCommentAdded:
		payload, _ := event.Payload.(events.CommentAddedPayload)
		subject = fmt.Sprintf("[%s] New comment", ticket.ReferenceKey)
		body = fmt.Sprintf("A comment was added to ticket %s: %s",
			ticket.ReferenceKey, payload.BodyPreview)
	case events.EventQuoteSubmitted:
		payload, _ := event.Payload.(events.QuoteSubmittedPayload)
		subject = fmt.Sprintf("[%s] Quote submitted", ticket.ReferenceKey)
		body = fmt.Sprintf("A quote of %.2f %s was submitted on ticket %s.",
			payload.Amount, payload.Currency, ticket.ReferenceKey)
	case events.EventTicketClosed:
		subject = fmt.Sprintf("[%s] Ticket closed", ticket.ReferenceKey)
		body = fmt.Sprintf("Ticket %s (%s) has been closed.", ticket.ReferenceKey, ticket.Title)
	case events.EventSLABreachImminent:
		payload, _ := event.Payload.(events.SLABreachImminentPayload)
		subject = fmt.Sprintf("[%s] SLA deadline approaching", ticket.ReferenceKey)
		body = fmt.Sprintf("Ticket %s is approaching its %dh SLA deadline (%s). Current status: %s.",
			ticket.ReferenceKey, payload.SLAHours, payload.Deadline.Format("2006-01-02 15:04 MST"), ticket.Status)
	default:
		return notify.Message{}, fmt.Errorf("unknown event type %q", event.Type)
	}

	return notify.Message{To: recipients, Subject: subject, Body: body}, nil
}

// resolveRecipients collects creator, assignee and department manager emails,
// skipping deactivated accounts and the actor who triggered the event.
func (s *NotificationService) resolveRecipients(ctx context.Context, ticket *domain.Ticket, event events.Event) ([]string, error) {
	seen := make(map[string]struct{})
	var emails []string

	add := func(u *domain.User) {
		if u == nil || !u.Active {
			return
		}
		if event.ActorID != nil && u.ID == *event.ActorID {
			return
		}
		if _, ok := seen[u.Email]; ok {
			return
		}
		seen[u.Email] = struct{}{}
		emails = append(emails, u.Email)
	}

	creator, err := s.users.GetByID(ctx, ticket.CreatorID)
	if err == nil {
		add(creator)
	}
	if ticket.AssigneeID != nil {
		if assignee, err := s.users.GetByID(ctx, *ticket.AssigneeID); err == nil {
			add(assignee)
		}
	}

	active := true
	deptUsers, err := s.users.List(ctx, repository.UserFilter{
		DepartmentID: &ticket.DepartmentID,
		Active:       &active,
	})
	if err != nil {
		return nil, fmt.Errorf("list department users: %w", err)
	}
	for i := range deptUsers {
		if deptUsers[i].Tier() == domain.TierManager {
			add(&deptUsers[i])
		}
	}

	sort.Strings(emails)
	return emails, nil
}
