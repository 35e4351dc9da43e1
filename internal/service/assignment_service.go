package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cargodesk/cargodesk/internal/authz"
	"github.com/cargodesk/cargodesk/internal/domain"
	"github.com/cargodesk/cargodesk/internal/events"
	"github.com/cargodesk/cargodesk/internal/repository"
	apperrors "github.com/cargodesk/cargodesk/pkg/util"
)

// AssignmentService handles ticket assignment.
type AssignmentService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	assignments repository.AssignmentRepository
	audit       *AuditService
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo     repository.TicketRepository
	UserRepo       repository.UserRepository
	AssignmentRepo repository.AssignmentRepository
	Audit          *AuditService
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		assignments: deps.AssignmentRepo,
		audit:       deps.Audit,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// AssignTicket assigns or reassigns a ticket. Manager-or-above only; the
// actor must govern the ticket's department unless super-admin; the assignee
// must be active and, for non-super-admin actors, belong to the ticket's
// department. All preconditions are checked before any state mutation.
func (s *AssignmentService) AssignTicket(ctx context.Context, actor Actor, ticketID, assigneeID, notes string) (*domain.Ticket, error) {
	if actor.Profile == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	if !authz.CanAssignTicket(actor.Profile) {
		return nil, apperrors.NewForbidden("assignment requires a manager role")
	}

	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidTransition("assignee does not exist", map[string]any{"assignee_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewInvalidTransition("assignee is inactive", map[string]any{"assignee_id": assigneeID})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	superAdmin := actor.Profile.Tier() == domain.TierSuperAdmin
	if !superAdmin {
		if actor.Profile.DepartmentID == nil || *actor.Profile.DepartmentID != ticket.DepartmentID {
			return nil, apperrors.NewForbidden("ticket outside manager's department")
		}
		if assignee.DepartmentID == nil || *assignee.DepartmentID != ticket.DepartmentID {
			return nil, apperrors.NewInvalidTransition("assignee outside ticket department", map[string]any{
				"assignee_id":   assigneeID,
				"department_id": ticket.DepartmentID,
			})
		}
	}
	if ticket.Terminal() && !superAdmin {
		return nil, apperrors.NewInvalidTransition("ticket is closed", map[string]any{"ticket_id": ticket.ID})
	}

	updated, err := s.applyAssignment(ctx, ticket, assignee.ID, superAdmin)
	if err != nil {
		return nil, err
	}

	s.recordAssignment(ctx, actor, updated, assignee.ID, notes, ticket.AssigneeID)
	actorID := actor.Profile.UserID
	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketAssigned,
		TicketID:     updated.ID,
		Status:       updated.Status,
		DepartmentID: updated.DepartmentID,
		ActorID:      &actorID,
		Payload: events.TicketAssignedPayload{
			AssigneeID: assignee.ID,
			AssignerID: actorID,
			Notes:      notes,
		},
	})
	return updated, nil
}

// applyAssignment performs the compare-and-set: the update only lands while
// the ticket still holds the status and assignee the actor saw. A rival
// assignment detected on re-read is a conflict; a status-only change is
// retried once with the assignee expectation intact, and a second miss is
// surfaced as a conflict.
func (s *AssignmentService) applyAssignment(ctx context.Context, ticket *domain.Ticket, assigneeID string, superAdmin bool) (*domain.Ticket, error) {
	patch := assignmentPatch(ticket.Status, ticket.AssigneeID, assigneeID)
	err := s.tickets.ApplyTransition(ctx, ticket.ID, ticket.Status, patch)
	if err == nil {
		return s.reload(ctx, ticket.ID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	current, err := s.reload(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if !sameAssignee(current.AssigneeID, ticket.AssigneeID) {
		return nil, apperrors.NewConflict("ticket assigned concurrently", map[string]any{
			"ticket_id":   current.ID,
			"assignee_id": current.AssigneeID,
		})
	}
	if current.Terminal() && !superAdmin {
		return nil, apperrors.NewInvalidTransition("ticket is closed", map[string]any{"ticket_id": current.ID})
	}
	patch = assignmentPatch(current.Status, current.AssigneeID, assigneeID)
	if err := s.tickets.ApplyTransition(ctx, current.ID, current.Status, patch); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("ticket modified concurrently", map[string]any{"ticket_id": current.ID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.reload(ctx, current.ID)
}

// assignmentPatch moves an open ticket into progress; otherwise the status
// stays put and only the assignee changes. The expected assignee rides along
// so the conditional update rejects a concurrent reassignment even when the
// status predicate alone would still match.
func assignmentPatch(current domain.TicketStatus, currentAssignee *string, assigneeID string) repository.TransitionPatch {
	newStatus := current
	if current == domain.TicketStatusOpen {
		newStatus = domain.TicketStatusInProgress
	}
	return repository.TransitionPatch{
		NewStatus:        newStatus,
		AssigneeID:       &assigneeID,
		SetAssignee:      true,
		ExpectedAssignee: currentAssignee,
		CheckAssignee:    true,
	}
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// recordAssignment appends the assignment history row and the audit entry.
// The assignment is committed once the conditional update landed; history or
// audit write failures are logged, never rolled back.
func (s *AssignmentService) recordAssignment(ctx context.Context, actor Actor, ticket *domain.Ticket, assigneeID, notes string, oldAssignee *string) {
	record := &domain.Assignment{
		TicketID:   ticket.ID,
		AssigneeID: assigneeID,
		AssignerID: actor.Profile.UserID,
		Notes:      notes,
	}
	if err := s.assignments.Create(ctx, record); err != nil {
		s.logger.Error("assignment history write failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err),
		)
	}

	actorID := actor.Profile.UserID
	s.audit.Record(ctx, &domain.AuditEntry{
		TableName: "tickets",
		RecordID:  ticket.ID,
		Action:    domain.AuditActionUpdate,
		OldValues: map[string]any{"assignee_id": oldAssignee},
		NewValues: map[string]any{
			"assignee_id": assigneeID,
			"status":      ticket.Status,
		},
		ActorID:    &actorID,
		OriginAddr: actor.Origin,
	})
}

func (s *AssignmentService) reload(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *AssignmentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
