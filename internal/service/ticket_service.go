package service

import (
	"context"
	"errors"
	"strings"
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

// Actor identifies the authenticated caller of a mutating operation. Origin
// is the remote address recorded in the audit log.
type Actor struct {
	Profile *authz.Profile
	Origin  string
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	departments repository.DepartmentRepository
	comments    repository.CommentRepository
	quotes      repository.QuoteRepository
	assignments repository.AssignmentRepository
	audit       *AuditService
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	DepartmentRepo repository.DepartmentRepository
	CommentRepo    repository.CommentRepository
	QuoteRepo      repository.QuoteRepository
	AssignmentRepo repository.AssignmentRepository
	Audit          *AuditService
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Type         domain.TicketType
	DepartmentID string
	Title        string
	Description  string
	Priority     domain.TicketPriority
}

// TicketListInput describes listing filters; scoping by role is applied on top.
type TicketListInput struct {
	Types       []domain.TicketType
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketDetail bundles a ticket with its thread and derived SLA state.
type TicketDetail struct {
	Ticket      *domain.Ticket
	Comments    []domain.Comment
	Quotes      []domain.Quote
	Assignments []domain.Assignment
	SLAHours    int
	SLABreached bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		departments: deps.DepartmentRepo,
		comments:    deps.CommentRepo,
		quotes:      deps.QuoteRepo,
		assignments: deps.AssignmentRepo,
		audit:       deps.Audit,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// CreateTicket opens a new ticket for the calling user.
func (s *TicketService) CreateTicket(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if actor.Profile == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	if input.Type != domain.TicketTypeRFQ && input.Type != domain.TicketTypeGeneral {
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{"type": input.Type})
	}
	dept, err := s.departments.GetByID(ctx, input.DepartmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": input.DepartmentID})
		}
		return nil, apperrors.MapError(err)
	}
	if !dept.IsActive {
		return nil, apperrors.NewValidationError("department inactive", map[string]any{"department_id": dept.ID})
	}

	ticket := &domain.Ticket{
		ReferenceKey: generateReferenceKey(input.Type),
		Type:         input.Type,
		CreatorID:    actor.Profile.UserID,
		DepartmentID: dept.ID,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Status:       domain.TicketStatusOpen,
		Priority:     input.Priority,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordTicketAudit(ctx, actor, ticket.ID, domain.AuditActionCreate, nil, map[string]any{
		"status":        ticket.Status,
		"ticket_type":   ticket.Type,
		"department_id": ticket.DepartmentID,
		"title":         ticket.Title,
	})
	actorID := actor.Profile.UserID
	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketCreated,
		TicketID:     ticket.ID,
		Status:       ticket.Status,
		DepartmentID: ticket.DepartmentID,
		ActorID:      &actorID,
		Payload: events.TicketCreatedPayload{
			CreatorID: ticket.CreatorID,
			Type:      ticket.Type,
			Priority:  ticket.Priority,
			Title:     ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicketDetail fetches a ticket, its thread, and derived SLA state,
// enforcing access rules.
func (s *TicketService) GetTicketDetail(ctx context.Context, actor Actor, ticketID string) (*TicketDetail, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessTicket(actor.Profile, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	var quotes []domain.Quote
	if ticket.Type == domain.TicketTypeRFQ {
		quotes, err = s.quotes.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	assignments, err := s.assignments.ListByTicket(ctx, ticket.ID, 50, 0)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	// SLA state derives from the department window; a failed department read
	// must not render the ticket as "not breached"
	dept, err := s.departments.GetByID(ctx, ticket.DepartmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": ticket.DepartmentID})
		}
		return nil, apperrors.MapError(err)
	}

	return &TicketDetail{
		Ticket:      ticket,
		Comments:    comments,
		Quotes:      quotes,
		Assignments: assignments,
		SLAHours:    dept.DefaultSLAHours,
		SLABreached: ticket.SLABreached(time.Now(), dept.DefaultSLAHours),
	}, nil
}

// ListTickets returns tickets visible to the actor: super-admins see all,
// managers their department, everyone else tickets they created or hold.
func (s *TicketService) ListTickets(ctx context.Context, actor Actor, input TicketListInput) ([]domain.Ticket, error) {
	if actor.Profile == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	filter := repository.TicketFilter{
		Types:       input.Types,
		Statuses:    input.Statuses,
		Priorities:  input.Priorities,
		SearchTerm:  input.SearchTerm,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
		Limit:       input.Limit,
		Offset:      input.Offset,
	}
	switch actor.Profile.Tier() {
	case domain.TierSuperAdmin:
	case domain.TierManager:
		if actor.Profile.DepartmentID != nil {
			filter.DepartmentID = actor.Profile.DepartmentID
		} else {
			userID := actor.Profile.UserID
			filter.InvolvedID = &userID
		}
	default:
		userID := actor.Profile.UserID
		filter.InvolvedID = &userID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AddComment appends an immutable comment to the ticket thread.
func (s *TicketService) AddComment(ctx context.Context, actor Actor, ticketID, body string) (*domain.Comment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessTicket(actor.Profile, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.Profile.UserID,
		Body:     body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordAudit(ctx, actor, "ticket_comments", comment.ID, domain.AuditActionCreate, nil, map[string]any{
		"ticket_id": ticket.ID,
		"body":      stringPreview(body, 200),
	})
	actorID := actor.Profile.UserID
	s.publishEvent(ctx, events.Event{
		Type:         events.EventCommentAdded,
		TicketID:     ticket.ID,
		Status:       ticket.Status,
		DepartmentID: ticket.DepartmentID,
		ActorID:      &actorID,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.AuthorID,
			BodyPreview: stringPreview(body, 120),
		},
	})
	return comment, nil
}

// SubmitQuote attaches a rate quotation to an RFQ ticket. Manager-or-above.
func (s *TicketService) SubmitQuote(ctx context.Context, actor Actor, ticketID string, quote domain.Quote) (*domain.Quote, error) {
	if !authz.CanCreateQuote(actor.Profile) {
		return nil, apperrors.NewForbidden("quote submission requires a manager role")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Type != domain.TicketTypeRFQ {
		return nil, apperrors.NewValidationError("quotes only apply to rate inquiry tickets", map[string]any{"ticket_type": ticket.Type})
	}
	if ticket.Terminal() {
		return nil, apperrors.NewInvalidTransition("ticket is closed", map[string]any{"ticket_id": ticket.ID})
	}
	if quote.Amount <= 0 || quote.Currency == "" {
		return nil, apperrors.NewValidationError("amount and currency required", nil)
	}

	quote.TicketID = ticket.ID
	quote.AuthorID = actor.Profile.UserID
	if err := s.quotes.Create(ctx, &quote); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordAudit(ctx, actor, "ticket_quotes", quote.ID, domain.AuditActionCreate, nil, map[string]any{
		"ticket_id": ticket.ID,
		"amount":    quote.Amount,
		"currency":  quote.Currency,
	})
	actorID := actor.Profile.UserID
	s.publishEvent(ctx, events.Event{
		Type:         events.EventQuoteSubmitted,
		TicketID:     ticket.ID,
		Status:       ticket.Status,
		DepartmentID: ticket.DepartmentID,
		ActorID:      &actorID,
		Payload: events.QuoteSubmittedPayload{
			QuoteID:  quote.ID,
			AuthorID: quote.AuthorID,
			Amount:   quote.Amount,
			Currency: quote.Currency,
		},
	})
	return &quote, nil
}

// CloseTicket transitions the ticket to CLOSED from any non-closed state.
// For an already-closed ticket only a super-admin sees an idempotent success;
// everyone else gets an invalid transition.
func (s *TicketService) CloseTicket(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanCloseTicket(actor.Profile, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if ticket.Terminal() {
		if authz.CanOverrideClosed(actor.Profile) {
			return ticket, nil
		}
		return nil, apperrors.NewInvalidTransition("ticket already closed", map[string]any{"ticket_id": ticket.ID})
	}

	now := time.Now()
	patch := repository.TransitionPatch{
		NewStatus:   domain.TicketStatusClosed,
		ClosedAt:    &now,
		SetClosedAt: true,
	}
	updated, err := s.applyWithRetry(ctx, actor, ticket, patch, func(current *domain.Ticket) error {
		if current.Terminal() {
			if authz.CanOverrideClosed(actor.Profile) {
				return nil
			}
			return apperrors.NewInvalidTransition("ticket already closed", map[string]any{"ticket_id": current.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated.Status != domain.TicketStatusClosed {
		// retry observed an already-closed ticket under super-admin override
		return updated, nil
	}

	s.recordTicketAudit(ctx, actor, ticket.ID, domain.AuditActionUpdate,
		map[string]any{"status": ticket.Status},
		map[string]any{"status": domain.TicketStatusClosed})
	actorID := actor.Profile.UserID
	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketClosed,
		TicketID:     ticket.ID,
		Status:       domain.TicketStatusClosed,
		DepartmentID: ticket.DepartmentID,
		ActorID:      &actorID,
		Payload: events.TicketClosedPayload{
			ClosedByID: actorID,
			OldStatus:  ticket.Status,
		},
	})
	return updated, nil
}

// UpdateStatus moves the ticket along the lifecycle graph. A closed ticket
// only moves under the super-admin override.
func (s *TicketService) UpdateStatus(ctx context.Context, actor Actor, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessTicket(actor.Profile, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	precondition := func(current *domain.Ticket) error {
		if current.Terminal() {
			if authz.CanOverrideClosed(actor.Profile) {
				return nil
			}
			return apperrors.NewInvalidTransition("ticket is closed", map[string]any{
				"ticket_id": current.ID,
			})
		}
		if !domain.CanTransition(current.Status, newStatus) {
			return apperrors.NewInvalidTransition("status change not permitted", map[string]any{
				"from": current.Status,
				"to":   newStatus,
			})
		}
		return nil
	}
	if err := precondition(ticket); err != nil {
		return nil, err
	}

	patch := repository.TransitionPatch{NewStatus: newStatus}
	if newStatus == domain.TicketStatusClosed {
		now := time.Now()
		patch.ClosedAt = &now
		patch.SetClosedAt = true
	} else if ticket.ClosedAt != nil {
		patch.SetClosedAt = true
	}

	updated, err := s.applyWithRetry(ctx, actor, ticket, patch, precondition)
	if err != nil {
		return nil, err
	}

	s.recordTicketAudit(ctx, actor, ticket.ID, domain.AuditActionUpdate,
		map[string]any{"status": ticket.Status},
		map[string]any{"status": newStatus})
	if newStatus == domain.TicketStatusClosed {
		actorID := actor.Profile.UserID
		s.publishEvent(ctx, events.Event{
			Type:         events.EventTicketClosed,
			TicketID:     ticket.ID,
			Status:       newStatus,
			DepartmentID: ticket.DepartmentID,
			ActorID:      &actorID,
			Payload: events.TicketClosedPayload{
				ClosedByID: actorID,
				OldStatus:  ticket.Status,
			},
		})
	}
	return updated, nil
}

// applyWithRetry performs the conditional update and, on a concurrent
// modification, re-reads once, re-evaluates the precondition, and retries.
// A second conflict is surfaced.
func (s *TicketService) applyWithRetry(ctx context.Context, actor Actor, ticket *domain.Ticket, patch repository.TransitionPatch, precondition func(*domain.Ticket) error) (*domain.Ticket, error) {
	err := s.tickets.ApplyTransition(ctx, ticket.ID, ticket.Status, patch)
	if err == nil {
		return s.loadTicket(ctx, ticket.ID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	current, err := s.loadTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if err := precondition(current); err != nil {
		return nil, err
	}
	if current.Terminal() {
		// precondition passed on a closed ticket: super-admin override path
		return current, nil
	}
	if err := s.tickets.ApplyTransition(ctx, current.ID, current.Status, patch); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("ticket modified concurrently", map[string]any{"ticket_id": current.ID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.loadTicket(ctx, current.ID)
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) recordTicketAudit(ctx context.Context, actor Actor, ticketID string, action domain.AuditAction, oldValues, newValues map[string]any) {
	s.recordAudit(ctx, actor, "tickets", ticketID, action, oldValues, newValues)
}

func (s *TicketService) recordAudit(ctx context.Context, actor Actor, table, recordID string, action domain.AuditAction, oldValues, newValues map[string]any) {
	var actorID *string
	if actor.Profile != nil {
		id := actor.Profile.UserID
		actorID = &id
	}
	s.audit.Record(ctx, &domain.AuditEntry{
		TableName:  table,
		RecordID:   recordID,
		Action:     action,
		OldValues:  oldValues,
		NewValues:  newValues,
		ActorID:    actorID,
		OriginAddr: actor.Origin,
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
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

func generateReferenceKey(ticketType domain.TicketType) string {
	return string(ticketType) + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
