package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cargodesk/cargodesk/internal/domain"
	"github.com/cargodesk/cargodesk/internal/events"
	"github.com/cargodesk/cargodesk/internal/repository"
)

// In-memory repository fakes with the same contract as the pgx
// implementations: lookups miss with pgx.ErrNoRows and conditional updates
// report an unmatched row the same way.

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	seq     int

	// beforeApply runs at the top of every ApplyTransition call so tests can
	// interleave a concurrent modification.
	beforeApply func(r *fakeTicketRepo)
	applyCalls  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) put(t *domain.Ticket) {
	copied := *t
	r.tickets[t.ID] = &copied
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if ticket.ID == "" {
		ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	}
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.put(ticket)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeTicketRepo) GetByReferenceKey(_ context.Context, key string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.tickets {
		if stored.ReferenceKey == key {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, stored := range r.tickets {
		if filter.DepartmentID != nil && stored.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.InvolvedID != nil {
			involved := stored.CreatorID == *filter.InvolvedID ||
				(stored.AssigneeID != nil && *stored.AssigneeID == *filter.InvolvedID)
			if !involved {
				continue
			}
		}
		out = append(out, *stored)
	}
	return out, nil
}

func (r *fakeTicketRepo) ApplyTransition(_ context.Context, ticketID string, expectedStatus domain.TicketStatus, patch repository.TransitionPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyCalls++
	if r.beforeApply != nil {
		r.beforeApply(r)
	}
	stored, ok := r.tickets[ticketID]
	if !ok || stored.Status != expectedStatus {
		return pgx.ErrNoRows
	}
	if patch.CheckAssignee && !assigneesEqual(stored.AssigneeID, patch.ExpectedAssignee) {
		return pgx.ErrNoRows
	}
	stored.Status = patch.NewStatus
	if patch.SetAssignee {
		stored.AssigneeID = patch.AssigneeID
	}
	if patch.SetClosedAt {
		stored.ClosedAt = patch.ClosedAt
	}
	stored.UpdatedAt = time.Now()
	return nil
}

func assigneesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *fakeTicketRepo) CountByStatus(_ context.Context) ([]repository.StatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.TicketStatus]int64)
	for _, stored := range r.tickets {
		counts[stored.Status]++
	}
	out := make([]repository.StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, repository.StatusCount{Status: status, Count: n})
	}
	return out, nil
}

func (r *fakeTicketRepo) CountByDepartment(_ context.Context) ([]repository.DepartmentCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, stored := range r.tickets {
		counts[stored.DepartmentID]++
	}
	out := make([]repository.DepartmentCount, 0, len(counts))
	for dept, n := range counts {
		out = append(out, repository.DepartmentCount{DepartmentID: dept, DepartmentCode: strings.ToUpper(dept), Count: n})
	}
	return out, nil
}

func (r *fakeTicketRepo) CountByType(_ context.Context) ([]repository.TypeCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.TicketType]int64)
	for _, stored := range r.tickets {
		counts[stored.Type]++
	}
	out := make([]repository.TypeCount, 0, len(counts))
	for typ, n := range counts {
		out = append(out, repository.TypeCount{Type: typ, Count: n})
	}
	return out, nil
}

func (r *fakeTicketRepo) CountBreached(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeTicketRepo) ListBreachCandidates(_ context.Context, _ time.Time, _ float64) ([]repository.BreachCandidate, error) {
	return nil, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		copied := *u
		r.users[u.ID] = &copied
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return fmt.Errorf("duplicate email %s", user.Email)
		}
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	stored, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, stored := range r.users {
		if stored.Email == email {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var out []domain.User
	for _, stored := range r.users {
		if filter.RoleName != nil && stored.RoleName != *filter.RoleName {
			continue
		}
		if filter.DepartmentID != nil && (stored.DepartmentID == nil || *stored.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if filter.Active != nil && stored.Active != *filter.Active {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

type fakeDepartmentRepo struct {
	departments map[string]*domain.Department
}

func newFakeDepartmentRepo(depts ...*domain.Department) *fakeDepartmentRepo {
	r := &fakeDepartmentRepo{departments: make(map[string]*domain.Department)}
	for _, d := range depts {
		copied := *d
		r.departments[d.ID] = &copied
	}
	return r
}

func (r *fakeDepartmentRepo) Create(_ context.Context, dept *domain.Department) error {
	if dept.ID == "" {
		dept.ID = fmt.Sprintf("dept-%d", len(r.departments)+1)
	}
	copied := *dept
	r.departments[dept.ID] = &copied
	return nil
}

func (r *fakeDepartmentRepo) Update(_ context.Context, dept *domain.Department) error {
	if _, ok := r.departments[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *dept
	r.departments[dept.ID] = &copied
	return nil
}

func (r *fakeDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	stored, ok := r.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeDepartmentRepo) GetByCode(_ context.Context, code string) (*domain.Department, error) {
	for _, stored := range r.departments {
		if stored.Code == code {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeDepartmentRepo) List(_ context.Context, includeInactive bool) ([]domain.Department, error) {
	var out []domain.Department
	for _, stored := range r.departments {
		if !includeInactive && !stored.IsActive {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

type fakeCommentRepo struct {
	comments []domain.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	if comment.ID == "" {
		comment.ID = fmt.Sprintf("comment-%d", len(r.comments)+1)
	}
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	var out []domain.Comment
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeQuoteRepo struct {
	quotes []domain.Quote
}

func (r *fakeQuoteRepo) Create(_ context.Context, quote *domain.Quote) error {
	if quote.ID == "" {
		quote.ID = fmt.Sprintf("quote-%d", len(r.quotes)+1)
	}
	quote.CreatedAt = time.Now()
	r.quotes = append(r.quotes, *quote)
	return nil
}

func (r *fakeQuoteRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Quote, error) {
	var out []domain.Quote
	for _, q := range r.quotes {
		if q.TicketID == ticketID {
			out = append(out, q)
		}
	}
	return out, nil
}

type fakeAssignmentRepo struct {
	records []domain.Assignment
	failErr error
}

func (r *fakeAssignmentRepo) Create(_ context.Context, record *domain.Assignment) error {
	if r.failErr != nil {
		return r.failErr
	}
	if record.ID == "" {
		record.ID = fmt.Sprintf("assignment-%d", len(r.records)+1)
	}
	record.CreatedAt = time.Now()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeAssignmentRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, rec := range r.records {
		if rec.TicketID == ticketID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	entries []domain.AuditEntry
	failErr error
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	if r.failErr != nil {
		return r.failErr
	}
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("audit-%d", len(r.entries)+1)
	}
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, _ repository.AuditFilter) ([]domain.AuditEntry, error) {
	return append([]domain.AuditEntry{}, r.entries...), nil
}

// captureDispatcher records published events for assertions.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(_ events.EventType, _ events.EventHandler) {}

func (d *captureDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
