package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cargodesk/cargodesk/internal/domain"
)

// TicketFilter captures search parameters.
type TicketFilter struct {
	CreatorID    *string
	DepartmentID *string
	AssigneeID   *string
	// InvolvedID matches tickets the user created or is assigned to.
	InvolvedID  *string
	Types       []domain.TicketType
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TransitionPatch carries the fields a conditional transition may set besides
// the status itself, plus the optional assignee predicate: when CheckAssignee
// is set the update only lands while the row still holds ExpectedAssignee.
type TransitionPatch struct {
	NewStatus   domain.TicketStatus
	AssigneeID  *string
	SetAssignee bool
	ClosedAt    *time.Time
	SetClosedAt bool

	ExpectedAssignee *string
	CheckAssignee    bool
}

// StatusCount is a dashboard aggregation row.
type StatusCount struct {
	Status domain.TicketStatus
	Count  int64
}

// DepartmentCount is a dashboard aggregation row.
type DepartmentCount struct {
	DepartmentID   string
	DepartmentCode string
	Count          int64
}

// TypeCount is a dashboard aggregation row.
type TypeCount struct {
	Type  domain.TicketType
	Count int64
}

// BreachCandidate pairs a ticket with its department's SLA window for the
// periodic sweep.
type BreachCandidate struct {
	Ticket         domain.Ticket
	SLAHours       int
	DepartmentCode string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByReferenceKey(ctx context.Context, key string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ApplyTransition performs a conditional update: the ticket row is only
	// mutated when its status still equals expectedStatus and, with
	// patch.CheckAssignee set, its assignee still equals
	// patch.ExpectedAssignee. Returns pgx.ErrNoRows when no row matched; the
	// caller re-reads to distinguish a missing ticket from a concurrent
	// modification.
	ApplyTransition(ctx context.Context, ticketID string, expectedStatus domain.TicketStatus, patch TransitionPatch) error
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	CountByDepartment(ctx context.Context) ([]DepartmentCount, error)
	CountByType(ctx context.Context) ([]TypeCount, error)
	CountBreached(ctx context.Context, now time.Time) (int64, error)
	// ListBreachCandidates returns unresolved tickets whose age exceeds the
	// given fraction of their department SLA window.
	ListBreachCandidates(ctx context.Context, now time.Time, fraction float64) ([]BreachCandidate, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, reference_key, ticket_type, creator_id, department_id, assignee_id,
               title, description, status, priority, created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (reference_key, ticket_type, creator_id, department_id, assignee_id, title, description, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ReferenceKey,
		ticket.Type,
		ticket.CreatorID,
		ticket.DepartmentID,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByReferenceKey(ctx context.Context, key string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE reference_key=$1`
	return r.fetchSingle(ctx, query, key)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.ReferenceKey,
		&ticket.Type,
		&ticket.CreatorID,
		&ticket.DepartmentID,
		&ticket.AssigneeID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ApplyTransition(ctx context.Context, ticketID string, expectedStatus domain.TicketStatus, patch TransitionPatch) error {
	sets := []string{"status=$1", "updated_at=NOW()"}
	args := []any{patch.NewStatus}

	if patch.SetAssignee {
		args = append(args, patch.AssigneeID)
		sets = append(sets, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if patch.SetClosedAt {
		args = append(args, patch.ClosedAt)
		sets = append(sets, fmt.Sprintf("closed_at=$%d", len(args)))
	}

	args = append(args, ticketID)
	conds := []string{fmt.Sprintf("id=$%d", len(args))}
	args = append(args, expectedStatus)
	conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	if patch.CheckAssignee {
		args = append(args, patch.ExpectedAssignee)
		conds = append(conds, fmt.Sprintf("assignee_id IS NOT DISTINCT FROM $%d", len(args)))
	}

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE %s`,
		strings.Join(sets, ", "), strings.Join(conds, " AND "))

	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.InvolvedID != nil {
		args = append(args, *filter.InvolvedID)
		clauses = append(clauses, fmt.Sprintf("(creator_id=$%d OR assignee_id=$%d)", len(args), len(args)))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("ticket_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status ORDER BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var row StatusCount
		if err := rows.Scan(&row.Status, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByDepartment(ctx context.Context) ([]DepartmentCount, error) {
	const query = `
        SELECT t.department_id, d.code, COUNT(*)
        FROM tickets t JOIN departments d ON d.id = t.department_id
        GROUP BY t.department_id, d.code ORDER BY d.code`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DepartmentCount
	for rows.Next() {
		var row DepartmentCount
		if err := rows.Scan(&row.DepartmentID, &row.DepartmentCode, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByType(ctx context.Context) ([]TypeCount, error) {
	const query = `SELECT ticket_type, COUNT(*) FROM tickets GROUP BY ticket_type ORDER BY ticket_type`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TypeCount
	for rows.Next() {
		var row TypeCount
		if err := rows.Scan(&row.Type, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountBreached(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        SELECT COUNT(*)
        FROM tickets t JOIN departments d ON d.id = t.department_id
        WHERE t.status NOT IN ('RESOLVED','CLOSED')
          AND $1 - t.created_at > d.default_sla_hours * INTERVAL '1 hour'`
	var count int64
	if err := r.pool.QueryRow(ctx, query, now).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) ListBreachCandidates(ctx context.Context, now time.Time, fraction float64) ([]BreachCandidate, error) {
	if fraction <= 0 || fraction > 1 {
		fraction = 1
	}
	const query = `
        SELECT t.id, t.reference_key, t.ticket_type, t.creator_id, t.department_id, t.assignee_id,
               t.title, t.description, t.status, t.priority, t.created_at, t.updated_at, t.closed_at,
               d.default_sla_hours, d.code
        FROM tickets t JOIN departments d ON d.id = t.department_id
        WHERE t.status NOT IN ('RESOLVED','CLOSED')
          AND $1 - t.created_at > d.default_sla_hours * $2 * INTERVAL '1 hour'
        ORDER BY t.created_at`
	rows, err := r.pool.Query(ctx, query, now, fraction)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BreachCandidate
	for rows.Next() {
		var c BreachCandidate
		if err := rows.Scan(
			&c.Ticket.ID,
			&c.Ticket.ReferenceKey,
			&c.Ticket.Type,
			&c.Ticket.CreatorID,
			&c.Ticket.DepartmentID,
			&c.Ticket.AssigneeID,
			&c.Ticket.Title,
			&c.Ticket.Description,
			&c.Ticket.Status,
			&c.Ticket.Priority,
			&c.Ticket.CreatedAt,
			&c.Ticket.UpdatedAt,
			&c.Ticket.ClosedAt,
			&c.SLAHours,
			&c.DepartmentCode,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ReferenceKey,
			&ticket.Type,
			&ticket.CreatorID,
			&ticket.DepartmentID,
			&ticket.AssigneeID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
