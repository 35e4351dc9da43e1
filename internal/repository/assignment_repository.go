package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cargodesk/cargodesk/internal/domain"
)

// AssignmentRepository stores the append-only assignment history.
type AssignmentRepository interface {
	Create(ctx context.Context, record *domain.Assignment) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Assignment, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) Create(ctx context.Context, record *domain.Assignment) error {
	const query = `
        INSERT INTO ticket_assignments (ticket_id, assignee_id, assigner_id, notes)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		record.TicketID,
		record.AssigneeID,
		record.AssignerID,
		record.Notes,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Assignment, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, assignee_id, assigner_id, notes, created_at
        FROM ticket_assignments WHERE ticket_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		var record domain.Assignment
		if err := rows.Scan(
			&record.ID,
			&record.TicketID,
			&record.AssigneeID,
			&record.AssignerID,
			&record.Notes,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
