package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cargodesk/cargodesk/internal/domain"
)

// QuoteRepository stores rate quotations for RFQ tickets.
type QuoteRepository interface {
	Create(ctx context.Context, quote *domain.Quote) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Quote, error)
}

type quoteRepository struct {
	pool *pgxpool.Pool
}

// NewQuoteRepository instantiates repository.
func NewQuoteRepository(pool *pgxpool.Pool) QuoteRepository {
	return &quoteRepository{pool: pool}
}

func (r *quoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	const query = `
        INSERT INTO ticket_quotes (ticket_id, author_id, amount, currency, valid_until, notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		quote.TicketID,
		quote.AuthorID,
		quote.Amount,
		quote.Currency,
		quote.ValidUntil,
		quote.Notes,
	).Scan(&quote.ID, &quote.CreatedAt)
}

func (r *quoteRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Quote, error) {
	const query = `
        SELECT id, ticket_id, author_id, amount, currency, valid_until, notes, created_at
        FROM ticket_quotes WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Quote
	for rows.Next() {
		var quote domain.Quote
		if err := rows.Scan(
			&quote.ID,
			&quote.TicketID,
			&quote.AuthorID,
			&quote.Amount,
			&quote.Currency,
			&quote.ValidUntil,
			&quote.Notes,
			&quote.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, quote)
	}
	return result, rows.Err()
}
