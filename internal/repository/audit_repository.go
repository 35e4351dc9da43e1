package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cargodesk/cargodesk/internal/domain"
)

// AuditFilter captures audit log query parameters.
type AuditFilter struct {
	TableName *string
	RecordID  *string
	ActorID   *string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// AuditRepository stores the append-only audit log.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository instantiates repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	oldValues, err := marshalSnapshot(entry.OldValues)
	if err != nil {
		return err
	}
	newValues, err := marshalSnapshot(entry.NewValues)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO audit_log (table_name, record_id, action, old_values, new_values, actor_id, origin_addr)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TableName,
		entry.RecordID,
		entry.Action,
		oldValues,
		newValues,
		entry.ActorID,
		entry.OriginAddr,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.TableName != nil {
		args = append(args, *filter.TableName)
		clauses = append(clauses, fmt.Sprintf("table_name=$%d", len(args)))
	}
	if filter.RecordID != nil {
		args = append(args, *filter.RecordID)
		clauses = append(clauses, fmt.Sprintf("record_id=$%d", len(args)))
	}
	if filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		clauses = append(clauses, fmt.Sprintf("actor_id=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
        SELECT id, table_name, record_id, action, old_values, new_values, actor_id, origin_addr, created_at
        FROM audit_log WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var oldRaw, newRaw []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TableName,
			&entry.RecordID,
			&entry.Action,
			&oldRaw,
			&newRaw,
			&entry.ActorID,
			&entry.OriginAddr,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := unmarshalSnapshot(oldRaw, &entry.OldValues); err != nil {
			return nil, err
		}
		if err := unmarshalSnapshot(newRaw, &entry.NewValues); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func marshalSnapshot(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

func unmarshalSnapshot(raw []byte, target *map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}
