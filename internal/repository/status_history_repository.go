package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mov-ti/helpdesk-service/internal/domain"
)

// StatusHistoryRepository persists the per-ticket transition audit trail.
type StatusHistoryRepository interface {
	Create(ctx context.Context, change *domain.StatusChange) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChange, error)
}

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository constructs repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func (r *statusHistoryRepository) Create(ctx context.Context, change *domain.StatusChange) error {
	const query = `
        INSERT INTO ticket_status_history (ticket_id, old_status, new_status, reason, changed_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		change.TicketID,
		change.OldStatus,
		change.NewStatus,
		change.Reason,
		change.ChangedBy,
	).Scan(&change.ID, &change.CreatedAt)
}

func (r *statusHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChange, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, reason, changed_by, created_at
        FROM ticket_status_history WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusChange
	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(
			&change.ID,
			&change.TicketID,
			&change.OldStatus,
			&change.NewStatus,
			&change.Reason,
			&change.ChangedBy,
			&change.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
