package repository

import (
	"context"

	"github.com/helpdesk-labs/ticket-service/internal/domain"
)

// StatusLogRepository stores the append-only status audit trail.
type StatusLogRepository interface {
	Append(ctx context.Context, entry *domain.StatusLogEntry) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusLogEntry, error)
}

type statusLogRepository struct {
	db DBTX
}

// NewStatusLogRepository builds repository.
func NewStatusLogRepository(db DBTX) StatusLogRepository {
	return &statusLogRepository{db: db}
}

func (r *statusLogRepository) Append(ctx context.Context, entry *domain.StatusLogEntry) error {
	const query = `
        INSERT INTO ticket_status_logs (ticket_id, old_status, new_status, changed_by, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ChangedBy,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *statusLogRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusLogEntry, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, changed_by, created_at
        FROM ticket_status_logs WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.StatusLogEntry{}
	for rows.Next() {
		var entry domain.StatusLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ChangedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
