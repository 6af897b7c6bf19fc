package sqlite

import (
	"context"

	"github.com/helpdesk-labs/ticket-service/internal/domain"
)

type statusLogRepository struct {
	q querier
}

func (r *statusLogRepository) Append(ctx context.Context, entry *domain.StatusLogEntry) error {
	const query = `
        INSERT INTO ticket_status_logs (ticket_id, old_status, new_status, changed_by, created_at)
        VALUES (?, ?, ?, ?, ?)
        RETURNING id`
	return r.q.QueryRowContext(ctx, query,
		entry.TicketID,
		string(entry.OldStatus),
		string(entry.NewStatus),
		entry.ChangedBy,
		toNanos(entry.CreatedAt),
	).Scan(&entry.ID)
}

func (r *statusLogRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusLogEntry, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, changed_by, created_at
        FROM ticket_status_logs WHERE ticket_id = ? ORDER BY created_at ASC, id ASC`
	rows, err := r.q.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.StatusLogEntry{}
	for rows.Next() {
		var (
			entry              domain.StatusLogEntry
			oldStatus, newStat string
			createdAt          int64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&oldStatus,
			&newStat,
			&entry.ChangedBy,
			&createdAt,
		); err != nil {
			return nil, err
		}
		entry.OldStatus = domain.TicketStatus(oldStatus)
		entry.NewStatus = domain.TicketStatus(newStat)
		entry.CreatedAt = fromNanos(createdAt)
		result = append(result, entry)
	}
	return result, rows.Err()
}
