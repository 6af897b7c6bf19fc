package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/helpdesk-labs/ticket-service/internal/domain"
	"github.com/helpdesk-labs/ticket-service/internal/repository"
)

type ticketRepository struct {
	q querier
}

const ticketColumns = `id, title, description, priority, status, created_by, assigned_to, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, priority, status, created_by, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        RETURNING id`
	return r.q.QueryRowContext(ctx, query,
		ticket.Title,
		ticket.Description,
		string(ticket.Priority),
		string(ticket.Status),
		ticket.CreatedBy,
		toNanos(ticket.CreatedAt),
	).Scan(&ticket.ID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	var ticket domain.Ticket
	if err := scanTicket(r.q.QueryRowContext(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		clauses = append(clauses, "created_by = ?")
		args = append(args, *filter.CreatedBy)
	}
	if filter.AssignedTo != nil {
		clauses = append(clauses, "assigned_to = ?")
		args = append(args, *filter.AssignedTo)
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateAssignee(ctx context.Context, id, assigneeID int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE tickets SET assigned_to = ? WHERE id = ?`, assigneeID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE tickets SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	var (
		priority, status string
		assignedTo       sql.NullInt64
		createdAt        int64
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&priority,
		&status,
		&ticket.CreatedBy,
		&assignedTo,
		&createdAt,
	); err != nil {
		return err
	}
	ticket.Priority = domain.TicketPriority(priority)
	ticket.Status = domain.TicketStatus(status)
	ticket.AssignedTo = nil
	if assignedTo.Valid {
		v := assignedTo.Int64
		ticket.AssignedTo = &v
	}
	ticket.CreatedAt = fromNanos(createdAt)
	return nil
}
