package sqlite

import (
	"context"

	"github.com/helpdesk-labs/ticket-service/internal/domain"
)

type commentRepository struct {
	q querier
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, user_id, comment, created_at)
        VALUES (?, ?, ?, ?)
        RETURNING id`
	return r.q.QueryRowContext(ctx, query,
		comment.TicketID,
		comment.UserID,
		comment.Text,
		toNanos(comment.CreatedAt),
	).Scan(&comment.ID)
}

func (r *commentRepository) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, user_id, comment, created_at
        FROM ticket_comments WHERE id = ?`
	var comment domain.Comment
	if err := scanComment(r.q.QueryRowContext(ctx, query, id), &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, user_id, comment, created_at
        FROM ticket_comments WHERE ticket_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.q.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		var comment domain.Comment
		if err := scanComment(rows, &comment); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

func (r *commentRepository) UpdateText(ctx context.Context, id int64, text string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE ticket_comments SET comment = ? WHERE id = ?`, text, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *commentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM ticket_comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanComment(row rowScanner, comment *domain.Comment) error {
	var createdAt int64
	if err := row.Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.UserID,
		&comment.Text,
		&createdAt,
	); err != nil {
		return err
	}
	comment.CreatedAt = fromNanos(createdAt)
	return nil
}
