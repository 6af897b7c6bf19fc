package dto

import (
	"time"

	"github.com/helpdesk-labs/ticket-service/internal/domain"
)

// CommentRequest payload for adding or editing a comment.
type CommentRequest struct {
	Comment string `json:"comment"`
}

// CommentResponse is the public view of a comment.
type CommentResponse struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	UserID    int64     `json:"user_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCommentResponse maps a comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		UserID:    comment.UserID,
		Comment:   comment.Text,
		CreatedAt: comment.CreatedAt,
	}
}
