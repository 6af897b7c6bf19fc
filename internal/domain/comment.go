package domain

import "time"

// Comment is a discussion entry attached to a ticket.
type Comment struct {
	ID        int64
	TicketID  int64
	UserID    int64
	Text      string
	CreatedAt time.Time
}

// IsAuthoredBy reports whether actorID wrote the comment.
func (c *Comment) IsAuthoredBy(actorID int64) bool {
	return c.UserID == actorID
}
