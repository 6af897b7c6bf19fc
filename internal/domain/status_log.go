package domain

import "time"

// StatusLogEntry is an immutable record of one accepted status transition.
type StatusLogEntry struct {
	ID        int64
	TicketID  int64
	OldStatus TicketStatus
	NewStatus TicketStatus
	ChangedBy int64
	CreatedAt time.Time
}
