package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// lifecycle lists statuses in their fixed order.
var lifecycle = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Order returns the 1-based position of the status in the lifecycle, or 0 for unknown values.
func (s TicketStatus) Order() int {
	for i, status := range lifecycle {
		if status == s {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s.Order() > 0
}

// Next returns the only status reachable from s. CLOSED has no successor.
func (s TicketStatus) Next() (TicketStatus, bool) {
	order := s.Order()
	if order == 0 || order == len(lifecycle) {
		return "", false
	}
	return lifecycle[order], true
}

// CanTransitionTo reports whether next is exactly one step after s.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	successor, ok := s.Next()
	return ok && successor == next
}

// ParseTicketStatus normalizes and validates a status name.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	status := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// TicketPriority enumerates ticket urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// ParseTicketPriority normalizes a priority. An empty value yields MEDIUM.
func ParseTicketPriority(raw string) (TicketPriority, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TicketPriorityMedium, true
	}
	priority := TicketPriority(strings.ToUpper(raw))
	return priority, priority.Valid()
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	CreatedBy   int64
	AssignedTo  *int64
	CreatedAt   time.Time
}

// IsOwnedBy reports whether actorID created the ticket.
func (t *Ticket) IsOwnedBy(actorID int64) bool {
	return t.CreatedBy == actorID
}

// IsAssignedTo reports whether the ticket is currently assigned to actorID.
func (t *Ticket) IsAssignedTo(actorID int64) bool {
	return t.AssignedTo != nil && *t.AssignedTo == actorID
}
