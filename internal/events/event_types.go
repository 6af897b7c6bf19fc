package events

import (
	"time"

	"github.com/helpdesk-labs/ticket-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventCommentAdded        EventType = "comment_added"
	EventCommentUpdated      EventType = "comment_updated"
	EventCommentDeleted      EventType = "comment_deleted"
)

// AllEventTypes lists every event the services emit.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketDeleted,
	EventCommentAdded,
	EventCommentUpdated,
	EventCommentDeleted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   int64       `json:"id"`
	Role domain.Role `json:"role"`
}

// ActorOf converts an authenticated actor to event metadata.
func ActorOf(actor *domain.Actor) Actor {
	if actor == nil {
		return Actor{}
	}
	return Actor{ID: actor.ID, Role: actor.Role}
}

// Event represents a domain event emitted by services after their changes are durable.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID int64 `json:"assignee_id"`
}

// CommentPayload is shared by the comment events.
type CommentPayload struct {
	CommentID   int64  `json:"comment_id"`
	AuthorID    int64  `json:"author_id"`
	BodyPreview string `json:"body_preview,omitempty"`
}

const previewLimit = 80

// Preview truncates text for inclusion in event payloads.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "..."
}
