package dto

import (
	"time"

	"github.com/helpdesk-labs/ticket-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	UserID int64 `json:"userId"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// TicketResponse is the public view of a ticket.
type TicketResponse struct {
	ID          int64                 `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	CreatedBy   int64                 `json:"created_by"`
	AssignedTo  *int64                `json:"assigned_to"`
	CreatedAt   time.Time             `json:"created_at"`
}

// StatusLogResponse is one audit trail entry.
type StatusLogResponse struct {
	ID        int64               `json:"id"`
	TicketID  int64               `json:"ticket_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	ChangedBy int64               `json:"changed_by"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		CreatedBy:   ticket.CreatedBy,
		AssignedTo:  ticket.AssignedTo,
		CreatedAt:   ticket.CreatedAt,
	}
}

// NewStatusLogResponse maps an audit entry.
func NewStatusLogResponse(entry *domain.StatusLogEntry) StatusLogResponse {
	return StatusLogResponse{
		ID:        entry.ID,
		TicketID:  entry.TicketID,
		OldStatus: entry.OldStatus,
		NewStatus: entry.NewStatus,
		ChangedBy: entry.ChangedBy,
		CreatedAt: entry.CreatedAt,
	}
}
