package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-service/internal/auth"
	"github.com/helpdesk-labs/ticket-service/internal/domain"
	"github.com/helpdesk-labs/ticket-service/internal/events"
	"github.com/helpdesk-labs/ticket-service/internal/observability"
	"github.com/helpdesk-labs/ticket-service/internal/repository"
	apperrors "github.com/helpdesk-labs/ticket-service/pkg/util/errorutil"
)

const (
	minTitleLength       = 5
	minDescriptionLength = 10
)

// TicketService owns the ticket lifecycle: creation, visibility-filtered
// listing, assignment, status transitions and deletion.
type TicketService struct {
	store      repository.Store
	policy     *auth.Engine
	assignment *AssignmentService
	audit      *AuditLog
	metrics    *observability.Metrics
	logger     *zap.Logger
	events     eventPublisher
	now        Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Policy     *auth.Engine
	Assignment *AssignmentService
	Audit      *AuditLog
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	// Priority is case-insensitive; empty means MEDIUM.
	Priority string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := clockOrDefault(deps.Clock)
	logger := loggerOrNop(deps.Logger)
	return &TicketService{
		store:      deps.Store,
		policy:     deps.Policy,
		assignment: deps.Assignment,
		audit:      deps.Audit,
		metrics:    deps.Metrics,
		logger:     logger,
		events:     eventPublisher{dispatcher: deps.Dispatcher, logger: logger, now: now},
		now:        now,
	}
}

// Create opens a ticket in OPEN owned by the actor.
func (s *TicketService) Create(ctx context.Context, actor *domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := s.policy.Authorize(actor, auth.OpCreateTicket, auth.ResourceFacts{}); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if utf8.RuneCountInString(title) < minTitleLength {
		return nil, apperrors.NewValidationError("Title must be at least 5 characters", map[string]any{"field": "title"})
	}
	description := strings.TrimSpace(input.Description)
	if utf8.RuneCountInString(description) < minDescriptionLength {
		return nil, apperrors.NewValidationError("Description must be at least 10 characters", map[string]any{"field": "description"})
	}
	priority, ok := domain.ParseTicketPriority(input.Priority)
	if !ok {
		return nil, apperrors.NewValidationError("Invalid priority", map[string]any{
			"field":   "priority",
			"allowed": []domain.TicketPriority{domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh},
		})
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   actor.ID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Tickets().Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorOf(actor),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// List returns the tickets visible to the actor: everything for MANAGER,
// assigned tickets for SUPPORT and own tickets for USER.
func (s *TicketService) List(ctx context.Context, actor *domain.Actor) ([]domain.Ticket, error) {
	if err := s.policy.Authorize(actor, auth.OpListTickets, auth.ResourceFacts{}); err != nil {
		return nil, err
	}

	var filter repository.TicketFilter
	switch actor.Role {
	case domain.RoleManager:
	case domain.RoleSupport:
		filter.AssignedTo = &actor.ID
	case domain.RoleUser:
		filter.CreatedBy = &actor.ID
	default:
		return nil, apperrors.NewForbidden("forbidden: unknown role")
	}

	tickets, err := s.store.Tickets().List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Assign makes a staff-capable account responsible for the ticket.
func (s *TicketService) Assign(ctx context.Context, actor *domain.Actor, ticketID, assigneeID int64) error {
	if err := s.policy.Authorize(actor, auth.OpAssignTicket, auth.ResourceFacts{}); err != nil {
		return err
	}
	if _, err := s.assignment.ValidateAssignee(ctx, assigneeID); err != nil {
		return err
	}
	if err := s.store.Tickets().UpdateAssignee(ctx, ticketID, assigneeID); err != nil {
		return storageError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	s.logger.Info("ticket assigned",
		zap.Int64("ticket_id", ticketID),
		zap.Int64("assignee_id", assigneeID),
		zap.Int64("actor_id", actor.ID))
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		Actor:    events.ActorOf(actor),
		Payload:  events.TicketAssignedPayload{AssigneeID: assigneeID},
	})
	return nil
}

// ChangeStatus advances the ticket exactly one step through the lifecycle.
// The status write and its audit entry commit together or not at all. The
// write only applies if the status is still the one read in the same
// transaction, so concurrent callers cannot both advance from the same state.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.Actor, ticketID int64, rawStatus string) (domain.TicketStatus, error) {
	if err := s.policy.Authorize(actor, auth.OpChangeStatus, auth.ResourceFacts{}); err != nil {
		return "", err
	}
	if strings.TrimSpace(rawStatus) == "" {
		return "", apperrors.NewValidationError("Status is required", map[string]any{"field": "status"})
	}
	requested, ok := domain.ParseTicketStatus(rawStatus)
	if !ok {
		return "", apperrors.NewValidationError("Invalid status", map[string]any{"field": "status", "value": rawStatus})
	}

	ctx, span := observability.Tracer().Start(ctx, "TicketService.ChangeStatus")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("ticket.id", ticketID),
		attribute.String("ticket.status.requested", string(requested)),
	)

	var previous domain.TicketStatus
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetByID(ctx, ticketID)
		if err != nil {
			return storageError(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		previous = ticket.Status
		if !previous.CanTransitionTo(requested) {
			return apperrors.NewTransitionError(string(previous), string(requested), nil)
		}

		applied, err := tx.Tickets().UpdateStatus(ctx, ticketID, previous, requested)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !applied {
			return apperrors.NewTransitionError(string(previous), string(requested), map[string]any{
				"reason": "status changed concurrently",
			})
		}

		if _, err := s.audit.Append(ctx, tx, ticketID, previous, requested, actor.ID); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	s.metrics.RecordTransition(string(previous), string(requested))
	s.logger.Info("ticket status changed",
		zap.Int64("ticket_id", ticketID),
		zap.String("old_status", string(previous)),
		zap.String("new_status", string(requested)),
		zap.Int64("actor_id", actor.ID))
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Actor:    events.ActorOf(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: requested,
		},
	})
	return requested, nil
}

// Delete removes the ticket and its comments. Its status trail is kept.
func (s *TicketService) Delete(ctx context.Context, actor *domain.Actor, ticketID int64) error {
	if err := s.policy.Authorize(actor, auth.OpDeleteTicket, auth.ResourceFacts{}); err != nil {
		return err
	}
	if err := s.store.Tickets().Delete(ctx, ticketID); err != nil {
		return storageError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	s.logger.Info("ticket deleted", zap.Int64("ticket_id", ticketID), zap.Int64("actor_id", actor.ID))
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    events.ActorOf(actor),
	})
	return nil
}
