package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-service/internal/events"
)

// NotificationService turns domain events into notifications for the people
// involved in a ticket. Delivery is currently a structured log line per recipient group.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     loggerOrNop(logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.notify("managers", event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	n.notify("owner", event)
	return nil
}

func (n *NotificationService) handleTicketAssigned(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		n.notify("assignee", event)
		return nil
	}
	n.logger.Info("notification",
		zap.String("event_type", string(event.Type)),
		zap.String("recipients", "assignee"),
		zap.Int64("ticket_id", event.TicketID),
		zap.Int64("assignee_id", payload.AssigneeID))
	return nil
}

func (n *NotificationService) handleCommentAdded(_ context.Context, event events.Event) error {
	n.notify("participants", event)
	return nil
}

func (n *NotificationService) notify(recipients string, event events.Event) {
	n.logger.Info("notification",
		zap.String("event_type", string(event.Type)),
		zap.String("recipients", recipients),
		zap.Int64("ticket_id", event.TicketID),
		zap.Int64("actor_id", event.Actor.ID),
		zap.Any("payload", event.Payload))
}
