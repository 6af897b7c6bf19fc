package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-service/internal/auth"
	"github.com/helpdesk-labs/ticket-service/internal/domain"
	"github.com/helpdesk-labs/ticket-service/internal/events"
	"github.com/helpdesk-labs/ticket-service/internal/repository"
	apperrors "github.com/helpdesk-labs/ticket-service/pkg/util/errorutil"
)

// CommentService manages ticket discussion threads.
type CommentService struct {
	store  repository.Store
	policy *auth.Engine
	logger *zap.Logger
	events eventPublisher
	now    Clock
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	Store      repository.Store
	Policy     *auth.Engine
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// NewCommentService creates the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	now := clockOrDefault(deps.Clock)
	logger := loggerOrNop(deps.Logger)
	return &CommentService{
		store:  deps.Store,
		policy: deps.Policy,
		logger: logger,
		events: eventPublisher{dispatcher: deps.Dispatcher, logger: logger, now: now},
		now:    now,
	}
}

// Add posts a comment on a ticket the actor manages, owns or is assigned to.
func (s *CommentService) Add(ctx context.Context, actor *domain.Actor, ticketID int64, text string) (*domain.Comment, error) {
	ticket, err := s.authorizeTicket(ctx, actor, ticketID, auth.OpAddComment)
	if err != nil {
		return nil, err
	}
	text, err = requireText(text)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID:  ticket.ID,
		UserID:    actor.ID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Comments().Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    events.ActorOf(actor),
		Payload: events.CommentPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.UserID,
			BodyPreview: events.Preview(comment.Text),
		},
	})
	return comment, nil
}

// List returns a ticket's comments, most recent first.
func (s *CommentService) List(ctx context.Context, actor *domain.Actor, ticketID int64) ([]domain.Comment, error) {
	if _, err := s.authorizeTicket(ctx, actor, ticketID, auth.OpListComments); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// Update replaces the text of a comment. Only its author or a MANAGER may do so.
func (s *CommentService) Update(ctx context.Context, actor *domain.Actor, commentID int64, text string) (*domain.Comment, error) {
	comment, err := s.authorizeComment(ctx, actor, commentID, auth.OpEditComment)
	if err != nil {
		return nil, err
	}
	text, err = requireText(text)
	if err != nil {
		return nil, err
	}

	if err := s.store.Comments().UpdateText(ctx, commentID, text); err != nil {
		return nil, storageError(err, "comment", map[string]any{"comment_id": commentID})
	}
	comment.Text = text

	s.events.publish(ctx, events.Event{
		Type:     events.EventCommentUpdated,
		TicketID: comment.TicketID,
		Actor:    events.ActorOf(actor),
		Payload: events.CommentPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.UserID,
			BodyPreview: events.Preview(text),
		},
	})
	return comment, nil
}

// Delete removes a comment. Only its author or a MANAGER may do so.
func (s *CommentService) Delete(ctx context.Context, actor *domain.Actor, commentID int64) error {
	comment, err := s.authorizeComment(ctx, actor, commentID, auth.OpDeleteComment)
	if err != nil {
		return err
	}
	if err := s.store.Comments().Delete(ctx, commentID); err != nil {
		return storageError(err, "comment", map[string]any{"comment_id": commentID})
	}

	s.logger.Info("comment deleted", zap.Int64("comment_id", commentID), zap.Int64("actor_id", actor.ID))
	s.events.publish(ctx, events.Event{
		Type:     events.EventCommentDeleted,
		TicketID: comment.TicketID,
		Actor:    events.ActorOf(actor),
		Payload:  events.CommentPayload{CommentID: comment.ID, AuthorID: comment.UserID},
	})
	return nil
}

func (s *CommentService) authorizeTicket(ctx context.Context, actor *domain.Actor, ticketID int64, op auth.Operation) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return nil, storageError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if err := s.policy.Authorize(actor, op, auth.TicketFacts(actor, ticket)); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *CommentService) authorizeComment(ctx context.Context, actor *domain.Actor, commentID int64, op auth.Operation) (*domain.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	comment, err := s.store.Comments().GetByID(ctx, commentID)
	if err != nil {
		return nil, storageError(err, "comment", map[string]any{"comment_id": commentID})
	}
	if err := s.policy.Authorize(actor, op, auth.CommentFacts(actor, comment)); err != nil {
		return nil, err
	}
	return comment, nil
}

func requireText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewValidationError("Comment is required", map[string]any{"field": "comment"})
	}
	return text, nil
}
