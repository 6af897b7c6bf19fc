package service

import (
	"context"
	"fmt"

	"github.com/helpdesk-labs/ticket-service/internal/auth"
	"github.com/helpdesk-labs/ticket-service/internal/domain"
	"github.com/helpdesk-labs/ticket-service/internal/repository"
)

// AuditLog records and reads the append-only trail of status transitions.
type AuditLog struct {
	store  repository.Store
	policy *auth.Engine
	now    Clock
}

// AuditDependencies bundles collaborators for the audit log.
type AuditDependencies struct {
	Store  repository.Store
	Policy *auth.Engine
	Clock  Clock
}

// NewAuditLog creates the audit log.
func NewAuditLog(deps AuditDependencies) *AuditLog {
	return &AuditLog{
		store:  deps.Store,
		policy: deps.Policy,
		now:    clockOrDefault(deps.Clock),
	}
}

// Append writes one entry through tx, which must be the transaction that
// changed the ticket status.
func (a *AuditLog) Append(ctx context.Context, tx repository.Store, ticketID int64, from, to domain.TicketStatus, changedBy int64) (*domain.StatusLogEntry, error) {
	entry := &domain.StatusLogEntry{
		TicketID:  ticketID,
		OldStatus: from,
		NewStatus: to,
		ChangedBy: changedBy,
		CreatedAt: a.now().UTC(),
	}
	if err := tx.StatusLogs().Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns the transitions of a ticket, oldest first.
func (a *AuditLog) History(ctx context.Context, actor *domain.Actor, ticketID int64) ([]domain.StatusLogEntry, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := a.store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return nil, storageError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if err := a.policy.Authorize(actor, auth.OpViewHistory, auth.TicketFacts(actor, ticket)); err != nil {
		return nil, err
	}
	entries, err := a.store.StatusLogs().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storageError(err, "ticket", nil)
	}
	return entries, nil
}

// Replay folds entries starting from OPEN and returns the resulting status.
// It fails on the first entry that does not continue the chain or is not a
// permitted edge.
func Replay(entries []domain.StatusLogEntry) (domain.TicketStatus, error) {
	current := domain.TicketStatusOpen
	for i, entry := range entries {
		if entry.OldStatus != current {
			return current, fmt.Errorf("entry %d: expected old status %s, found %s", i, current, entry.OldStatus)
		}
		if !current.CanTransitionTo(entry.NewStatus) {
			return current, fmt.Errorf("entry %d: %s -> %s is not a lifecycle edge", i, entry.OldStatus, entry.NewStatus)
		}
		current = entry.NewStatus
	}
	return current, nil
}

// VerifyTrail checks that the trail reconstructs the ticket's current status.
func VerifyTrail(ticket *domain.Ticket, entries []domain.StatusLogEntry) error {
	status, err := Replay(entries)
	if err != nil {
		return err
	}
	if status != ticket.Status {
		return fmt.Errorf("trail ends at %s but ticket %d is %s", status, ticket.ID, ticket.Status)
	}
	return nil
}
