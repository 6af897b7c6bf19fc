package service

import (
	"context"

	"github.com/helpdesk-labs/ticket-service/internal/domain"
	"github.com/helpdesk-labs/ticket-service/internal/repository"
	apperrors "github.com/helpdesk-labs/ticket-service/pkg/util/errorutil"
)

const msgRegularUserAssignee = "Tickets cannot be assigned to regular users"

// AssignmentService decides whether an account may be made responsible for tickets.
type AssignmentService struct {
	store repository.Store
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	Store repository.Store
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{store: deps.Store}
}

// ValidateAssignee returns the candidate account when it exists and holds a
// staff-capable role. It never mutates state.
func (s *AssignmentService) ValidateAssignee(ctx context.Context, candidateID int64) (*domain.Account, error) {
	if candidateID <= 0 {
		return nil, apperrors.NewValidationError("userId is required", nil)
	}
	account, err := s.store.Accounts().GetByID(ctx, candidateID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewValidationError(msgRegularUserAssignee, map[string]any{"user_id": candidateID})
		}
		return nil, apperrors.MapError(err)
	}
	if !account.Role.StaffCapable() {
		return nil, apperrors.NewValidationError(msgRegularUserAssignee, map[string]any{
			"user_id": candidateID,
			"role":    account.Role,
		})
	}
	return account, nil
}
