package auth

import (
	"github.com/helpdesk-labs/ticket-service/internal/domain"
	apperrors "github.com/helpdesk-labs/ticket-service/pkg/util/errorutil"
)

// Operation names a guarded action.
type Operation string

const (
	OpCreateTicket  Operation = "ticket:create"
	OpListTickets   Operation = "ticket:list"
	OpAssignTicket  Operation = "ticket:assign"
	OpChangeStatus  Operation = "ticket:change_status"
	OpDeleteTicket  Operation = "ticket:delete"
	OpViewHistory   Operation = "ticket:view_history"
	OpAddComment    Operation = "comment:add"
	OpListComments  Operation = "comment:list"
	OpEditComment   Operation = "comment:edit"
	OpDeleteComment Operation = "comment:delete"
	OpManageUsers   Operation = "user:manage"
)

// Decision is the outcome of a policy evaluation.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

// ResourceFacts carries the relations between the actor and the resource being acted on.
type ResourceFacts struct {
	Owner    bool
	Assignee bool
	Author   bool
}

// TicketFacts derives ownership and assignment facts for actor on ticket.
func TicketFacts(actor *domain.Actor, ticket *domain.Ticket) ResourceFacts {
	if actor == nil || ticket == nil {
		return ResourceFacts{}
	}
	return ResourceFacts{
		Owner:    ticket.IsOwnedBy(actor.ID),
		Assignee: ticket.IsAssignedTo(actor.ID),
	}
}

// CommentFacts derives authorship facts for actor on comment.
func CommentFacts(actor *domain.Actor, comment *domain.Comment) ResourceFacts {
	if actor == nil || comment == nil {
		return ResourceFacts{}
	}
	return ResourceFacts{Author: comment.IsAuthoredBy(actor.ID)}
}

// rule grants an operation to a set of roles, or to any role holding one of the relations.
type rule struct {
	roles    []domain.Role
	owner    bool
	assignee bool
	author   bool
	message  string
}

var allRoles = []domain.Role{domain.RoleUser, domain.RoleSupport, domain.RoleManager}

var defaultPolicy = map[Operation]rule{
	OpCreateTicket:  {roles: []domain.Role{domain.RoleUser, domain.RoleManager}, message: "insufficient role to create tickets"},
	OpListTickets:   {roles: allRoles, message: "unknown role"},
	OpAssignTicket:  {roles: []domain.Role{domain.RoleManager, domain.RoleSupport}, message: "insufficient role to assign tickets"},
	OpChangeStatus:  {roles: []domain.Role{domain.RoleManager, domain.RoleSupport}, message: "insufficient role to change status"},
	OpDeleteTicket:  {roles: []domain.Role{domain.RoleManager}, message: "insufficient role to delete tickets"},
	OpViewHistory:   {roles: []domain.Role{domain.RoleManager}, owner: true, assignee: true, message: "not authorized to view history for this ticket"},
	OpAddComment:    {roles: []domain.Role{domain.RoleManager}, owner: true, assignee: true, message: "not authorized to comment on this ticket"},
	OpListComments:  {roles: []domain.Role{domain.RoleManager}, owner: true, assignee: true, message: "not authorized to view comments for this ticket"},
	OpEditComment:   {roles: []domain.Role{domain.RoleManager}, author: true, message: "not the author and not a MANAGER"},
	OpDeleteComment: {roles: []domain.Role{domain.RoleManager}, author: true, message: "not the author and not a MANAGER"},
	OpManageUsers:   {roles: []domain.Role{domain.RoleManager}, message: "insufficient role to manage users"},
}

// Engine evaluates the policy table. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	policy map[Operation]rule
}

// NewEngine returns an engine loaded with the service policy.
func NewEngine() *Engine {
	return &Engine{policy: defaultPolicy}
}

// Decide returns the decision for actor performing op on a resource described by facts.
// Relation grants apply only to actors holding a known role.
func (e *Engine) Decide(actor *domain.Actor, op Operation, facts ResourceFacts) Decision {
	if actor == nil || actor.ID == 0 {
		return DenyUnauthenticated
	}
	r, ok := e.policy[op]
	if !ok || !actor.Role.Valid() {
		return DenyForbidden
	}
	for _, role := range r.roles {
		if actor.Role == role {
			return Allow
		}
	}
	if (r.owner && facts.Owner) || (r.assignee && facts.Assignee) || (r.author && facts.Author) {
		return Allow
	}
	return DenyForbidden
}

// Authorize is Decide mapped onto the error taxonomy.
func (e *Engine) Authorize(actor *domain.Actor, op Operation, facts ResourceFacts) error {
	switch e.Decide(actor, op, facts) {
	case Allow:
		return nil
	case DenyUnauthenticated:
		return apperrors.NewUnauthenticated("missing or invalid token")
	default:
		message := "forbidden"
		if r, ok := e.policy[op]; ok && r.message != "" {
			message = "forbidden: " + r.message
		}
		return apperrors.NewForbidden(message)
	}
}
