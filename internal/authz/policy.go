package authz

import (
	"crm-system/internal/entities"
	apperrors "crm-system/pkg/errors"
)

type Action string

const (
	ActionView       Action = "view"
	ActionUpdate     Action = "update"
	ActionTransition Action = "transition"
	ActionDelete     Action = "delete"
)

// Policy is the single place where per-entity access is decided. It has no state.
type Policy struct{}

func NewPolicy() *Policy {
	return &Policy{}
}

// CanView: ADMIN and MANAGER see everything; others only what they created
// or, for requests, what is assigned to them.
func (p *Policy) CanView(actor Actor, target interface{}) bool {
	if actor.IsPrivileged() {
		return true
	}
	return p.owns(actor, target)
}

func (p *Policy) CanMutate(actor Actor, target interface{}) bool {
	return p.CanView(actor, target)
}

// CanDelete is privileged-only for every entity.
func (p *Policy) CanDelete(actor Actor, _ interface{}) bool {
	return actor.IsPrivileged()
}

// Authorize returns a Forbidden error when actor may not perform action on target.
func (p *Policy) Authorize(actor Actor, action Action, target interface{}) error {
	var allowed bool
	switch action {
	case ActionView:
		allowed = p.CanView(actor, target)
	case ActionUpdate, ActionTransition:
		allowed = p.CanMutate(actor, target)
	case ActionDelete:
		allowed = p.CanDelete(actor, target)
	}
	if allowed {
		return nil
	}
	return apperrors.NewForbidden("not allowed to %s this %s", action, targetName(target))
}

func (p *Policy) owns(actor Actor, target interface{}) bool {
	switch t := target.(type) {
	case *entities.Request:
		return t.CreatedByID == actor.ID || (t.AssignedToID != nil && *t.AssignedToID == actor.ID)
	case *entities.RequestView:
		return p.owns(actor, &t.Request)
	case *entities.Client:
		return t.CreatedByID == actor.ID
	}
	return false
}

// ListScope is the filter used for plain listings: the single-entity rule.
func (p *Policy) ListScope(actor Actor) Scope {
	if actor.IsPrivileged() {
		return Scope{All: true}
	}
	return Scope{UserIDs: []string{actor.ID}}
}

// AggregatedScope is the filter used by the kanban board and statistics.
// team holds the ids of users whose assistantId points at the actor. Team
// members widen a scope and never narrow it: ADMIN and MANAGER already see
// everything, so only AGENT and VIEWER leads gain from their team.
func (p *Policy) AggregatedScope(actor Actor, team []string) Scope {
	if actor.IsPrivileged() {
		return Scope{All: true}
	}
	ids := make([]string, 0, len(team)+1)
	ids = append(ids, actor.ID)
	for _, id := range team {
		if id != actor.ID {
			ids = append(ids, id)
		}
	}
	return Scope{UserIDs: ids}
}

func targetName(target interface{}) string {
	switch target.(type) {
	case *entities.Request, *entities.RequestView:
		return "request"
	case *entities.Client:
		return "client"
	}
	return "resource"
}
