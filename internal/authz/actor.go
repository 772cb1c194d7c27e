package authz

import "crm-system/pkg/constants"

// Actor is the authenticated identity behind an operation.
type Actor struct {
	ID          string
	Role        constants.Role
	AssistantID *string
}

func (a Actor) IsPrivileged() bool {
	return a.Role.IsPrivileged()
}
