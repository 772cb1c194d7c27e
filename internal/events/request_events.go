package events

import (
	"time"

	"crm-system/internal/entities"
	"crm-system/pkg/constants"
)

const (
	RequestChangedName = "request.changed"
	AuditRecordedName  = "audit.recorded"
)

type RequestChangeKind string

const (
	RequestCreated RequestChangeKind = "created"
	RequestMoved   RequestChangeKind = "moved"
	RequestUpdated RequestChangeKind = "updated"
	RequestDeleted RequestChangeKind = "deleted"
)

// RequestChangedEvent is published after a request mutation commits.
type RequestChangedEvent struct {
	Kind       RequestChangeKind
	Request    entities.Request
	FromStatus *constants.RequestStatus
	ActorID    string
	At         time.Time
}

func (e RequestChangedEvent) Name() string {
	return RequestChangedName
}

// AuditEvent asks the audit listener to append an entry.
type AuditEvent struct {
	ActorID    string
	ActionType string
	TargetType string
	TargetID   string
	Details    map[string]interface{}
	At         time.Time
}

func (e AuditEvent) Name() string {
	return AuditRecordedName
}
