package entities

import "time"

// AuditLog is append-only.
type AuditLog struct {
	ID         int64                  `json:"id" db:"id"`
	ActorID    *string                `json:"actorId" db:"actor_id"`
	ActionType string                 `json:"actionType" db:"action_type"`
	TargetType string                 `json:"targetType" db:"target_type"`
	TargetID   *string                `json:"targetId" db:"target_id"`
	Details    map[string]interface{} `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time              `json:"createdAt" db:"created_at"`
}

type AuditCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type AuditStats struct {
	ByAction []AuditCount `json:"byAction"`
	ByTarget []AuditCount `json:"byTarget"`
}
