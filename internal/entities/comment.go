package entities

import "time"

// Comment belongs to exactly one of a request or a client.
type Comment struct {
	ID         string    `json:"id" db:"id"`
	RequestID  *string   `json:"requestId" db:"request_id"`
	ClientID   *string   `json:"clientId" db:"client_id"`
	AuthorID   string    `json:"authorId" db:"author_id"`
	AuthorName string    `json:"authorName,omitempty" db:"-"`
	Body       string    `json:"body" db:"body"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// OwnerKind names the entity a comment or attachment hangs off.
type OwnerKind string

const (
	OwnerRequest OwnerKind = "request"
	OwnerClient  OwnerKind = "client"
)

func (k OwnerKind) IsValid() bool {
	return k == OwnerRequest || k == OwnerClient
}
