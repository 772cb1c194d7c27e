package websocket

import "time"

// Envelope is the frame written to every socket.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	MessageRequestCreated = "request.created"
	MessageRequestMoved   = "request.moved"
	MessageRequestUpdated = "request.updated"
	MessageRequestDeleted = "request.deleted"
)

// BoardPayload describes a card change on the kanban board.
type BoardPayload struct {
	RequestID  string  `json:"requestId"`
	FromStatus *string `json:"fromStatus,omitempty"`
	ToStatus   string  `json:"toStatus,omitempty"`
	ActorID    string  `json:"actorId"`
	ActorName  string  `json:"actorName,omitempty"`
}
