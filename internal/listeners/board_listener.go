package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"crm-system/internal/events"
	"crm-system/internal/repositories"
	"crm-system/pkg/eventbus"
	"crm-system/pkg/websocket"
)

// Deliverer is the part of the websocket hub the board listener needs.
type Deliverer interface {
	Deliver(messageType string, payload interface{}, match func(*websocket.Client) bool) error
}

// BoardListener pushes card changes to everyone whose board shows the request:
// its creator and assignee, their team leads, and every connected ADMIN/MANAGER.
type BoardListener struct {
	hub      Deliverer
	userRepo repositories.UserRepositoryInterface
	logger   *zap.Logger
}

func NewBoardListener(hub Deliverer, userRepo repositories.UserRepositoryInterface, logger *zap.Logger) *BoardListener {
	return &BoardListener{hub: hub, userRepo: userRepo, logger: logger}
}

func (l *BoardListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.RequestChangedName, l.handle)
	l.logger.Info("BoardListener subscribed", zap.String("event", events.RequestChangedName))
}

var messageTypes = map[events.RequestChangeKind]string{
	events.RequestCreated: websocket.MessageRequestCreated,
	events.RequestMoved:   websocket.MessageRequestMoved,
	events.RequestUpdated: websocket.MessageRequestUpdated,
	events.RequestDeleted: websocket.MessageRequestDeleted,
}

func (l *BoardListener) handle(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.RequestChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	messageType, ok := messageTypes[e.Kind]
	if !ok {
		return fmt.Errorf("unknown request change %q", e.Kind)
	}

	payload := websocket.BoardPayload{
		RequestID: e.Request.ID,
		ToStatus:  string(e.Request.CurrentStatus),
		ActorID:   e.ActorID,
	}
	if e.FromStatus != nil {
		from := string(*e.FromStatus)
		payload.FromStatus = &from
	}
	if actor, err := l.userRepo.FindByID(ctx, e.ActorID); err == nil {
		payload.ActorName = actor.FullName
	}

	recipients := l.recipients(ctx, e)
	return l.hub.Deliver(messageType, payload, func(c *websocket.Client) bool {
		return c.Role.IsPrivileged() || recipients[c.UserID]
	})
}

func (l *BoardListener) recipients(ctx context.Context, e events.RequestChangedEvent) map[string]bool {
	ids := map[string]bool{e.Request.CreatedByID: true}
	if e.Request.AssignedToID != nil {
		ids[*e.Request.AssignedToID] = true
	}

	for id := range copyKeys(ids) {
		user, err := l.userRepo.FindByID(ctx, id)
		if err != nil {
			l.logger.Debug("board recipient lookup failed", zap.String("userID", id), zap.Error(err))
			continue
		}
		if user.AssistantID != nil {
			ids[*user.AssistantID] = true
		}
	}
	return ids
}

func copyKeys(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}
