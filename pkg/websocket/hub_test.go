package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crm-system/pkg/constants"
)

func connectedUsers(h *Hub) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients)
}

func TestHubDeliversToMatchingClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	agent := NewClient(hub, nil, "agent-1", constants.RoleAgent)
	admin := NewClient(hub, nil, "admin-1", constants.RoleAdmin)
	hub.Register(agent)
	hub.Register(admin)

	require.Eventually(t, func() bool { return connectedUsers(hub) == 2 }, time.Second, 10*time.Millisecond)

	err := hub.Deliver(MessageRequestMoved, BoardPayload{RequestID: "r1", ToStatus: "SOLD"},
		func(c *Client) bool { return c.UserID == "agent-1" })
	require.NoError(t, err)

	select {
	case raw := <-agent.Send:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, MessageRequestMoved, env.Type)
	case <-time.After(time.Second):
		t.Fatal("agent did not receive the message")
	}
	assert.Len(t, admin.Send, 0)

	hub.Unregister(agent)
	require.Eventually(t, func() bool { return connectedUsers(hub) == 1 }, time.Second, 10*time.Millisecond)
	_, open := <-agent.Send
	assert.False(t, open)
}

func TestHubRegistrationAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	live := NewClient(hub, nil, "agent-1", constants.RoleAgent)
	hub.Register(live)
	require.Eventually(t, func() bool { return connectedUsers(hub) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-stopped

	done := make(chan struct{})
	late := NewClient(hub, nil, "agent-2", constants.RoleAgent)
	go func() {
		hub.Unregister(live)
		hub.Register(late)
		hub.Unregister(late)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after shutdown")
	}

	_, open := <-live.Send
	assert.False(t, open)
	_, open = <-late.Send
	assert.False(t, open, "late clients are closed so their pumps exit")
	assert.Zero(t, connectedUsers(hub))
}
