package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type pingEvent struct{}

func (pingEvent) Name() string { return "ping" }

func TestPublishDeliversToAllListeners(t *testing.T) {
	bus := New(zap.NewNop())
	var calls atomic.Int32

	bus.Subscribe("ping", func(ctx context.Context, e Event) error {
		calls.Add(1)
		return nil
	})
	bus.Subscribe("ping", func(ctx context.Context, e Event) error {
		calls.Add(1)
		return errors.New("listener failure is only logged")
	})
	bus.Subscribe("pong", func(ctx context.Context, e Event) error {
		calls.Add(100)
		return nil
	})

	bus.Publish(context.Background(), pingEvent{})
	bus.Wait()

	assert.Equal(t, int32(2), calls.Load())
}

func TestPublishSurvivesPanickingListener(t *testing.T) {
	bus := New(zap.NewNop())
	var calls atomic.Int32
	bus.Subscribe("ping", func(ctx context.Context, e Event) error { panic("boom") })
	bus.Subscribe("ping", func(ctx context.Context, e Event) error {
		calls.Add(1)
		return nil
	})

	bus.Publish(context.Background(), pingEvent{})
	bus.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
