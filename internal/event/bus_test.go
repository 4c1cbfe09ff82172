package event

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus(8)
	defer bus.Shutdown()

	received := make(chan Event, 2)
	bus.Subscribe("post.created", func(ctx context.Context, e Event) error {
		received <- e
		return nil
	})
	bus.Subscribe("post.created", func(ctx context.Context, e Event) error {
		received <- e
		return nil
	})

	bus.Publish(Event{Type: "post.created", Data: 42})

	for i := 0; i < 2; i++ {
		select {
		case e := <-received:
			assert.Equal(t, 42, e.Data)
			assert.False(t, e.Timestamp.IsZero())
		case <-time.After(2 * time.Second):
			t.Fatal("event was not delivered")
		}
	}
}

func TestBus_PublishSyncIgnoresOtherTypes(t *testing.T) {
	bus := NewBus(1)
	defer bus.Shutdown()

	var calls atomic.Int32
	bus.Subscribe("user.created", func(ctx context.Context, e Event) error {
		calls.Add(1)
		return errors.New("handler errors are logged, not returned")
	})

	require.NoError(t, bus.PublishSync(context.Background(), Event{Type: "post.deleted"}))
	require.NoError(t, bus.PublishSync(context.Background(), Event{Type: "user.created"}))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, bus.GetSubscriberCount("user.created"))
	assert.Equal(t, 0, bus.GetSubscriberCount("post.deleted"))
}

func TestBus_PublishAfterShutdownIsNoop(t *testing.T) {
	bus := NewBus(1)
	bus.Shutdown()
	bus.Shutdown()

	assert.NotPanics(t, func() {
		bus.Publish(Event{Type: "post.created"})
	})
}
