package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/imageproc/logging"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBus_PublishAndSubscribe(t *testing.T) {
	bus := NewBus(16, logging.Nop())
	defer bus.Close()

	got := make(chan Event, 1)
	bus.Subscribe(TopicProcessed, func(ctx context.Context, e Event) error {
		got <- e
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), Event{Name: TopicProcessed, Target: "hero"}))

	e := recv(t, got)
	assert.Equal(t, "hero", e.Target)
	assert.False(t, e.Timestamp.IsZero())
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus(16, logging.Nop())

	var count atomic.Int32
	for i := 0; i < 2; i++ {
		bus.Subscribe("evt", func(ctx context.Context, e Event) error {
			count.Add(1)
			return nil
		})
	}

	require.NoError(t, bus.Publish(context.Background(), Event{Name: "evt"}))
	require.NoError(t, bus.Close())
	assert.Equal(t, int32(2), count.Load())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(16, logging.Nop())

	var count atomic.Int32
	got := make(chan Event, 1)
	sub := bus.Subscribe("evt", func(ctx context.Context, e Event) error {
		count.Add(1)
		got <- e
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), Event{Name: "evt"}))
	recv(t, got)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), Event{Name: "evt"}))
	require.NoError(t, bus.Close())
	assert.Equal(t, int32(1), count.Load())
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus(16, logging.Nop())
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), Event{Name: "evt"})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBus_CloseWaitsForInFlight(t *testing.T) {
	bus := NewBus(16, logging.Nop())

	var finished atomic.Bool
	bus.Subscribe("slow", func(ctx context.Context, e Event) error {
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), Event{Name: "slow"}))
	require.NoError(t, bus.Close())
	assert.True(t, finished.Load(), "Close returned before the handler completed")
}

func TestBus_HandlerErrorIsLogged(t *testing.T) {
	bus := NewBus(16, logging.Nop())

	var calls atomic.Int32
	bus.Subscribe("evt", func(ctx context.Context, e Event) error {
		calls.Add(1)
		return errors.New("boom")
	})
	require.NoError(t, bus.Publish(context.Background(), Event{Name: "evt"}))
	require.NoError(t, bus.Close())
	assert.Equal(t, int32(1), calls.Load())
}

func TestBus_Backpressure(t *testing.T) {
	bus := NewBus(1, logging.Nop())
	release := make(chan struct{})
	defer func() {
		close(release)
		bus.Close()
	}()

	bus.Subscribe("fill", func(ctx context.Context, e Event) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// the dispatcher may take one event off the buffer; after that it keeps going
	// because handlers run on their own goroutines, so fill until the deadline
	var err error
	for i := 0; i < 10000 && err == nil; i++ {
		err = bus.Publish(ctx, Event{Name: "fill"})
	}
	if err != nil {
		assert.ErrorIs(t, err, ErrPublishTimeout)
	}
}

func TestBus_HandlerContextOutlivesPublish(t *testing.T) {
	bus := NewBus(16, logging.Nop())
	defer bus.Close()

	got := make(chan error, 1)
	bus.Subscribe("evt", func(ctx context.Context, e Event) error {
		got <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, Event{Name: "evt"}))
	cancel()

	select {
	case err := <-got:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}
