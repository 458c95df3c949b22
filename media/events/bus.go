package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/leeforge/imageproc/logging"
)

// DefaultBufferSize is the publish buffer used when NewBus is given a non-positive size.
const DefaultBufferSize = 1024

// Bus fans events out to topic subscribers on their own goroutines. Publish blocks only
// when the buffer is full.
type Bus struct {
	subscribers map[string][]subscriberEntry
	mu          sync.RWMutex
	ch          chan envelope
	wg          sync.WaitGroup
	closed      atomic.Bool
	logger      logging.Logger
	nextID      atomic.Uint64
	done        chan struct{} // stops the dispatcher
	stopped     chan struct{} // closed when the dispatcher returns
}

type envelope struct {
	ctx   context.Context
	event Event
}

type subscriberEntry struct {
	id      uint64
	handler Handler
}

type subscription struct {
	bus   *Bus
	topic string
	id    uint64
}

func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	subs := s.bus.subscribers[s.topic]
	for i, entry := range subs {
		if entry.id == s.id {
			s.bus.subscribers[s.topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// NewBus creates a bus with the given buffer size.
func NewBus(bufferSize int, logger logging.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = logging.Named("events")
	}
	bus := &Bus{
		subscribers: make(map[string][]subscriberEntry),
		ch:          make(chan envelope, bufferSize),
		logger:      logger,
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	go bus.dispatch()
	return bus
}

func (b *Bus) dispatch() {
	defer close(b.stopped)
	for {
		select {
		case env := <-b.ch:
			b.fanOut(env)
		case <-b.done:
			// drain what was accepted before Close
			for {
				select {
				case env := <-b.ch:
					b.fanOut(env)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) fanOut(env envelope) {
	b.mu.RLock()
	subs := append([]subscriberEntry{}, b.subscribers[env.event.Name]...)
	b.mu.RUnlock()

	for _, entry := range subs {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			if err := h(env.ctx, env.event); err != nil {
				b.logger.Warn("event handler error",
					zap.String("event", env.event.Name),
					zap.String("request_id", env.event.RequestID),
					zap.Error(err))
			}
		}(entry.handler)
	}
}

// Publish enqueues an event. It blocks while the buffer is full until ctx expires.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// handlers run after Publish returns, so they keep ctx values but not its deadline
	env := envelope{ctx: context.WithoutCancel(ctx), event: event}

	select {
	case b.ch <- env:
		return nil
	default:
		select {
		case b.ch <- env:
			return nil
		case <-ctx.Done():
			return ErrPublishTimeout
		}
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subscribers[topic] = append(b.subscribers[topic], subscriberEntry{
		id:      id,
		handler: handler,
	})

	return &subscription{bus: b, topic: topic, id: id}
}

// Close stops accepting events, drains pending ones and waits for in-flight handlers.
func (b *Bus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	close(b.done)
	<-b.stopped
	b.wg.Wait()
	return nil
}
