// Package bus implements the event fan-out: a bounded, lossy-on-overflow
// queue per subscriber with a mutex-guarded subscriber set. Emit never
// blocks the caller; slow subscribers drop their own oldest events rather
// than stalling the emitter or other subscribers.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/skywatch/drone-ops/pkg/types"
)

// QueueCapacity bounds each subscriber's pending-event queue.
const QueueCapacity = 500

// Bus fans typed events out to registered subscribers.
type Bus struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	queue chan types.Event
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[*subscriber]struct{})}
}

// Emit wraps payload in a typed, timestamped envelope and delivers it to
// every current subscriber. Delivery is non-blocking: on a full queue, the
// oldest pending event is dropped and the new one retried once; if the
// queue is still full (a concurrent send refilled it) the new event is
// dropped instead of blocking.
func (b *Bus) Emit(eventType types.EventType, payload map[string]any) {
	event := types.Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.send(event)
	}
}

func (s *subscriber) send(event types.Event) {
	select {
	case s.queue <- event:
		return
	default:
	}

	select {
	case <-s.queue:
	default:
	}

	select {
	case s.queue <- event:
	default:
	}
}

// Stream registers a new subscriber and returns a channel of events for the
// caller to range over, along with a cancel function that MUST be called on
// every exit path to deregister the subscriber. Whenever no event arrives
// within keepaliveInterval, a synthetic EventKeepalive is delivered so the
// caller's transport (SSE) can detect a still-alive connection.
func (b *Bus) Stream(ctx context.Context, keepaliveInterval time.Duration) (<-chan types.Event, func()) {
	sub := &subscriber{queue: make(chan types.Event, QueueCapacity)}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	out := make(chan types.Event)
	done := make(chan struct{})

	cancel := func() {
		b.mu.Lock()
		delete(b.subscribers, sub)
		b.mu.Unlock()
		select {
		case <-done:
		default:
			close(done)
		}
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case event := <-sub.queue:
				ticker.Reset(keepaliveInterval)
				select {
				case out <- event:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			case <-ticker.C:
				keepalive := types.Event{Type: types.EventKeepalive, Timestamp: time.Now().UTC()}
				select {
				case out <- keepalive:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	return out, cancel
}

// SubscriberCount reports the number of currently registered subscribers,
// for diagnostics.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
