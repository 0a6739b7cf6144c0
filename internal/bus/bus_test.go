package bus

import (
	"context"
	"testing"
	"time"

	"github.com/skywatch/drone-ops/pkg/types"
)

func TestEmit_DeliversToSubscriber(t *testing.T) {
	b := New()
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	events, cancel := b.Stream(ctx, time.Minute)
	defer cancel()

	b.Emit(types.EventDetection, map[string]any{"id": 1})

	select {
	case ev := <-events:
		if ev.Type != types.EventDetection {
			t.Fatalf("expected detection event, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for emitted event")
	}
}

func TestEmit_DropsOldestOnFullQueue(t *testing.T) {
	b := New()
	sub := &subscriber{queue: make(chan types.Event, 2)}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	b.Emit(types.EventDetection, map[string]any{"seq": 1})
	b.Emit(types.EventDetection, map[string]any{"seq": 2})
	b.Emit(types.EventDetection, map[string]any{"seq": 3})

	first := <-sub.queue
	second := <-sub.queue
	if first.Payload["seq"] != 2 || second.Payload["seq"] != 3 {
		t.Fatalf("expected the oldest event to be dropped, got seq=%v then seq=%v", first.Payload["seq"], second.Payload["seq"])
	}
}

func TestStream_CancelDeregisters(t *testing.T) {
	b := New()
	ctx := context.Background()

	_, cancel := b.Stream(ctx, time.Minute)
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber after Stream, got %d", b.SubscriberCount())
	}
	cancel()
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after cancel, got %d", b.SubscriberCount())
	}
}

func TestStream_KeepaliveOnIdle(t *testing.T) {
	b := New()
	events, cancel := b.Stream(context.Background(), 20*time.Millisecond)
	defer cancel()

	select {
	case ev := <-events:
		if ev.Type != types.EventKeepalive {
			t.Fatalf("expected a keepalive on an idle subscriber, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for keepalive")
	}
}

func TestStream_ContextCancelStopsDelivery(t *testing.T) {
	b := New()
	ctx, cancelCtx := context.WithCancel(context.Background())
	events, cancel := b.Stream(ctx, time.Minute)
	defer cancel()

	cancelCtx()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected the output channel to close on context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
