package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/axiom-ai/axiom/pkg/plugin"
	"go.uber.org/zap/zaptest"
)

func TestPublish_ExactTopic(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	var got []string
	bus.Subscribe("chat.message.pending", func(_ context.Context, e plugin.Event) {
		got = append(got, e.Topic)
	})
	bus.Subscribe("chat.session.deleted", func(_ context.Context, e plugin.Event) {
		t.Errorf("unexpected delivery of %s", e.Topic)
	})

	_ = bus.Publish(context.Background(), plugin.Event{Topic: "chat.message.pending"})

	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(got))
	}
}

func TestPublish_PrefixPattern(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	var topics []string
	bus.Subscribe("chat.message.*", func(_ context.Context, e plugin.Event) {
		topics = append(topics, e.Topic)
	})

	ctx := context.Background()
	_ = bus.Publish(ctx, plugin.Event{Topic: "chat.message.pending"})
	_ = bus.Publish(ctx, plugin.Event{Topic: "chat.message.completed"})
	_ = bus.Publish(ctx, plugin.Event{Topic: "chat.session.deleted"})

	if len(topics) != 2 {
		t.Errorf("topics = %v, want the two message events", topics)
	}
}

func TestPublish_StampsTimestamp(t *testing.T) {
	bus := NewBus(nil)
	var ts time.Time
	bus.SubscribeAll(func(_ context.Context, e plugin.Event) { ts = e.Timestamp })

	_ = bus.Publish(context.Background(), plugin.Event{Topic: "x"})
	if ts.IsZero() {
		t.Error("Publish should stamp a zero timestamp")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))
	var n int
	unsub := bus.Subscribe("t", func(context.Context, plugin.Event) { n++ })
	unsubAll := bus.SubscribeAll(func(context.Context, plugin.Event) { n++ })

	_ = bus.Publish(context.Background(), plugin.Event{Topic: "t"})
	unsub()
	unsubAll()
	_ = bus.Publish(context.Background(), plugin.Event{Topic: "t"})

	if n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestPublishAsync_Drain(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))
	var n atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("work", func(context.Context, plugin.Event) {
			time.Sleep(10 * time.Millisecond)
			n.Add(1)
		})
	}

	bus.PublishAsync(context.Background(), plugin.Event{Topic: "work"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bus.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n.Load() != 3 {
		t.Errorf("handled = %d, want 3", n.Load())
	}
}

func TestPanicIsolated(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))
	var mu sync.Mutex
	called := false
	bus.Subscribe("boom", func(context.Context, plugin.Event) { panic("handler bug") })
	bus.Subscribe("boom", func(context.Context, plugin.Event) {
		mu.Lock()
		called = true
		mu.Unlock()
	})

	if err := bus.Publish(context.Background(), plugin.Event{Topic: "boom"}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("second handler not called after first panicked")
	}
}
