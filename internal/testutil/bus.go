package testutil

import (
	"context"
	"sync"

	"github.com/axiom-ai/axiom/pkg/plugin"
)

// MockBus is a plugin.EventBus that records every published event and
// delivers nothing. PublishAsync records synchronously.
type MockBus struct {
	mu     sync.Mutex
	events []plugin.Event
}

var _ plugin.EventBus = (*MockBus)(nil)

// NewMockBus returns an empty MockBus.
func NewMockBus() *MockBus {
	return &MockBus{}
}

func (b *MockBus) Publish(_ context.Context, e plugin.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *MockBus) PublishAsync(ctx context.Context, e plugin.Event) {
	_ = b.Publish(ctx, e)
}

func (b *MockBus) Subscribe(string, plugin.EventHandler) func() { return func() {} }

func (b *MockBus) SubscribeAll(plugin.EventHandler) func() { return func() {} }

// Events returns a copy of the recorded events in publish order.
func (b *MockBus) Events() []plugin.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]plugin.Event(nil), b.events...)
}
