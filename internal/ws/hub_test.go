package ws

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestClient(userID string) *Client {
	return &Client{
		conn:   nil, // Not needed for hub tests
		userID: userID,
		send:   make(chan Message, 256),
		logger: testLogger(),
	}
}

func registered(h *Hub, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[c.userID][c]
	return ok
}

// TestRegister verifies that Register adds a client and increments ClientCount.
func TestRegister(t *testing.T) {
	hub := NewHub(testLogger())
	if hub.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	client := newTestClient("user-1")
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
	if !registered(hub, client) {
		t.Error("client not found in hub")
	}
}

// TestRegisterSameUserTwice covers a user with two open tabs.
func TestRegisterSameUserTwice(t *testing.T) {
	hub := NewHub(testLogger())
	a, b := newTestClient("user-1"), newTestClient("user-1")
	hub.Register(a)
	hub.Register(b)

	if hub.ClientCount() != 2 {
		t.Errorf("ClientCount() = %d, want 2", hub.ClientCount())
	}

	hub.Unregister(a)
	if !registered(hub, b) {
		t.Error("unregistering one tab removed the other")
	}
}

// TestUnregister verifies that Unregister removes a client and closes its send channel.
func TestUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("user-1")

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
	if registered(hub, client) {
		t.Error("client still in hub after unregister")
	}
	if _, ok := <-client.send; ok {
		t.Error("client.send channel is not closed")
	}

	// A second Unregister must not close the channel again.
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Unregister() panicked: %v", r)
		}
	}()
	hub.Unregister(client)
}

// TestUnregisterNotRegistered verifies that Unregister on an unknown client does nothing.
func TestUnregisterNotRegistered(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("user-1")

	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		if !ok {
			t.Error("channel closed for unregistered client")
		}
	default:
	}
}

// TestSendToUser verifies that only the owner's connections receive a message.
func TestSendToUser(t *testing.T) {
	hub := NewHub(testLogger())

	aliceTab1 := newTestClient("alice")
	aliceTab2 := newTestClient("alice")
	bob := newTestClient("bob")
	for _, c := range []*Client{aliceTab1, aliceTab2, bob} {
		hub.Register(c)
	}

	hub.SendToUser("alice", Message{
		Type:      MessageCompleted,
		SessionID: "sess-1",
		MessageID: "msg-1",
		Timestamp: time.Now(),
		Data:      MessageData{Status: "complete", Content: "Answer."},
	})

	for i, c := range []*Client{aliceTab1, aliceTab2} {
		select {
		case got := <-c.send:
			if got.Type != MessageCompleted || got.MessageID != "msg-1" {
				t.Errorf("tab %d received %+v", i+1, got)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("tab %d did not receive message", i+1)
		}
	}

	select {
	case got := <-bob.send:
		t.Errorf("bob received another user's message: %+v", got)
	default:
	}
}

// TestSendToUserUnknown verifies that sending to a user with no connections is a no-op.
func TestSendToUserUnknown(t *testing.T) {
	hub := NewHub(testLogger())
	hub.SendToUser("nobody", Message{Type: MessagePending})
}

// TestSendDropsMessagesWhenBufferFull verifies that a slow client loses messages instead of blocking.
func TestSendDropsMessagesWhenBufferFull(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("user-1")
	hub.Register(client)

	for i := 0; i < cap(client.send); i++ {
		client.send <- Message{Type: MessagePending, MessageID: "fill"}
	}

	done := make(chan struct{})
	go func() {
		hub.SendToUser("user-1", Message{Type: MessageCompleted, MessageID: "dropped"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendToUser blocked on a full buffer")
	}

	if len(client.send) != cap(client.send) {
		t.Errorf("buffer length = %d, want %d", len(client.send), cap(client.send))
	}
	if got := <-client.send; got.MessageID == "dropped" {
		t.Error("dropped message was unexpectedly received")
	}
}

// TestConcurrentRegisterUnregisterSend verifies that concurrent operations are safe.
func TestConcurrentRegisterUnregisterSend(t *testing.T) {
	hub := NewHub(testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := newTestClient("user-1")
			hub.Register(c)
			hub.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			hub.SendToUser("user-1", Message{Type: MessagePending})
			_ = hub.ClientCount()
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}
