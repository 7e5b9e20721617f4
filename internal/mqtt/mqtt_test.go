package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/axiom-ai/axiom/internal/config"
	"github.com/axiom-ai/axiom/internal/event"
	"github.com/axiom-ai/axiom/pkg/models"
	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/axiom-ai/axiom/pkg/plugin/plugintest"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func TestContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return New() }, nil)
}

// fakeToken is an already-completed pahomqtt.Token.
type fakeToken struct{ err error }

func (t fakeToken) Wait() bool { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

type fakeClient struct {
	mu         sync.Mutex
	connected  bool
	publishErr error
	messages   []published
	opts       *pahomqtt.ClientOptions
}

func (c *fakeClient) Connect() pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return fakeToken{}
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	return fakeToken{err: c.publishErr}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *fakeClient) Messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.messages...)
}

func moduleConfig(settings map[string]any) plugin.Config {
	v := viper.New()
	for k, val := range settings {
		v.Set(k, val)
	}
	return config.New(v)
}

// startModule brings up a module against a real bus and a fake broker.
func startModule(t *testing.T, settings map[string]any) (*Module, *event.Bus, *fakeClient) {
	t.Helper()
	bus := event.NewBus(zap.NewNop())
	fc := &fakeClient{}

	m := New()
	m.newClient = func(o *pahomqtt.ClientOptions) client {
		fc.opts = o
		return fc
	}
	if err := m.Init(context.Background(), plugin.Dependencies{
		Logger: zap.NewNop(),
		Bus:    bus,
		Config: moduleConfig(settings),
	}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m, bus, fc
}

func completedEvent() plugin.Event {
	return plugin.Event{
		Topic:     topicMessageCompleted,
		Source:    "chat",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload: models.ChatMessageEvent{
			UserID:    "u1",
			SessionID: "s1",
			MessageID: "m1",
			Status:    models.MessageStatusComplete,
			Content:   "Paris.",
		},
	}
}

func TestInfo_ReturnsCorrectMetadata(t *testing.T) {
	info := New().Info()
	if info.Name != "mqtt" {
		t.Errorf("Name = %q, want mqtt", info.Name)
	}
	if len(info.Roles) != 1 || info.Roles[0] != "notification" {
		t.Errorf("Roles = %v, want [notification]", info.Roles)
	}
	if info.APIVersion != plugin.APIVersionCurrent {
		t.Errorf("APIVersion = %d, want %d", info.APIVersion, plugin.APIVersionCurrent)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig(nil): %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}

	for name, settings := range map[string]map[string]any{
		"qos too high": {"qos": 3},
		"empty prefix": {"topic_prefix": ""},
		"zero timeout": {"timeout": "0s"},
	} {
		t.Run(name, func(t *testing.T) {
			if err := New().ValidateConfig(moduleConfig(settings)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMqttTopic(t *testing.T) {
	m := &Module{cfg: Config{TopicPrefix: "home/axiom/"}}
	if got := m.mqttTopic("chat.message.completed"); got != "home/axiom/chat/message/completed" {
		t.Errorf("mqttTopic = %q", got)
	}
}

func TestNoBroker_NoOp(t *testing.T) {
	m, bus, fc := startModule(t, nil)

	bus.Publish(context.Background(), completedEvent())

	if fc.opts != nil {
		t.Error("no client should be created without a broker URL")
	}
	if h := m.Health(context.Background()); h.Status != "healthy" {
		t.Errorf("Health = %+v", h)
	}
}

func TestForwardsCompletedMessage(t *testing.T) {
	m, bus, fc := startModule(t, map[string]any{
		"broker_url": "tcp://broker:1883",
		"username":   "axiom",
		"password":   "secret",
		"qos":        0,
	})

	if fc.opts == nil || fc.opts.Username != "axiom" || fc.opts.ClientID != "axiom" {
		t.Fatalf("client options = %+v", fc.opts)
	}
	if h := m.Health(context.Background()); h.Status != "healthy" {
		t.Errorf("Health = %+v", h)
	}

	if err := bus.Publish(context.Background(), completedEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// Pending messages are not forwarded.
	pending := completedEvent()
	pending.Topic = "chat.message.pending"
	_ = bus.Publish(context.Background(), pending)

	msgs := fc.Messages()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].Topic != "axiom/chat/message/completed" || msgs[0].QoS != 0 || msgs[0].Retained {
		t.Errorf("message = %+v", msgs[0])
	}

	var env struct {
		Topic     string                  `json:"topic"`
		Source    string                  `json:"source"`
		Timestamp string                  `json:"timestamp"`
		Payload   models.ChatMessageEvent `json:"payload"`
	}
	if err := json.Unmarshal(msgs[0].Payload, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Source != "chat" || env.Payload.MessageID != "m1" || env.Timestamp != "2026-03-01T12:00:00.000Z" {
		t.Errorf("envelope = %+v", env)
	}
	if env.Payload.Content != "" {
		t.Errorf("content forwarded without include_content: %q", env.Payload.Content)
	}
}

func TestForwardsContentWhenEnabled(t *testing.T) {
	_, bus, fc := startModule(t, map[string]any{
		"broker_url":      "tcp://broker:1883",
		"include_content": true,
	})
	_ = bus.Publish(context.Background(), completedEvent())

	msgs := fc.Messages()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	var env struct {
		Payload models.ChatMessageEvent `json:"payload"`
	}
	if err := json.Unmarshal(msgs[0].Payload, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Payload.Content != "Paris." {
		t.Errorf("content = %q, want Paris.", env.Payload.Content)
	}
}

func TestForwardsToolCalls(t *testing.T) {
	_, bus, fc := startModule(t, map[string]any{"broker_url": "tcp://broker:1883"})

	_ = bus.Publish(context.Background(), plugin.Event{
		Topic:   topicToolCalled,
		Source:  "mcp",
		Payload: map[string]any{"tool": "ask"},
	})

	msgs := fc.Messages()
	if len(msgs) != 1 || msgs[0].Topic != "axiom/mcp/tool/called" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestPublishFailureIsLogged(t *testing.T) {
	_, bus, fc := startModule(t, map[string]any{"broker_url": "tcp://broker:1883"})
	fc.publishErr = errors.New("broker gone")

	// Must not panic or block.
	_ = bus.Publish(context.Background(), completedEvent())
	if len(fc.Messages()) != 1 {
		t.Error("publish should still have been attempted")
	}
}

func TestStop_DisconnectsAndUnsubscribes(t *testing.T) {
	m, bus, fc := startModule(t, map[string]any{"broker_url": "tcp://broker:1883"})

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if fc.IsConnected() {
		t.Error("client still connected after Stop")
	}
	if h := m.Health(context.Background()); h.Status != "degraded" {
		t.Errorf("Health after Stop = %+v", h)
	}

	_ = bus.Publish(context.Background(), completedEvent())
	if n := len(fc.Messages()); n != 0 {
		t.Errorf("published %d messages after Stop", n)
	}
}
