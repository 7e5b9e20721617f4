// Package mqtt forwards selected bus events to an MQTT broker so home
// automation or dashboards can react to finished answers.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/axiom-ai/axiom/pkg/models"
	"github.com/axiom-ai/axiom/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.Validator     = (*Module)(nil)
)

// Forwarded bus topics.
const (
	topicMessageCompleted = "chat.message.completed"
	topicToolCalled       = "mcp.tool.called"
)

// client is the subset of pahomqtt.Client the module uses.
type client interface {
	Connect() pahomqtt.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Module implements the MQTT publisher module.
type Module struct {
	logger      *zap.Logger
	cfg         Config
	mu          sync.RWMutex
	client      client
	newClient   func(*pahomqtt.ClientOptions) client
	unsubscribe []func()
}

// New creates a new MQTT publisher module instance.
func New() *Module {
	return &Module{
		newClient: func(o *pahomqtt.ClientOptions) client { return pahomqtt.NewClient(o) },
	}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "mqtt",
		Version:     "0.3.0",
		Description: "Publishes completed answers and MCP tool calls to an MQTT broker",
		Roles:       []string{"notification"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig(cfg plugin.Config) error {
	_, err := LoadConfig(cfg)
	return err
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}

	cfg, err := LoadConfig(deps.Config)
	if err != nil {
		return err
	}
	m.cfg = cfg

	if m.cfg.BrokerURL == "" {
		m.logger.Info("mqtt broker not configured; events will not be forwarded")
		return nil
	}

	if deps.Bus != nil {
		for _, topic := range []string{topicMessageCompleted, topicToolCalled} {
			m.unsubscribe = append(m.unsubscribe, deps.Bus.Subscribe(topic, m.publishEvent))
		}
	}

	m.logger.Info("mqtt module initialized",
		zap.String("broker_url", m.cfg.BrokerURL),
		zap.String("client_id", m.cfg.ClientID),
		zap.String("topic_prefix", m.cfg.TopicPrefix),
		zap.Uint8("qos", m.cfg.QoS),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	if m.cfg.BrokerURL == "" {
		return nil
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(m.cfg.BrokerURL).
		SetClientID(m.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(m.cfg.Timeout)
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password)
	}

	c := m.newClient(opts)
	m.mu.Lock()
	m.client = c
	m.mu.Unlock()

	token := c.Connect()
	switch {
	case !token.WaitTimeout(m.cfg.Timeout):
		m.logger.Warn("mqtt connection timed out; will reconnect in background")
	case token.Error() != nil:
		m.logger.Warn("mqtt connection failed; will reconnect in background", zap.Error(token.Error()))
	default:
		m.logger.Info("mqtt connected to broker", zap.String("broker_url", m.cfg.BrokerURL))
	}
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
		m.logger.Info("mqtt disconnected")
	}
	m.client = nil
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	if m.cfg.BrokerURL == "" {
		return plugin.HealthStatus{Status: "healthy", Message: "no broker configured (no-op mode)"}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil || !m.client.IsConnected() {
		return plugin.HealthStatus{Status: "degraded", Message: "not connected to MQTT broker"}
	}
	return plugin.HealthStatus{Status: "healthy", Message: "connected to " + m.cfg.BrokerURL}
}

// mqttTopic maps a bus topic to an MQTT topic: "chat.message.completed"
// becomes "<prefix>/chat/message/completed".
func (m *Module) mqttTopic(eventTopic string) string {
	return strings.TrimSuffix(m.cfg.TopicPrefix, "/") + "/" + strings.ReplaceAll(eventTopic, ".", "/")
}

func (m *Module) publishEvent(_ context.Context, event plugin.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.client == nil || !m.client.IsConnected() {
		return
	}

	payload, err := m.encode(event)
	if err != nil {
		m.logger.Warn("failed to marshal MQTT payload", zap.String("topic", event.Topic), zap.Error(err))
		return
	}

	topic := m.mqttTopic(event.Topic)
	token := m.client.Publish(topic, m.cfg.QoS, m.cfg.Retain, payload)
	if !token.WaitTimeout(m.cfg.Timeout) {
		m.logger.Warn("mqtt publish timed out", zap.String("mqtt_topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		m.logger.Warn("mqtt publish failed", zap.String("mqtt_topic", topic), zap.Error(err))
		return
	}
	m.logger.Debug("mqtt event published", zap.String("mqtt_topic", topic), zap.String("event_topic", event.Topic))
}

// envelope is the JSON document published for every event.
type envelope struct {
	Topic     string `json:"topic"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Payload   any    `json:"payload"`
}

var errNoPayload = errors.New("event has no payload")

func (m *Module) encode(event plugin.Event) ([]byte, error) {
	if event.Payload == nil {
		return nil, errNoPayload
	}
	payload := event.Payload
	if msg, ok := payload.(models.ChatMessageEvent); ok && !m.cfg.IncludeContent {
		msg.Content = ""
		payload = msg
	}
	return json.Marshal(envelope{
		Topic:     event.Topic,
		Source:    event.Source,
		Timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Payload:   payload,
	})
}
