// Package mqtt publishes summaries as retained JSON messages.
package mqtt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"farmwatch/internal/config"
	"farmwatch/internal/logger"
	"farmwatch/internal/model"
)

const connectTimeout = 5 * time.Second

// Sink publishes every summary to one topic. Messages are retained so a
// dashboard that subscribes later still sees the current state.
type Sink struct {
	client paho.Client
	topic  string
	qos    byte

	mu        sync.RWMutex
	connected bool
}

// New connects to MQTT_BROKER. The client reconnects on its own after a
// lost connection; publishes fail fast while it is down.
func New(cfg *config.Config, logger *logger.Logger) (*Sink, error) {
	s := &Sink{
		topic: cfg.MQTTTopic,
		qos:   byte(cfg.MQTTQoS),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(BrokerURL(cfg.MQTTBroker))
	opts.SetClientID(cfg.MQTTClientID)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c paho.Client) {
		s.setConnected(true)
		logger.Info("MQTT connection established: %s", cfg.MQTTBroker)
	}
	opts.OnConnectionLost = func(c paho.Client, err error) {
		s.setConnected(false)
		logger.Warning("MQTT connection lost, will auto-reconnect: %v", err)
	}

	s.client = paho.NewClient(opts)
	if err := connect(s.client, connectTimeout); err != nil {
		return nil, err
	}

	s.setConnected(true)
	return s, nil
}

// connect waits for the first connection. On failure the client is
// disconnected so its background retries stop.
func connect(client paho.Client, timeout time.Duration) error {
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

// BrokerURL defaults the scheme to tcp:// for bare host:port addresses.
func BrokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// NewWithClient wraps an already connected client.
func NewWithClient(client paho.Client, topic string, qos byte) *Sink {
	return &Sink{
		client:    client,
		topic:     topic,
		qos:       qos,
		connected: client.IsConnected(),
	}
}

func (s *Sink) Name() string {
	return "mqtt"
}

func (s *Sink) Publish(ctx context.Context, summary model.FrameSummary) error {
	if !s.isConnected() {
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := summary.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	token := s.client.Publish(s.topic, s.qos, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish timeout: %w", ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Close disconnects, giving in-flight messages 250ms to complete.
func (s *Sink) Close() error {
	s.client.Disconnect(250)
	s.setConnected(false)
	return nil
}

func (s *Sink) setConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
}

func (s *Sink) isConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}
