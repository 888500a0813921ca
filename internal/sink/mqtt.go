package sink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	obix "github.com/cstbox/ext-obix"
	"github.com/cstbox/ext-obix/config"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 10 * time.Second

	defaultTopicPrefix = "cstbox/events"
	defaultClientID    = "obixd"
)

// MQTTSink publishes events to an MQTT broker, one topic per variable:
// <prefix>/<var_type>/<var_name>.
type MQTTSink struct {
	client mqtt.Client
	prefix string
	qos    byte
	logger *slog.Logger
}

// NewMQTTSink creates an [MQTTSink] and connects to the broker. The client
// auto-reconnects after a lost connection, so a broker outage degrades to
// publish errors rather than a dead sink.
func NewMQTTSink(cfg config.Sink, logger *slog.Logger) (*MQTTSink, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = defaultTopicPrefix
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(clientID).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.OnConnect = func(_ mqtt.Client) {
		logger.Info("connected to mqtt broker", "broker", cfg.BrokerURL)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect failed: %w", err)
	}

	return &MQTTSink{
		client: client,
		prefix: prefix,
		qos:    cfg.QoS,
		logger: logger,
	}, nil
}

// Publish implements [obix.EventSink].
func (s *MQTTSink) Publish(varType, varName string, data obix.Payload) error {
	payload, err := json.Marshal(newEvent(varType, varName, data))
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/%s", s.prefix, varType, varName)
	token := s.client.Publish(topic, s.qos, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish failed: %w", err)
	}
	return nil
}

// Close implements [Sink].
func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
