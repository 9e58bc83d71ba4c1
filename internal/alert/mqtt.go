package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	DefaultTopic          = "drone-detector/alerts"
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesce     = 250 // milliseconds
)

// ErrPublishTimeout is returned when the broker does not acknowledge an alert in time
var ErrPublishTimeout = errors.New("publish timed out")

// MQTTConfig holds the broker connection settings
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
	Retained bool   `yaml:"retained"`
}

// WithMQTTLogger sets the logger for the publisher
func WithMQTTLogger(logger *slog.Logger) func(*MQTTPublisher) {
	return func(p *MQTTPublisher) {
		p.logger = logger.With(slog.String("component", "mqtt"))
	}
}

// MQTTPublisher publishes alerts as JSON messages to <topic>/<radio>
type MQTTPublisher struct {
	client mqtt.Client
	config MQTTConfig
	logger *slog.Logger
}

// generateClientID creates a random client ID for MQTT connection
func generateClientID() string {
	return "drone-detector-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// NewMQTTPublisher connects to the broker and returns a ready publisher
func NewMQTTPublisher(config MQTTConfig, options ...func(*MQTTPublisher)) (*MQTTPublisher, error) {
	if config.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if config.QoS > 2 {
		return nil, fmt.Errorf("invalid qos %d", config.QoS)
	}
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}

	p := MQTTPublisher{
		config: config,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&p)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(generateClientID())

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.logger.Info("connected to broker", slog.String("broker", config.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.logger.Warn("connection lost", slog.Any("error", err))
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		p.logger.Info("attempting to reconnect...")
	})

	p.client = mqtt.NewClient(opts)

	// with connect retry enabled the token completes once the first attempt is
	// made, later attempts happen in the background
	if token := p.client.Connect(); token.WaitTimeout(defaultPublishTimeout) && token.Error() != nil {
		return nil, fmt.Errorf("connecting to mqtt broker: %w", token.Error())
	}

	return &p, nil
}

// message builds the topic and payload of an alert
func message(baseTopic string, a Alert) (string, []byte, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return "", nil, fmt.Errorf("marshaling alert: %w", err)
	}
	return strings.TrimSuffix(baseTopic, "/") + "/" + string(a.Radio), payload, nil
}

// Publish sends the alert and waits for the broker acknowledgement
func (p *MQTTPublisher) Publish(ctx context.Context, a Alert) error {
	topic, payload, err := message(p.config.Topic, a)
	if err != nil {
		return err
	}

	token := p.client.Publish(topic, p.config.QoS, p.config.Retained, payload)

	select {
	case <-token.Done():
		if err = token.Error(); err != nil {
			return fmt.Errorf("publishing to %s: %w", topic, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(defaultPublishTimeout):
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}

	p.logger.Debug("alert published", slog.String("topic", topic), slog.String("id", a.ID))
	return nil
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(disconnectQuiesce)
	return nil
}
