package bus

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/yegors/flight-tracker/pkg/logger"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttQuiesceMillis  = 250
)

// MQTTPublisher publishes with QoS 0 and no retain flag. A dropped
// connection is re-established on the next Publish.
type MQTTPublisher struct {
	client mqtt.Client
	mu     sync.Mutex
	logger *logger.Logger
}

// NewMQTTPublisher creates a publisher for brokerURL. Credentials may be
// carried in the URL's userinfo.
func NewMQTTPublisher(brokerURL string, log *logger.Logger) (*MQTTPublisher, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL: %w", err)
	}

	l := log.Named("bus-mqtt")
	clientID := "flight-tracker-" + uuid.NewString()

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(mqttConnectTimeout).
		SetOnConnectHandler(func(mqtt.Client) {
			l.Info("Connected to MQTT broker", logger.String("broker", u.Host))
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			l.Warn("Lost connection to MQTT broker", logger.Error(err))
		})

	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pw, ok := u.User.Password(); ok {
			opts.SetPassword(pw)
		}
	}

	l.Info("Created MQTT publisher",
		logger.String("broker", u.Host),
		logger.String("client_id", clientID),
	)

	return &MQTTPublisher{
		client: mqtt.NewClient(opts),
		logger: l,
	}, nil
}

// Publish sends payload to topic, connecting first if needed
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := p.ensureConnected(ctx); err != nil {
		return &PublishError{Topic: topic, Err: err}
	}

	if err := waitToken(ctx, p.client.Publish(topic, 0, false, payload)); err != nil {
		return &PublishError{Topic: topic, Err: err}
	}

	p.logger.Debug("Published message",
		logger.String("topic", topic),
		logger.Int("bytes", len(payload)),
	)
	return nil
}

func (p *MQTTPublisher) ensureConnected(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client.IsConnected() {
		return nil
	}

	p.logger.Info("Connecting to MQTT broker")
	if err := waitToken(ctx, p.client.Connect()); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(mqttQuiesceMillis)
	}
	return nil
}

func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
