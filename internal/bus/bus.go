// Package bus publishes JSON snapshots to a message broker.
package bus

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/yegors/flight-tracker/pkg/logger"
)

// Topics the tracker publishes to
const (
	TopicAircraft = "flight_tracker/aircraft"
	TopicWeather  = "flight_tracker/weather"
)

// Publisher sends a payload to a topic on a broker
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// PublishError is returned when a payload could not be delivered to the broker
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s failed: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Dial returns a Publisher for brokerURL, chosen by scheme. nats:// selects
// NATS; mqtt, mqtts, tcp, ssl, ws and wss select MQTT. MQTT connects on
// first publish.
func Dial(brokerURL string, logger *logger.Logger) (Publisher, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "nats":
		return NewNATSPublisher(brokerURL, logger)
	case "mqtt", "mqtts", "tcp", "ssl", "ws", "wss":
		return NewMQTTPublisher(brokerURL, logger)
	default:
		return nil, fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
}
