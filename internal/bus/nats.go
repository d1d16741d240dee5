package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yegors/flight-tracker/pkg/logger"
)

// natsFlushTimeout bounds the wait for the server to acknowledge a publish
const natsFlushTimeout = 5 * time.Second

// NATSPublisher publishes core NATS messages. Topic separators are mapped
// to subject tokens, so flight_tracker/aircraft becomes flight_tracker.aircraft.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *logger.Logger
}

// NewNATSPublisher connects to the NATS server at natsURL. The client keeps
// retrying in the background if the server is not yet reachable.
func NewNATSPublisher(natsURL string, log *logger.Logger) (*NATSPublisher, error) {
	l := log.Named("bus-nats")

	nc, err := nats.Connect(natsURL,
		nats.Name("flight-tracker"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("Disconnected from NATS", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info("Reconnected to NATS", logger.String("server", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	l.Info("Created NATS publisher", logger.String("url", nc.ConnectedUrlRedacted()))

	return &NATSPublisher{nc: nc, logger: l}, nil
}

// Subject converts a slash separated topic to a NATS subject
func Subject(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

// Publish sends payload and waits for the server to acknowledge the flush
func (p *NATSPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	subject := Subject(topic)
	if err := p.nc.Publish(subject, payload); err != nil {
		return &PublishError{Topic: topic, Err: err}
	}
	// FlushWithContext rejects contexts without a deadline
	fctx, cancel := context.WithTimeout(ctx, natsFlushTimeout)
	defer cancel()
	if err := p.nc.FlushWithContext(fctx); err != nil {
		return &PublishError{Topic: topic, Err: err}
	}

	p.logger.Debug("Published message",
		logger.String("subject", subject),
		logger.Int("bytes", len(payload)),
	)
	return nil
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
