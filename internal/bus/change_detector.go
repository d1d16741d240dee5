package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/goccy/go-json"

	"github.com/yegors/flight-tracker/internal/metrics"
	"github.com/yegors/flight-tracker/pkg/logger"
)

// ChangeDetector publishes a value only when it differs from the last value
// successfully published on the same topic. Values handed to it must not be
// mutated afterwards.
type ChangeDetector struct {
	publisher Publisher
	// publishMu serializes PublishIfChanged so compare, send and record
	// happen as one step per caller
	publishMu sync.Mutex
	// mu guards last only, and is never held across a network call
	mu     sync.RWMutex
	last   map[string]any
	logger *logger.Logger
}

// NewChangeDetector creates a new change detector
func NewChangeDetector(publisher Publisher, logger *logger.Logger) *ChangeDetector {
	return &ChangeDetector{
		publisher: publisher,
		last:      make(map[string]any),
		logger:    logger.Named("change-detector"),
	}
}

// PublishIfChanged serializes value to JSON and publishes it on topic unless
// it is deeply equal to the last published value. It reports whether a
// message was sent. A failed publish leaves the last value untouched.
func (cd *ChangeDetector) PublishIfChanged(ctx context.Context, topic string, value any) (bool, error) {
	cd.publishMu.Lock()
	defer cd.publishMu.Unlock()

	if prev, ok := cd.Last(topic); ok && reflect.DeepEqual(prev, value) {
		metrics.RecordUnchanged(topic)
		cd.logger.Debug("No changes, skipping publish", logger.String("topic", topic))
		return false, nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s payload: %w", topic, err)
	}

	err = cd.publisher.Publish(ctx, topic, payload)
	metrics.RecordPublish(topic, err)
	if err != nil {
		var pe *PublishError
		if !errors.As(err, &pe) {
			err = &PublishError{Topic: topic, Err: err}
		}
		return false, err
	}

	cd.mu.Lock()
	cd.last[topic] = value
	cd.mu.Unlock()

	cd.logger.Info("Published update",
		logger.String("topic", topic),
		logger.Int("bytes", len(payload)),
	)
	return true, nil
}

// Last returns the last value published on topic
func (cd *ChangeDetector) Last(topic string) (any, bool) {
	cd.mu.RLock()
	defer cd.mu.RUnlock()
	v, ok := cd.last[topic]
	return v, ok
}
