// Package events publishes per-contact delivery status events to Kafka when
// a broker is configured. Publishing is best effort: failures are logged and
// never surfaced to Journey Builder.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/journey-sms-activity/internal/sanitize"
)

// Status event type constants.
const (
	TypeAccepted = "accepted"
	TypeSent     = "sent"
	TypeFailed   = "failed"
)

var errProducerNotInitialised = errors.New("status publisher: producer not initialised")

// StatusEvent records the outcome of one execute call. Recipient is stored
// masked; the raw address never reaches the topic.
type StatusEvent struct {
	Type           string    `json:"event_type"`
	CorrelationID  string    `json:"correlation_id"`
	TransactionID  string    `json:"transaction_id"`
	Recipient      string    `json:"recipient,omitempty"`
	ProviderStatus int       `json:"provider_status,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// SyncProducer captures the subset of producer behaviour the publisher
// needs.
type SyncProducer interface {
	PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error
}

// Publisher emits status events to a Kafka topic using the shared producer.
// A nil Publisher is valid and drops all events.
type Publisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
	now      func() time.Time
}

// NewPublisher constructs a Publisher instance. Returns nil when prod is
// nil so callers can wire the no-broker case without branching.
func NewPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *Publisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Publisher{producer: prod, topic: topic, logger: logger, now: time.Now}
}

// Publish writes the supplied status event to Kafka synchronously. The
// recipient is masked before serialization.
func (p *Publisher) Publish(_ context.Context, event StatusEvent) error {
	if p == nil {
		return nil
	}
	if p.producer == nil {
		return errProducerNotInitialised
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Recipient != "" {
		event.Recipient = sanitize.MaskPhone(event.Recipient)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("status publisher: marshal event: %w", err)
	}

	headers := map[string][]byte{
		"content-type": []byte("application/json"),
	}
	if err := p.producer.PublishSync(p.topic, []byte(event.TransactionID), headers, payload); err != nil {
		return fmt.Errorf("status publisher: publish event: %w", err)
	}
	return nil
}

// TryPublish publishes and logs instead of returning failures. Handlers use
// this so event emission can never affect the HTTP response.
func (p *Publisher) TryPublish(ctx context.Context, event StatusEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		p.logger.Error().
			Str("event", event.Type).
			Str("transaction_id", event.TransactionID).
			Err(err).
			Msg("failed to publish status event")
	}
}
