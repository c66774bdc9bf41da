// Package events defines the envelope published for every domain event and a
// small emitter that serializes envelopes onto a Kafka producer.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/lookali/marketplace-api/internal/kafka"
)

const (
	EventOrderCreated        = "OrderCreated"
	EventOrderStatusChanged  = "OrderStatusChanged"
	EventOrderPaymentUpdated = "OrderPaymentUpdated"
	EventReviewChanged       = "ReviewChanged"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
	TopicReviewChanged      = "review.changed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Sink is satisfied by *kafka.Producer.
type Sink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Emitter publishes envelopes of one topic. A nil *Emitter discards events.
type Emitter struct {
	Sink     Sink
	Producer string
}

func (e *Emitter) Emit(eventType, correlationID, traceID string, payload any) {
	if e == nil || e.Sink == nil {
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	e.Sink.Publish(PartitionKey(correlationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// PartitionKey keeps all events of one aggregate on the same partition.
func PartitionKey(id string) []byte { return []byte(id) }
