// Package events publishes domain events (currently lab.result.abnormal) to
// Kafka or, when no broker is configured, to the structured log.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeLabResultAbnormal = "lab.result.abnormal"
	Source                = "clinic-server"
)

// Event is the envelope written to the broker. Key orders events per partition
// (the patient id for lab events).
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurred_at"`
	Key        string          `json:"-"`
	Data       json.RawMessage `json:"data"`
}

// New wraps data in an envelope with a fresh id.
func New(eventType, key string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Source:     Source,
		OccurredAt: time.Now().UTC(),
		Key:        key,
		Data:       raw,
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Status describes where events go for the health endpoint: "log" for the
// log publisher, "kafka:" plus the breaker state for Kafka.
func Status(p Publisher) string {
	switch pub := p.(type) {
	case *KafkaPublisher:
		return "kafka:" + pub.State().String()
	case *LogPublisher:
		return "log"
	case nil:
		return "disabled"
	default:
		return "custom"
	}
}
