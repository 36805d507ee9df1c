package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher writes events to the log. Used when Kafka is not configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(ctx context.Context, evt Event) error {
	p.logger.Info().
		Str("event_id", evt.ID).
		Str("event_type", evt.Type).
		Str("key", evt.Key).
		RawJSON("data", evt.Data).
		Msg("event published")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
