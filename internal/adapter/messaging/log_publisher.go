package messaging

import (
	"context"

	"food-wallet-service/internal/core/domain"

	"github.com/rs/zerolog"
)

// LogPublisher implements ports.EventPublisher by logging events.
// It is used when no broker is configured so the outbox still drains.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "log_publisher").Logger()}
}

// Publish logs the event and always succeeds.
func (p *LogPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	p.log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("key", event.Key).
		RawJSON("payload", event.Payload).
		Msg("event published")
	return nil
}
