package service

import (
	"context"
	"fmt"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/metrics"

	"github.com/rs/zerolog"
)

const (
	defaultOutboxInterval    = 2 * time.Second
	defaultOutboxBatchSize   = 50
	defaultOutboxMaxAttempts = 10
)

// OutboxRelayConfig tunes the relay loop. Zero values fall back to defaults.
type OutboxRelayConfig struct {
	Topic        string // metrics label only
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// OutboxRelayImpl implements ports.OutboxRelay.
type OutboxRelayImpl struct {
	repo      ports.OutboxRepository
	publisher ports.EventPublisher
	metrics   *metrics.Metrics
	cfg       OutboxRelayConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewOutboxRelay creates a new OutboxRelayImpl. m may be nil.
func NewOutboxRelay(
	repo ports.OutboxRepository,
	publisher ports.EventPublisher,
	m *metrics.Metrics,
	cfg OutboxRelayConfig,
	log zerolog.Logger,
) *OutboxRelayImpl {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultOutboxInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultOutboxBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultOutboxMaxAttempts
	}
	return &OutboxRelayImpl{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		cfg:       cfg,
		log:       log.With().Str("component", "outbox_relay").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RelayOnce publishes one batch of due events and returns how many were sent.
// A publish failure is recorded on the event and does not stop the batch.
func (r *OutboxRelayImpl) RelayOnce(ctx context.Context) (int, error) {
	events, err := r.repo.FetchPending(ctx, r.now(), r.cfg.MaxAttempts, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch pending: %w", err)
	}

	sent := 0
	for i := range events {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		e := &events[i]

		if err := r.publisher.Publish(ctx, e); err != nil {
			r.recordFailure(ctx, e, err)
			continue
		}

		if err := r.repo.MarkSent(ctx, e.ID, r.now()); err != nil {
			// Published but not marked: the event will be delivered again.
			r.log.Error().Err(err).Str("event_id", e.ID.String()).Msg("outbox: failed to mark event sent")
			continue
		}
		r.metrics.ObserveOutbox(r.cfg.Topic, "sent")
		sent++
	}
	return sent, nil
}

func (r *OutboxRelayImpl) recordFailure(ctx context.Context, e *domain.OutboxEvent, pubErr error) {
	attempts := e.Attempts + 1
	next := r.now().Add(domain.RetryDelay(attempts))

	result := "retry"
	ev := r.log.Warn()
	if attempts >= r.cfg.MaxAttempts {
		result = "dead"
		ev = r.log.Error()
	}
	r.metrics.ObserveOutbox(r.cfg.Topic, result)

	ev.Err(pubErr).
		Str("event_id", e.ID.String()).
		Str("event_type", e.EventType).
		Int("attempt", attempts).
		Msg("outbox: publish failed")

	if err := r.repo.MarkFailed(ctx, e.ID, attempts, next, pubErr.Error()); err != nil {
		r.log.Error().Err(err).Str("event_id", e.ID.String()).Msg("outbox: failed to record publish failure")
	}
}

// Run relays on every tick until ctx is cancelled.
func (r *OutboxRelayImpl) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.cfg.PollInterval).Msg("outbox relay started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("outbox relay stopped")
			return
		case <-ticker.C:
			n, err := r.RelayOnce(ctx)
			if err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Msg("outbox relay pass failed")
				continue
			}
			if n > 0 {
				r.log.Debug().Int("sent", n).Msg("outbox relay pass")
			}
		}
	}
}
