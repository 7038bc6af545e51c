package service

import (
	"context"
	"fmt"
	"time"

	"food-wallet-service/internal/core/ports"

	"github.com/rs/zerolog"
)

const defaultSweepInterval = time.Hour

// IdempotencySweeper deletes idempotency logs older than the replay window.
// After that a key behaves as if it had never been used.
type IdempotencySweeper struct {
	repo     ports.IdempotencyRepository
	ttl      time.Duration
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewIdempotencySweeper creates a sweeper keeping logs for ttl.
func NewIdempotencySweeper(repo ports.IdempotencyRepository, ttl, interval time.Duration, log zerolog.Logger) *IdempotencySweeper {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &IdempotencySweeper{
		repo:     repo,
		ttl:      ttl,
		interval: interval,
		log:      log.With().Str("component", "idempotency_sweeper").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SweepOnce deletes expired logs and returns how many were removed.
func (s *IdempotencySweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteBefore(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("sweep idempotency logs: %w", err)
	}
	return n, nil
}

// Run sweeps on every tick until ctx is cancelled.
func (s *IdempotencySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Error().Err(err).Msg("idempotency sweep failed")
				}
				continue
			}
			if n > 0 {
				s.log.Info().Int64("deleted", n).Msg("expired idempotency logs removed")
			}
		}
	}
}
