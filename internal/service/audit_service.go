package service

import (
	"context"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"

	"github.com/rs/zerolog"
)

const (
	defaultAuditQueue = 1024
	auditWriteTimeout = 2 * time.Second
	auditFlushTimeout = 5 * time.Second
)

// AuditService implements ports.AuditService. Entries are queued by the
// request path and written by a single worker started with Run; when the
// queue is full the entry is only logged.
type AuditService struct {
	repo  ports.AuditRepository
	queue chan *domain.AuditLog
	log   zerolog.Logger
}

// NewAuditService returns a service writing to repo. A nil repo keeps audit
// entries in the log only.
func NewAuditService(repo ports.AuditRepository, queueSize int, log zerolog.Logger) *AuditService {
	if queueSize <= 0 {
		queueSize = defaultAuditQueue
	}
	return &AuditService{
		repo:  repo,
		queue: make(chan *domain.AuditLog, queueSize),
		log:   log.With().Str("component", "audit").Logger(),
	}
}

// Log never blocks the caller.
func (s *AuditService) Log(_ context.Context, entry *domain.AuditLog) {
	ev := s.log.Info()
	if entry.UserID != nil {
		ev = ev.Str("user_id", entry.UserID.String())
	}
	ev.Str("action", string(entry.Action)).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Int("status", entry.StatusCode).
		Str("ip", entry.IPAddress).
		Msg("audit")

	if s.repo == nil {
		return
	}
	select {
	case s.queue <- entry:
	default:
		s.log.Warn().Str("action", string(entry.Action)).Msg("audit queue full, entry not persisted")
	}
}

// Run persists queued entries until ctx is done, then flushes what is left.
func (s *AuditService) Run(ctx context.Context) {
	for {
		select {
		case entry := <-s.queue:
			s.persist(ctx, entry)
		case <-ctx.Done():
			s.flush(ctx)
			return
		}
	}
}

func (s *AuditService) flush(ctx context.Context) {
	deadline := time.Now().Add(auditFlushTimeout)
	for time.Now().Before(deadline) {
		select {
		case entry := <-s.queue:
			s.persist(ctx, entry)
		default:
			return
		}
	}
	s.log.Warn().Int("pending", len(s.queue)).Msg("audit flush timed out")
}

// persist outlives the cancellation of ctx.
func (s *AuditService) persist(ctx context.Context, entry *domain.AuditLog) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if err := s.repo.Create(wctx, entry); err != nil {
		s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("persist audit log")
	}
}
