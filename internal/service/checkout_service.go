package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/apperror"
	"food-wallet-service/pkg/logger"
	"food-wallet-service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultIdempotencyTTL = 24 * time.Hour

// CheckoutServiceImpl implements ports.CheckoutService.
type CheckoutServiceImpl struct {
	walletRepo     ports.WalletRepository
	cartRepo       ports.CartRepository
	ledgerRepo     ports.LedgerRepository
	outboxRepo     ports.OutboxRepository
	idempRepo      ports.IdempotencyRepository
	idempCache     ports.IdempotencyCache
	transactor     ports.DBTransactor
	metrics        *metrics.Metrics
	idempotencyTTL time.Duration
	log            zerolog.Logger
	now            func() time.Time
}

// NewCheckoutService creates a new CheckoutServiceImpl. m may be nil.
func NewCheckoutService(
	walletRepo ports.WalletRepository,
	cartRepo ports.CartRepository,
	ledgerRepo ports.LedgerRepository,
	outboxRepo ports.OutboxRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	m *metrics.Metrics,
	idempotencyTTL time.Duration,
	log zerolog.Logger,
) *CheckoutServiceImpl {
	if idempotencyTTL <= 0 {
		idempotencyTTL = defaultIdempotencyTTL
	}
	return &CheckoutServiceImpl{
		walletRepo:     walletRepo,
		cartRepo:       cartRepo,
		ledgerRepo:     ledgerRepo,
		outboxRepo:     outboxRepo,
		idempRepo:      idempRepo,
		idempCache:     idempCache,
		transactor:     transactor,
		metrics:        m,
		idempotencyTTL: idempotencyTTL,
		log:            log.With().Str("component", "checkout").Logger(),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Quote previews the checkout of the whole cart without locking anything.
func (s *CheckoutServiceImpl) Quote(ctx context.Context, userID uuid.UUID) (*domain.CheckoutQuote, error) {
	var (
		wallet *domain.Wallet
		lines  []domain.CartLine
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.walletRepo.GetByUserID(gctx, userID)
		if err != nil {
			return fmt.Errorf("get wallet: %w", err)
		}
		wallet = w
		return nil
	})
	g.Go(func() error {
		l, err := s.cartRepo.ListByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("list cart: %w", err)
		}
		lines = l
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.InternalError(err)
	}

	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return domain.NewCheckoutQuote(lines, wallet.Coins), nil
}

// Checkout debits the wallet by the cart total and removes the totaled lines,
// both inside one transaction that holds the wallet row lock.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, req ports.CheckoutRequest) *domain.CheckoutResult {
	result := s.checkout(ctx, req)

	s.metrics.ObserveCheckout(string(result.Outcome))

	log := logger.From(ctx, s.log)
	ev := log.Info()
	if result.Outcome == domain.CheckoutFailed {
		ev = log.Error().Err(result.Err)
	}
	ev.Str("user_id", req.UserID.String()).
		Str("outcome", string(result.Outcome)).
		Str("status", result.Status.String()).
		Msg("checkout finished")

	return result
}

func (s *CheckoutServiceImpl) checkout(ctx context.Context, req ports.CheckoutRequest) *domain.CheckoutResult {
	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(req.UserID, domain.IdempotencyScopeCheckout, req.IdempotencyKey)
		replayed, err := s.lookupIdempotent(ctx, idempKey)
		if err != nil {
			return domain.NewCheckoutResult().Fail(err)
		}
		if replayed != nil {
			return replayed
		}
	}

	result := domain.NewCheckoutResult()
	result.Advance(domain.CheckoutStatusValidating)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return result.Fail(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, req.UserID)
	if err != nil {
		return result.Fail(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return result.Reject(domain.CheckoutWalletNotFound)
	}

	// A checkout with the same key may have committed while this one waited
	// for the wallet lock.
	if idempKey != "" {
		idempLog, err := s.idempRepo.Get(ctx, idempKey)
		if err != nil {
			return result.Fail(fmt.Errorf("db idempotency recheck: %w", err))
		}
		if idempLog != nil {
			replayed, err := decodeCheckoutResult(idempLog.ResponseJSON)
			if err != nil {
				return result.Fail(err)
			}
			return replayed
		}
	}

	cart, err := s.cartRepo.ListByUserForUpdate(ctx, dbTx, req.UserID)
	if err != nil {
		return result.Fail(fmt.Errorf("lock cart: %w", err))
	}

	lines, ok := selectLines(cart, req.LineIDs)
	if !ok {
		return result.Reject(domain.CheckoutCartChanged)
	}
	if len(lines) == 0 {
		return result.Reject(domain.CheckoutEmptyCart)
	}

	total := domain.ComputeTotal(lines)
	if !wallet.CanAfford(total) {
		return result.Reject(domain.CheckoutInsufficientFunds)
	}

	result.Advance(domain.CheckoutStatusSettling)

	checkoutID := uuid.New()
	now := s.now()
	newBalance := wallet.Coins.Sub(total)
	lineIDs := domain.LineIDs(lines)

	if err := s.walletRepo.UpdateCoins(ctx, dbTx, req.UserID, newBalance); err != nil {
		return result.Fail(fmt.Errorf("update coins: %w", err))
	}

	deleted, err := s.cartRepo.DeleteLines(ctx, dbTx, req.UserID, lineIDs)
	if err != nil {
		return result.Fail(fmt.Errorf("clear cart lines: %w", err))
	}
	if deleted != int64(len(lineIDs)) {
		return result.Fail(fmt.Errorf("cleared %d of %d cart lines", deleted, len(lineIDs)))
	}
	result.Advance(domain.CheckoutStatusCleared)

	if err := s.recordLedger(ctx, dbTx, &domain.LedgerEntry{
		ID:           uuid.New(),
		UserID:       req.UserID,
		Type:         domain.LedgerEntryCheckout,
		Amount:       total,
		BalanceAfter: newBalance,
		Reference:    checkoutID.String(),
		CreatedAt:    now,
	}); err != nil {
		return result.Fail(fmt.Errorf("create ledger entry: %w", err))
	}

	if err := s.insertCompletedEvent(ctx, dbTx, checkoutID, req.UserID, lines, total, newBalance, now); err != nil {
		return result.Fail(err)
	}

	paid := *result
	paid.Pay(checkoutID, total, newBalance, lineIDs)

	var respJSON []byte
	if idempKey != "" {
		respJSON, err = json.Marshal(&paid)
		if err != nil {
			return result.Fail(fmt.Errorf("marshal response: %w", err))
		}
		if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
			Key:          idempKey,
			ResourceID:   checkoutID,
			ResponseJSON: respJSON,
			CreatedAt:    now,
		}); err != nil {
			return result.Fail(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return result.Fail(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" {
		if err := s.idempCache.Set(ctx, idempKey, respJSON, s.idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
		}
	}

	s.log.Info().
		Str("checkout_id", checkoutID.String()).
		Str("user_id", req.UserID.String()).
		Str("total", total.String()).
		Str("new_balance", newBalance.String()).
		Int("lines", len(lineIDs)).
		Msg("checkout settled")

	return &paid
}

// recordLedger skips zero totals: a cart of free lines moves no coins.
func (s *CheckoutServiceImpl) recordLedger(ctx context.Context, dbTx pgx.Tx, entry *domain.LedgerEntry) error {
	if entry.Amount.IsZero() {
		return nil
	}
	return s.ledgerRepo.Create(ctx, dbTx, entry)
}

func (s *CheckoutServiceImpl) insertCompletedEvent(
	ctx context.Context, dbTx pgx.Tx, checkoutID, userID uuid.UUID,
	lines []domain.CartLine, total, newBalance decimal.Decimal, now time.Time,
) error {
	payload, err := json.Marshal(domain.CheckoutCompletedEvent{
		CheckoutID: checkoutID,
		UserID:     userID,
		Items:      domain.Snapshot(lines),
		Total:      total,
		NewBalance: newBalance,
		OccurredAt: now,
	})
	if err != nil {
		return fmt.Errorf("marshal checkout event: %w", err)
	}
	if err := s.outboxRepo.Insert(ctx, dbTx, &domain.OutboxEvent{
		ID:            uuid.New(),
		EventType:     domain.EventCheckoutCompleted,
		Key:           userID.String(),
		Payload:       payload,
		NextAttemptAt: now,
		CreatedAt:     now,
	}); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// lookupIdempotent checks Redis first, then the DB log. A Redis failure falls through.
func (s *CheckoutServiceImpl) lookupIdempotent(ctx context.Context, key string) (*domain.CheckoutResult, error) {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached == nil {
		idempLog, err := s.idempRepo.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("db idempotency check: %w", err)
		}
		if idempLog == nil {
			return nil, nil
		}
		cached = idempLog.ResponseJSON
	}
	return decodeCheckoutResult(cached)
}

func decodeCheckoutResult(data []byte) (*domain.CheckoutResult, error) {
	var result domain.CheckoutResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal cached checkout: %w", err)
	}
	return &result, nil
}

// selectLines picks the lines a checkout covers. With no requested ids every
// locked line is covered; otherwise every requested id must still be present.
func selectLines(cart []domain.CartLine, requested []uuid.UUID) ([]domain.CartLine, bool) {
	if len(requested) == 0 {
		return cart, true
	}

	byID := make(map[uuid.UUID]domain.CartLine, len(cart))
	for _, l := range cart {
		byID[l.ID] = l
	}

	seen := make(map[uuid.UUID]struct{}, len(requested))
	lines := make([]domain.CartLine, 0, len(requested))
	for _, id := range requested {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		l, ok := byID[id]
		if !ok {
			return nil, false
		}
		lines = append(lines, l)
	}
	return lines, true
}
