package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const overviewRecentEntries = 5

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo     ports.WalletRepository
	ledgerRepo     ports.LedgerRepository
	outboxRepo     ports.OutboxRepository
	idempRepo      ports.IdempotencyRepository
	idempCache     ports.IdempotencyCache
	transactor     ports.DBTransactor
	amounts        domain.RechargeAmounts
	idempotencyTTL time.Duration
	log            zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	outboxRepo ports.OutboxRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	amounts domain.RechargeAmounts,
	idempotencyTTL time.Duration,
	log zerolog.Logger,
) *WalletServiceImpl {
	if idempotencyTTL <= 0 {
		idempotencyTTL = defaultIdempotencyTTL
	}
	return &WalletServiceImpl{
		walletRepo:     walletRepo,
		ledgerRepo:     ledgerRepo,
		outboxRepo:     outboxRepo,
		idempRepo:      idempRepo,
		idempCache:     idempCache,
		transactor:     transactor,
		amounts:        amounts,
		idempotencyTTL: idempotencyTTL,
		log:            log.With().Str("component", "wallet").Logger(),
	}
}

// GetWallet returns the user's wallet.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if w == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return w, nil
}

// Overview loads the wallet, its latest movements and the activity summary in parallel.
func (s *WalletServiceImpl) Overview(ctx context.Context, userID uuid.UUID) (*ports.WalletOverview, error) {
	out := &ports.WalletOverview{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.walletRepo.GetByUserID(gctx, userID)
		out.Wallet = w
		return err
	})
	g.Go(func() error {
		entries, _, err := s.ledgerRepo.List(gctx, ports.LedgerListParams{
			UserID:   userID,
			Page:     1,
			PageSize: overviewRecentEntries,
		})
		out.Recent = entries
		return err
	})
	g.Go(func() error {
		stats, err := s.ledgerRepo.GetStats(gctx, userID)
		out.Stats = stats
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load overview: %w", err))
	}

	if out.Wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	if out.Recent == nil {
		out.Recent = []domain.LedgerEntry{}
	}
	return out, nil
}

// Recharge adds one of the configured amounts to the wallet.
func (s *WalletServiceImpl) Recharge(ctx context.Context, req ports.RechargeRequest) (*ports.RechargeResult, error) {
	if !req.Amount.IsPositive() || !s.amounts.Allows(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(req.UserID, domain.IdempotencyScopeRecharge, req.IdempotencyKey)

		cached, err := s.idempCache.Get(ctx, idempKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached == nil {
			idempLog, err := s.idempRepo.Get(ctx, idempKey)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
			}
			if idempLog != nil {
				cached = idempLog.ResponseJSON
			}
		}
		if cached != nil {
			return unmarshalRecharge(cached)
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			return nil, apperror.ErrLockTimeout(err)
		}
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	now := time.Now().UTC()
	newBalance := wallet.Coins.Add(req.Amount)
	entry := &domain.LedgerEntry{
		ID:           uuid.New(),
		UserID:       req.UserID,
		Type:         domain.LedgerEntryRecharge,
		Amount:       req.Amount,
		BalanceAfter: newBalance,
		Reference:    req.IdempotencyKey,
		CreatedAt:    now,
	}

	if err := s.walletRepo.UpdateCoins(ctx, dbTx, req.UserID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update coins: %w", err))
	}
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	payload, err := json.Marshal(domain.WalletRechargedEvent{
		EntryID:    entry.ID,
		UserID:     req.UserID,
		Amount:     req.Amount,
		NewBalance: newBalance,
		OccurredAt: now,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal recharge event: %w", err))
	}
	if err := s.outboxRepo.Insert(ctx, dbTx, &domain.OutboxEvent{
		ID:            uuid.New(),
		EventType:     domain.EventWalletRecharged,
		Key:           req.UserID.String(),
		Payload:       payload,
		NextAttemptAt: now,
		CreatedAt:     now,
	}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("insert outbox event: %w", err))
	}

	result := &ports.RechargeResult{
		EntryID:    entry.ID,
		Amount:     req.Amount,
		NewBalance: newBalance,
		CreatedAt:  now,
	}

	var respJSON []byte
	if idempKey != "" {
		respJSON, err = json.Marshal(result)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
			Key:          idempKey,
			ResourceID:   entry.ID,
			ResponseJSON: respJSON,
			CreatedAt:    now,
		}); err != nil {
			if errors.Is(err, domain.ErrIdempotencyConflict) {
				return nil, apperror.ErrDuplicateRequest()
			}
			return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" {
		if err := s.idempCache.Set(ctx, idempKey, respJSON, s.idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
		}
	}

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("amount", req.Amount.String()).
		Str("new_balance", newBalance.String()).
		Msg("wallet recharged")

	return result, nil
}

// History returns a page of ledger entries.
func (s *WalletServiceImpl) History(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	entries, total, err := s.ledgerRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(err)
	}
	return entries, total, nil
}

// Summary returns the recharge and spending totals of the user.
func (s *WalletServiceImpl) Summary(ctx context.Context, userID uuid.UUID) (*ports.LedgerStats, error) {
	stats, err := s.ledgerRepo.GetStats(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return stats, nil
}

// RechargeOptions lists the amounts a wallet can be recharged with.
func (s *WalletServiceImpl) RechargeOptions() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.amounts))
	copy(out, s.amounts)
	return out
}

func unmarshalRecharge(data []byte) (*ports.RechargeResult, error) {
	var r ports.RechargeResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached recharge: %w", err))
	}
	return &r, nil
}
