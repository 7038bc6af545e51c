package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	ledgerRepo *mocks.MockLedgerRepository
	outboxRepo *mocks.MockOutboxRepository
	idempRepo  *mocks.MockIdempotencyRepository
	idempCache *mocks.MockIdempotencyCache
	transactor *mocks.MockDBTransactor
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		ledgerRepo: mocks.NewMockLedgerRepository(ctrl),
		outboxRepo: mocks.NewMockOutboxRepository(ctrl),
		idempRepo:  mocks.NewMockIdempotencyRepository(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
	}
	amounts, err := domain.ParseRechargeAmounts([]string{"10", "20", "50"})
	require.NoError(t, err)
	d.svc = NewWalletService(
		d.walletRepo, d.ledgerRepo, d.outboxRepo, d.idempRepo, d.idempCache,
		d.transactor, amounts, time.Hour, zerolog.Nop(),
	)
	return d
}

func TestWalletService_GetWallet(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Wallet{UserID: userID, Coins: coins("12.5")}, nil)

	w, err := d.svc.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.True(t, w.Coins.Equal(coins("12.5")))
}

func TestWalletService_GetWallet_NotFound(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)

	_, err := d.svc.GetWallet(ctx, userID)
	assertAppError(t, err, "WAL_003")
}

func TestWalletService_Overview(t *testing.T) {
	d := setupWalletService(t)
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Wallet{UserID: userID, Coins: coins("30")}, nil)
	d.ledgerRepo.EXPECT().List(gomock.Any(), ports.LedgerListParams{UserID: userID, Page: 1, PageSize: 5}).
		Return(nil, int64(0), nil)
	d.ledgerRepo.EXPECT().GetStats(gomock.Any(), userID).
		Return(&ports.LedgerStats{Recharges: 1, TotalRecharged: coins("30"), TotalSpent: decimal.Zero}, nil)

	ov, err := d.svc.Overview(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, ov.Wallet.Coins.Equal(coins("30")))
	assert.NotNil(t, ov.Recent)
	assert.Empty(t, ov.Recent)
	assert.Equal(t, int64(1), ov.Stats.Recharges)
}

func TestWalletService_Overview_Error(t *testing.T) {
	d := setupWalletService(t)
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(nil, nil).AnyTimes()
	d.ledgerRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, int64(0), errors.New("db down")).AnyTimes()
	d.ledgerRepo.EXPECT().GetStats(gomock.Any(), userID).Return(&ports.LedgerStats{}, nil).AnyTimes()

	_, err := d.svc.Overview(context.Background(), userID)
	assertAppError(t, err, "SYS_001")
}

func TestWalletService_Recharge_Success(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	key := domain.BuildIdempotencyKey(userID, domain.IdempotencyScopeRecharge, "r-1")

	d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, key).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("5")}, nil)
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, decimalEq{coins("25")}).Return(nil)

	var entry *domain.LedgerEntry
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			entry = e
			return nil
		})
	var event *domain.OutboxEvent
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.OutboxEvent) error {
			event = e
			return nil
		})
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, key, gomock.Any(), time.Hour).Return(nil)

	res, err := d.svc.Recharge(ctx, ports.RechargeRequest{UserID: userID, Amount: coins("20"), IdempotencyKey: "r-1"})
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(coins("25")))
	assert.True(t, res.Amount.Equal(coins("20")))

	require.NotNil(t, entry)
	assert.Equal(t, domain.LedgerEntryRecharge, entry.Type)
	assert.Equal(t, res.EntryID, entry.ID)
	require.NotNil(t, event)
	assert.Equal(t, domain.EventWalletRecharged, event.EventType)
	assert.Equal(t, userID.String(), event.Key)
}

func TestWalletService_Recharge_NoKeySkipsIdempotency(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: decimal.Zero}, nil)
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, decimalEq{coins("10")}).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	res, err := d.svc.Recharge(ctx, ports.RechargeRequest{UserID: userID, Amount: coins("10")})
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(coins("10")))
}

func TestWalletService_Recharge_AmountNotOffered(t *testing.T) {
	d := setupWalletService(t)

	for _, amount := range []string{"0", "-10", "15", "10.01"} {
		_, err := d.svc.Recharge(context.Background(), ports.RechargeRequest{UserID: uuid.New(), Amount: coins(amount)})
		assertAppError(t, err, "WAL_002")
	}
}

func TestWalletService_Recharge_Replay(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	key := domain.BuildIdempotencyKey(userID, domain.IdempotencyScopeRecharge, "r-2")

	prev := ports.RechargeResult{EntryID: uuid.New(), Amount: coins("50"), NewBalance: coins("50")}
	raw, _ := json.Marshal(prev)
	d.idempCache.EXPECT().Get(ctx, key).Return(raw, nil)

	res, err := d.svc.Recharge(ctx, ports.RechargeRequest{UserID: userID, Amount: coins("50"), IdempotencyKey: "r-2"})
	require.NoError(t, err)
	assert.Equal(t, prev.EntryID, res.EntryID)
}

func TestWalletService_Recharge_WalletNotFound(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(nil, nil)

	_, err := d.svc.Recharge(ctx, ports.RechargeRequest{UserID: userID, Amount: coins("10")})
	assertAppError(t, err, "WAL_003")
}

func TestWalletService_Recharge_LockTimeout(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(nil, fmt.Errorf("get wallet for update: %w", domain.ErrLockTimeout))

	_, err := d.svc.Recharge(ctx, ports.RechargeRequest{UserID: userID, Amount: coins("10")})
	assertAppError(t, err, "SYS_002")
}

func TestWalletService_Recharge_ConcurrentDuplicateKey(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	key := domain.BuildIdempotencyKey(userID, domain.IdempotencyScopeRecharge, "r-9")
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, key).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: decimal.Zero}, nil)
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, gomock.Any()).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(domain.ErrIdempotencyConflict)

	_, err := d.svc.Recharge(ctx, ports.RechargeRequest{UserID: userID, Amount: coins("10"), IdempotencyKey: "r-9"})
	assertAppError(t, err, "WAL_004")
}

func TestWalletService_Recharge_CommitFails(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &failingCommitTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: decimal.Zero}, nil)
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, gomock.Any()).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	_, err := d.svc.Recharge(ctx, ports.RechargeRequest{UserID: userID, Amount: coins("10")})
	assertAppError(t, err, "SYS_001")
}

func TestWalletService_History(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	typ := domain.LedgerEntryCheckout
	params := ports.LedgerListParams{UserID: userID, Type: &typ, Page: 2, PageSize: 10}

	d.ledgerRepo.EXPECT().List(ctx, params).Return([]domain.LedgerEntry{{ID: uuid.New()}}, int64(11), nil)

	entries, total, err := d.svc.History(ctx, params)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(11), total)
}

func TestWalletService_Summary(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.ledgerRepo.EXPECT().GetStats(ctx, userID).Return(nil, errors.New("db down"))

	_, err := d.svc.Summary(ctx, userID)
	assertAppError(t, err, "SYS_001")
}

func TestWalletService_RechargeOptionsIsACopy(t *testing.T) {
	d := setupWalletService(t)

	opts := d.svc.RechargeOptions()
	require.Len(t, opts, 3)
	opts[0] = coins("999")

	assert.True(t, d.svc.RechargeOptions()[0].Equal(coins("10")))
}
