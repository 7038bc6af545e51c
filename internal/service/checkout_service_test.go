package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/internal/core/ports/mocks"
	"food-wallet-service/pkg/apperror"
	"food-wallet-service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type checkoutTestDeps struct {
	svc        *CheckoutServiceImpl
	walletRepo *mocks.MockWalletRepository
	cartRepo   *mocks.MockCartRepository
	ledgerRepo *mocks.MockLedgerRepository
	outboxRepo *mocks.MockOutboxRepository
	idempRepo  *mocks.MockIdempotencyRepository
	idempCache *mocks.MockIdempotencyCache
	transactor *mocks.MockDBTransactor
	metrics    *metrics.Metrics
}

func setupCheckoutService(t *testing.T) *checkoutTestDeps {
	ctrl := gomock.NewController(t)
	d := &checkoutTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		cartRepo:   mocks.NewMockCartRepository(ctrl),
		ledgerRepo: mocks.NewMockLedgerRepository(ctrl),
		outboxRepo: mocks.NewMockOutboxRepository(ctrl),
		idempRepo:  mocks.NewMockIdempotencyRepository(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		metrics:    metrics.New(),
	}
	d.svc = NewCheckoutService(
		d.walletRepo, d.cartRepo, d.ledgerRepo, d.outboxRepo,
		d.idempRepo, d.idempCache, d.transactor, d.metrics, 0, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

type failingCommitTx struct{ mockTx }

func (m *failingCommitTx) Commit(_ context.Context) error { return errors.New("connection reset") }

// decimalEq matches a decimal.Decimal by value, ignoring its exponent.
type decimalEq struct{ want decimal.Decimal }

func (m decimalEq) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string { return "equals " + m.want.String() }

func coins(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func cartLine(userID uuid.UUID, name, price, qty string) domain.CartLine {
	l := domain.CartLine{ID: uuid.New(), UserID: userID, Name: name, Price: json.RawMessage(price)}
	if qty != "" {
		l.Quantity = json.RawMessage(qty)
	}
	return l
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

// ==================== Checkout Tests ====================

func TestCheckoutService_Checkout_Paid(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	pizza := cartLine(userID, "Pizza", `12.5`, `2`)
	salad := cartLine(userID, "Salad", `"15"`, "")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("100")}, nil)
	d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{pizza, salad}, nil)
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, decimalEq{coins("60")}).Return(nil)
	d.cartRepo.EXPECT().DeleteLines(ctx, tx, userID, []uuid.UUID{pizza.ID, salad.ID}).Return(int64(2), nil)

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

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID})
	require.NotNil(t, result)
	assert.Equal(t, domain.CheckoutPaid, result.Outcome)
	assert.Equal(t, domain.CheckoutStatusPaid, result.Status)
	require.NotNil(t, result.TotalCharged)
	require.NotNil(t, result.NewBalance)
	assert.True(t, result.TotalCharged.Equal(coins("40")))
	assert.True(t, result.NewBalance.Equal(coins("60")))
	assert.Equal(t, []uuid.UUID{pizza.ID, salad.ID}, result.LineIDs)
	assert.Equal(t, "Payment of 40.00 completed. New balance: 60.00", result.Message)

	require.NotNil(t, entry)
	assert.Equal(t, domain.LedgerEntryCheckout, entry.Type)
	assert.True(t, entry.Amount.Equal(coins("40")))
	assert.Equal(t, result.CheckoutID.String(), entry.Reference)

	require.NotNil(t, event)
	assert.Equal(t, domain.EventCheckoutCompleted, event.EventType)
	var payload domain.CheckoutCompletedEvent
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, result.CheckoutID, payload.CheckoutID)
	assert.Len(t, payload.Items, 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(d.metrics.CheckoutOutcomes.WithLabelValues("PAID")))
}

func TestCheckoutService_Checkout_SelectedLinesOnly(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	a := cartLine(userID, "A", `10`, "")
	b := cartLine(userID, "B", `20`, "")
	c := cartLine(userID, "C", `30`, "")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("50")}, nil)
	d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{a, b, c}, nil)
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, decimalEq{coins("10")}).Return(nil)
	d.cartRepo.EXPECT().DeleteLines(ctx, tx, userID, []uuid.UUID{c.ID, a.ID}).Return(int64(2), nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{
		UserID:  userID,
		LineIDs: []uuid.UUID{c.ID, a.ID, c.ID},
	})
	assert.Equal(t, domain.CheckoutPaid, result.Outcome)
	assert.True(t, result.TotalCharged.Equal(coins("40")))
	assert.Equal(t, []uuid.UUID{c.ID, a.ID}, result.LineIDs)
}

func TestCheckoutService_Checkout_InsufficientFunds(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("39.99")}, nil)
	d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).
		Return([]domain.CartLine{cartLine(userID, "Menu", `40`, "")}, nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID})
	assert.Equal(t, domain.CheckoutInsufficientFunds, result.Outcome)
	assert.Equal(t, domain.CheckoutStatusRejected, result.Status)
	assert.Nil(t, result.TotalCharged)
	assert.Nil(t, result.NewBalance)
	assert.Equal(t, "Insufficient balance", result.Message)
}

func TestCheckoutService_Checkout_ExactBalance(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	line := cartLine(userID, "Menu", `"40.00"`, "")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("40")}, nil)
	d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{line}, nil)
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, decimalEq{decimal.Zero}).Return(nil)
	d.cartRepo.EXPECT().DeleteLines(ctx, tx, userID, []uuid.UUID{line.ID}).Return(int64(1), nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID})
	assert.Equal(t, domain.CheckoutPaid, result.Outcome)
	assert.True(t, result.NewBalance.IsZero())
}

func TestCheckoutService_Checkout_WalletNotFound(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(nil, nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID})
	assert.Equal(t, domain.CheckoutWalletNotFound, result.Outcome)
	assert.Equal(t, domain.CheckoutStatusRejected, result.Status)
}

func TestCheckoutService_Checkout_EmptyCart(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("100")}, nil)
	d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return(nil, nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID})
	assert.Equal(t, domain.CheckoutEmptyCart, result.Outcome)
	assert.Equal(t, float64(1), testutil.ToFloat64(d.metrics.CheckoutOutcomes.WithLabelValues("EMPTY_CART")))
}

func TestCheckoutService_Checkout_CartChanged(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	present := cartLine(userID, "A", `10`, "")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("100")}, nil)
	d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{present}, nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{
		UserID:  userID,
		LineIDs: []uuid.UUID{present.ID, uuid.New()},
	})
	assert.Equal(t, domain.CheckoutCartChanged, result.Outcome)
}

func TestCheckoutService_Checkout_Faults(t *testing.T) {
	dbErr := errors.New("db down")

	tests := []struct {
		name  string
		setup func(d *checkoutTestDeps, ctx context.Context, tx pgx.Tx, userID uuid.UUID, line domain.CartLine)
	}{
		{
			name: "begin fails",
			setup: func(d *checkoutTestDeps, ctx context.Context, _ pgx.Tx, _ uuid.UUID, _ domain.CartLine) {
				d.transactor.EXPECT().Begin(ctx).Return(nil, dbErr)
			},
		},
		{
			name: "lock wallet fails",
			setup: func(d *checkoutTestDeps, ctx context.Context, tx pgx.Tx, userID uuid.UUID, _ domain.CartLine) {
				d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
				d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(nil, dbErr)
			},
		},
		{
			name: "debit fails",
			setup: func(d *checkoutTestDeps, ctx context.Context, tx pgx.Tx, userID uuid.UUID, line domain.CartLine) {
				d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
				d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
					Return(&domain.Wallet{UserID: userID, Coins: coins("100")}, nil)
				d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{line}, nil)
				d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, gomock.Any()).Return(dbErr)
			},
		},
		{
			name: "cart clear removes fewer lines",
			setup: func(d *checkoutTestDeps, ctx context.Context, tx pgx.Tx, userID uuid.UUID, line domain.CartLine) {
				d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
				d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
					Return(&domain.Wallet{UserID: userID, Coins: coins("100")}, nil)
				d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{line}, nil)
				d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, gomock.Any()).Return(nil)
				d.cartRepo.EXPECT().DeleteLines(ctx, tx, userID, []uuid.UUID{line.ID}).Return(int64(0), nil)
			},
		},
		{
			name: "ledger insert fails",
			setup: func(d *checkoutTestDeps, ctx context.Context, tx pgx.Tx, userID uuid.UUID, line domain.CartLine) {
				d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
				d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
					Return(&domain.Wallet{UserID: userID, Coins: coins("100")}, nil)
				d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{line}, nil)
				d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, gomock.Any()).Return(nil)
				d.cartRepo.EXPECT().DeleteLines(ctx, tx, userID, []uuid.UUID{line.ID}).Return(int64(1), nil)
				d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(dbErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupCheckoutService(t)
			ctx := context.Background()
			userID := uuid.New()
			line := cartLine(userID, "Menu", `10`, "")

			tt.setup(d, ctx, &mockTx{}, userID, line)

			result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID})
			assert.Equal(t, domain.CheckoutFailed, result.Outcome)
			assert.Equal(t, domain.CheckoutStatusFailed, result.Status)
			assert.Nil(t, result.TotalCharged)
			assert.Error(t, result.Err)
		})
	}
}

func TestCheckoutService_Checkout_CommitFails(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &failingCommitTx{}
	line := cartLine(userID, "Menu", `10`, "")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("100")}, nil)
	d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{line}, nil)
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, gomock.Any()).Return(nil)
	d.cartRepo.EXPECT().DeleteLines(ctx, tx, userID, []uuid.UUID{line.ID}).Return(int64(1), nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID})
	assert.Equal(t, domain.CheckoutFailed, result.Outcome)
	assert.Equal(t, domain.CheckoutStatusFailed, result.Status)
	assert.Nil(t, result.NewBalance)
	assert.ErrorContains(t, result.Err, "commit tx")
}

// ==================== Idempotency Tests ====================

func TestCheckoutService_Checkout_StoresIdempotentResponse(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	line := cartLine(userID, "Menu", `10`, "")
	key := domain.BuildIdempotencyKey(userID, domain.IdempotencyScopeCheckout, "k-1")

	d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, key).Return(nil, nil).Times(2)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("100")}, nil)
	d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{line}, nil)
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, decimalEq{coins("90")}).Return(nil)
	d.cartRepo.EXPECT().DeleteLines(ctx, tx, userID, []uuid.UUID{line.ID}).Return(int64(1), nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	var stored *domain.IdempotencyLog
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, l *domain.IdempotencyLog) error {
			stored = l
			return nil
		})
	d.idempCache.EXPECT().Set(ctx, key, gomock.Any(), defaultIdempotencyTTL).Return(nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID, IdempotencyKey: "k-1"})
	require.Equal(t, domain.CheckoutPaid, result.Outcome)

	require.NotNil(t, stored)
	assert.Equal(t, result.CheckoutID, stored.ResourceID)
	var replay domain.CheckoutResult
	require.NoError(t, json.Unmarshal(stored.ResponseJSON, &replay))
	assert.Equal(t, domain.CheckoutPaid, replay.Outcome)
	assert.Equal(t, domain.CheckoutStatusPaid, replay.Status)
}

func TestCheckoutService_Checkout_ReplayFromCache(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	key := domain.BuildIdempotencyKey(userID, domain.IdempotencyScopeCheckout, "k-2")

	prev := domain.NewCheckoutResult()
	prev.Advance(domain.CheckoutStatusValidating)
	prev.Advance(domain.CheckoutStatusSettling)
	prev.Advance(domain.CheckoutStatusCleared)
	prev.Pay(uuid.New(), coins("40"), coins("10"), []uuid.UUID{uuid.New()})
	raw, err := json.Marshal(prev)
	require.NoError(t, err)

	d.idempCache.EXPECT().Get(ctx, key).Return(raw, nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID, IdempotencyKey: "k-2"})
	assert.Equal(t, domain.CheckoutPaid, result.Outcome)
	assert.Equal(t, prev.CheckoutID, result.CheckoutID)
	assert.True(t, result.NewBalance.Equal(coins("10")))
}

func TestCheckoutService_Checkout_ReplayFromDBWhenRedisDown(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	key := domain.BuildIdempotencyKey(userID, domain.IdempotencyScopeCheckout, "k-3")
	checkoutID := uuid.New()
	raw := []byte(fmt.Sprintf(`{"checkout_id":%q,"outcome":"PAID","status":"PAID","total_charged":"5","new_balance":"95","message":"ok"}`, checkoutID))

	d.idempCache.EXPECT().Get(ctx, key).Return(nil, errors.New("redis down"))
	d.idempRepo.EXPECT().Get(ctx, key).Return(&domain.IdempotencyLog{Key: key, ResponseJSON: raw}, nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID, IdempotencyKey: "k-3"})
	assert.Equal(t, domain.CheckoutPaid, result.Outcome)
	assert.Equal(t, checkoutID, result.CheckoutID)
}

func TestCheckoutService_Checkout_IdempotencyLookupFails(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	key := domain.BuildIdempotencyKey(userID, domain.IdempotencyScopeCheckout, "k-4")

	d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, key).Return(nil, errors.New("db down"))

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID, IdempotencyKey: "k-4"})
	assert.Equal(t, domain.CheckoutFailed, result.Outcome)
}

func TestCheckoutService_Checkout_ReplaysResultCommittedWhileWaiting(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	key := domain.BuildIdempotencyKey(userID, domain.IdempotencyScopeCheckout, "k-5")
	checkoutID := uuid.New()
	raw := []byte(fmt.Sprintf(`{"checkout_id":%q,"outcome":"PAID","status":"PAID","total_charged":"40","new_balance":"10","message":"ok"}`, checkoutID))

	gomock.InOrder(
		d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil),
		d.idempRepo.EXPECT().Get(ctx, key).Return(nil, nil),
		d.transactor.EXPECT().Begin(ctx).Return(tx, nil),
		d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
			Return(&domain.Wallet{UserID: userID, Coins: coins("10")}, nil),
		d.idempRepo.EXPECT().Get(ctx, key).Return(&domain.IdempotencyLog{Key: key, ResponseJSON: raw}, nil),
	)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID, IdempotencyKey: "k-5"})
	assert.Equal(t, domain.CheckoutPaid, result.Outcome)
	assert.Equal(t, checkoutID, result.CheckoutID)
	assert.True(t, result.NewBalance.Equal(coins("10")))
}

func TestCheckoutService_Checkout_FreeCartSkipsLedger(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	free := cartLine(userID, "Water", `0.004`, "")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("3")}, nil)
	d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{free}, nil)
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, decimalEq{coins("3")}).Return(nil)
	d.cartRepo.EXPECT().DeleteLines(ctx, tx, userID, []uuid.UUID{free.ID}).Return(int64(1), nil)
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID})
	require.Equal(t, domain.CheckoutPaid, result.Outcome)
	assert.True(t, result.TotalCharged.IsZero())
}

func TestCheckoutService_Checkout_SubCentPriceChargesWholeCents(t *testing.T) {
	d := setupCheckoutService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	line := cartLine(userID, "Gum", `"1.005"`, "")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("10")}, nil)
	d.cartRepo.EXPECT().ListByUserForUpdate(ctx, tx, userID).Return([]domain.CartLine{line}, nil)

	var stored decimal.Decimal
	d.walletRepo.EXPECT().UpdateCoins(ctx, tx, userID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, _ uuid.UUID, c decimal.Decimal) error {
			stored = c
			return nil
		})
	d.cartRepo.EXPECT().DeleteLines(ctx, tx, userID, []uuid.UUID{line.ID}).Return(int64(1), nil)
	var entry *domain.LedgerEntry
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			entry = e
			return nil
		})
	d.outboxRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	result := d.svc.Checkout(ctx, ports.CheckoutRequest{UserID: userID})
	require.Equal(t, domain.CheckoutPaid, result.Outcome)
	assert.Equal(t, "1.01", result.TotalCharged.StringFixed(2))
	assert.True(t, result.NewBalance.Equal(coins("8.99")), "new balance %s", result.NewBalance)
	assert.True(t, result.NewBalance.Equal(stored), "stored %s", stored)
	assert.True(t, stored.Equal(stored.Round(domain.CoinScale)))
	require.NotNil(t, entry)
	assert.True(t, entry.Amount.Equal(*result.TotalCharged))
	assert.True(t, entry.BalanceAfter.Equal(stored))
}

// ==================== Quote Tests ====================

func TestCheckoutService_Quote(t *testing.T) {
	d := setupCheckoutService(t)
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(gomock.Any(), userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("30")}, nil)
	d.cartRepo.EXPECT().ListByUser(gomock.Any(), userID).Return([]domain.CartLine{
		cartLine(userID, "A", `"abc"`, `3`),
		cartLine(userID, "B", `20`, `2`),
	}, nil)

	q, err := d.svc.Quote(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, q.Total.Equal(coins("40")))
	assert.False(t, q.Affordable)
	assert.True(t, q.Shortfall.Equal(coins("10")))
}

func TestCheckoutService_Quote_WalletNotFound(t *testing.T) {
	d := setupCheckoutService(t)
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(nil, nil)
	d.cartRepo.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, nil)

	_, err := d.svc.Quote(context.Background(), userID)
	assertAppError(t, err, "WAL_003")
}

func TestCheckoutService_Quote_EmptyCart(t *testing.T) {
	d := setupCheckoutService(t)
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(gomock.Any(), userID).
		Return(&domain.Wallet{UserID: userID, Coins: coins("5")}, nil)
	d.cartRepo.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, nil)

	q, err := d.svc.Quote(context.Background(), userID)
	require.NoError(t, err)
	assert.NotNil(t, q.Lines)
	assert.True(t, q.Total.IsZero())
	assert.True(t, q.Affordable)
}
