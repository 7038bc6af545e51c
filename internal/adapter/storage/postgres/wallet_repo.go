package postgres

import (
	"context"
	"errors"
	"fmt"

	"food-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const walletColumns = `user_id, coins::text, currency, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet within the registration transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (user_id, coins, currency, created_at, updated_at)
		VALUES ($1, $2::numeric, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, w.UserID, w.Coins.String(), w.Currency, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByUserID fetches a wallet without locking.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get wallet by user: %w", err)
	}
	return w, nil
}

// GetByUserIDForUpdate fetches a wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, userID))
	if err != nil {
		if hasCode(err, codeLockNotAvailable) {
			return nil, fmt.Errorf("get wallet for update: %w", domain.ErrLockTimeout)
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// UpdateCoins sets the balance within a transaction.
func (r *WalletRepo) UpdateCoins(ctx context.Context, tx pgx.Tx, userID uuid.UUID, coins decimal.Decimal) error {
	query := `UPDATE wallets SET coins = $1::numeric, updated_at = NOW() WHERE user_id = $2`

	tag, err := tx.Exec(ctx, query, coins.String(), userID)
	if err != nil {
		return fmt.Errorf("update wallet coins: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", userID)
	}
	return nil
}

// scanWallet returns nil, nil when the row does not exist.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w     domain.Wallet
		coins string
	)
	if err := row.Scan(&w.UserID, &coins, &w.Currency, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c, err := decimal.NewFromString(coins)
	if err != nil {
		return nil, fmt.Errorf("parse coins %q: %w", coins, err)
	}
	w.Coins = c
	return &w, nil
}
