package ports

import (
	"context"
	"time"

	"food-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside a transaction; ForUpdate variants hold the row lock until commit.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	UpdateCoins(ctx context.Context, tx pgx.Tx, userID uuid.UUID, coins decimal.Decimal) error
}

// CartRepository defines persistence operations for cart lines.
type CartRepository interface {
	Add(ctx context.Context, line *domain.CartLine) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error)
	ListByUserForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]domain.CartLine, error)
	// Delete is idempotent: deleting an absent line returns (false, nil).
	Delete(ctx context.Context, userID, lineID uuid.UUID) (bool, error)
	DeleteLines(ctx context.Context, tx pgx.Tx, userID uuid.UUID, lineIDs []uuid.UUID) (int64, error)
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}

// LedgerRepository records coin movements.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	List(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*LedgerStats, error)
}

// LedgerListParams holds filter + pagination for listing ledger entries.
type LedgerListParams struct {
	UserID   uuid.UUID
	Type     *domain.LedgerEntryType
	Page     int
	PageSize int
}

// LedgerStats holds aggregated wallet activity.
type LedgerStats struct {
	Recharges      int64           `json:"recharges"`
	Checkouts      int64           `json:"checkouts"`
	TotalRecharged decimal.Decimal `json:"total_recharged"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup of the cache).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MenuRepository reads the dish catalogue.
type MenuRepository interface {
	ListAvailable(ctx context.Context) ([]domain.MenuItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MenuItem, error)
}

// ProfileRepository stores one profile per user.
type ProfileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)
	Upsert(ctx context.Context, profile *domain.UserProfile) error
}

// FavoriteRepository stores saved restaurants.
type FavoriteRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Favorite, error)
	Create(ctx context.Context, fav *domain.Favorite) error
	Delete(ctx context.Context, userID, favoriteID uuid.UUID) (bool, error)
}

// OutboxRepository persists domain events for asynchronous relay.
type OutboxRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error
	// FetchPending skips events that already used maxAttempts.
	FetchPending(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.OutboxEvent, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastErr string) error
}

// AuditRepository persists audit records.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
