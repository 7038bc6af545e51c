package ports

import (
	"context"
	"encoding/json"
	"time"

	"food-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EncryptionService protects personal fields at rest. A value only decrypts for the owner it was encrypted for.
type EncryptionService interface {
	Encrypt(plaintext string, owner uuid.UUID) (string, error)
	Decrypt(ciphertext string, owner uuid.UUID) (string, error)
}

// SignatureService signs outbox payloads so consumers can authenticate them.
type SignatureService interface {
	Sign(payload []byte, at time.Time) string
	Verify(payload []byte, header string, now time.Time) error
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
	NeedsRehash(hash string) bool
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, email string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	TokenID   string
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MenuCache caches the available menu.
type MenuCache interface {
	Get(ctx context.Context) ([]domain.MenuItem, bool, error)
	Set(ctx context.Context, items []domain.MenuItem, ttl time.Duration) error
}

// RateLimitResult is the outcome of one rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration // zero when allowed
}

// RateLimitStore counts requests per key over a sliding window. Rejected
// requests do not count.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// EventPublisher delivers one outbox event to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// --- Service Ports (Business Logic) ---

// CheckoutService settles a cart against the wallet.
type CheckoutService interface {
	Quote(ctx context.Context, userID uuid.UUID) (*domain.CheckoutQuote, error)
	// Checkout never returns an error: every fault is reported as an outcome.
	Checkout(ctx context.Context, req CheckoutRequest) *domain.CheckoutResult
}

// CheckoutRequest holds validated input for a checkout.
// An empty LineIDs means every line present when the cart is locked.
type CheckoutRequest struct {
	UserID         uuid.UUID
	LineIDs        []uuid.UUID
	IdempotencyKey string
}

// WalletService defines wallet reads and recharges.
type WalletService interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	Overview(ctx context.Context, userID uuid.UUID) (*WalletOverview, error)
	Recharge(ctx context.Context, req RechargeRequest) (*RechargeResult, error)
	History(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	Summary(ctx context.Context, userID uuid.UUID) (*LedgerStats, error)
	RechargeOptions() []decimal.Decimal
}

// RechargeRequest holds validated input for a wallet recharge.
type RechargeRequest struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
}

// RechargeResult is returned (and replayed) for a recharge.
type RechargeResult struct {
	EntryID    uuid.UUID       `json:"entry_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
	CreatedAt  time.Time       `json:"created_at"`
}

// WalletOverview aggregates the home screen data.
type WalletOverview struct {
	Wallet *domain.Wallet       `json:"wallet"`
	Recent []domain.LedgerEntry `json:"recent"`
	Stats  *LedgerStats         `json:"stats"`
}

// CartService manages pending cart lines.
type CartService interface {
	AddMenuItem(ctx context.Context, userID, menuItemID uuid.UUID) (*domain.CartLine, error)
	AddLine(ctx context.Context, userID uuid.UUID, input CartLineInput) (*domain.CartLine, error)
	View(ctx context.Context, userID uuid.UUID) (*CartView, error)
	Remove(ctx context.Context, userID, lineID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}

// CartLineInput is a loosely typed line as sent by a client.
type CartLineInput struct {
	Name     string
	Price    json.RawMessage
	Quantity json.RawMessage
	ImageRef string
}

// CartView is the cart with its computed total.
type CartView struct {
	Lines []domain.CartLine `json:"lines"`
	Total decimal.Decimal   `json:"total"`
}

// MenuService reads the dish catalogue.
type MenuService interface {
	List(ctx context.Context) ([]domain.MenuItem, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.MenuItem, error)
}

// ProfileService manages user profiles.
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)
	Update(ctx context.Context, userID uuid.UUID, input ProfileInput) (*domain.UserProfile, error)
}

// ProfileInput holds editable profile fields.
type ProfileInput struct {
	FirstName string
	LastName  string
	Address   string
	DNI       string
	Info      string
	ImageURL  string
}

// FavoriteService manages saved restaurants.
type FavoriteService interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.Favorite, error)
	Add(ctx context.Context, userID uuid.UUID, input FavoriteInput) (*domain.Favorite, error)
	Remove(ctx context.Context, userID, favoriteID uuid.UUID) error
}

// FavoriteInput holds a restaurant to save.
type FavoriteInput struct {
	Name        string
	Description string
	ImageRef    string
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error) // token, expiry, error
	Me(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// AuditService records audit events without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// OutboxRelay moves pending outbox events to the broker.
type OutboxRelay interface {
	RelayOnce(ctx context.Context) (int, error)
	Run(ctx context.Context)
}
