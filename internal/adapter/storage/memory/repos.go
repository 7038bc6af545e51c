package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrWalletNotFound mirrors the zero-rows error of the SQL update.
var ErrWalletNotFound = errors.New("memory: wallet not found")

func lockFor(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	if mt, ok := tx.(*Tx); ok && mt != nil {
		return mt.lock(ctx, userID)
	}
	return nil
}

// --- Users ---

type UserRepository struct{ s *Store }

func NewUserRepository(s *Store) *UserRepository { return &UserRepository{s: s} }

func (r *UserRepository) Create(_ context.Context, tx pgx.Tx, user *domain.User) error {
	r.s.mu.Lock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			r.s.mu.Unlock()
			return domain.ErrEmailTaken
		}
	}
	r.s.mu.Unlock()

	u := *user
	return r.s.write(tx, func() { r.s.users[u.ID] = u })
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return nil
}

// --- Wallets ---

type WalletRepository struct{ s *Store }

func NewWalletRepository(s *Store) *WalletRepository { return &WalletRepository{s: s} }

func (r *WalletRepository) Create(_ context.Context, tx pgx.Tx, wallet *domain.Wallet) error {
	w := *wallet
	return r.s.write(tx, func() { r.s.wallets[w.UserID] = w })
}

func (r *WalletRepository) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// GetByUserIDForUpdate takes the user's row lock, which also covers the cart.
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	if err := lockFor(ctx, tx, userID); err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

func (r *WalletRepository) UpdateCoins(_ context.Context, tx pgx.Tx, userID uuid.UUID, coins decimal.Decimal) error {
	r.s.mu.Lock()
	_, ok := r.s.wallets[userID]
	r.s.mu.Unlock()
	if !ok {
		return ErrWalletNotFound
	}
	return r.s.write(tx, func() {
		w := r.s.wallets[userID]
		w.Coins = coins
		w.UpdatedAt = time.Now().UTC()
		r.s.wallets[userID] = w
	})
}

// SetCoins overwrites a balance outside any transaction.
func (r *WalletRepository) SetCoins(userID uuid.UUID, coins decimal.Decimal) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w := r.s.wallets[userID]
	w.UserID = userID
	w.Coins = coins
	r.s.wallets[userID] = w
}

// --- Cart ---

type CartRepository struct{ s *Store }

func NewCartRepository(s *Store) *CartRepository { return &CartRepository{s: s} }

func (r *CartRepository) Add(_ context.Context, line *domain.CartLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.cart[line.UserID] = append(r.s.cart[line.UserID], *line)
	return nil
}

func (r *CartRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.cart[userID]
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out, nil
}

func (r *CartRepository) ListByUserForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]domain.CartLine, error) {
	if err := lockFor(ctx, tx, userID); err != nil {
		return nil, err
	}
	return r.ListByUser(ctx, userID)
}

func (r *CartRepository) Delete(_ context.Context, userID, lineID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := r.s.removeLines(userID, map[uuid.UUID]struct{}{lineID: {}})
	return n > 0, nil
}

// DeleteLines reports how many of lineIDs exist now; they are removed on commit.
func (r *CartRepository) DeleteLines(_ context.Context, tx pgx.Tx, userID uuid.UUID, lineIDs []uuid.UUID) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	ids := make(map[uuid.UUID]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		ids[id] = struct{}{}
	}

	r.s.mu.Lock()
	var present int64
	for _, l := range r.s.cart[userID] {
		if _, ok := ids[l.ID]; ok {
			present++
		}
	}
	r.s.mu.Unlock()

	if err := r.s.write(tx, func() { r.s.removeLines(userID, ids) }); err != nil {
		return 0, err
	}
	return present, nil
}

func (r *CartRepository) Clear(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.cart[userID]))
	delete(r.s.cart, userID)
	return n, nil
}

// removeLines must be called with s.mu held.
func (s *Store) removeLines(userID uuid.UUID, ids map[uuid.UUID]struct{}) int64 {
	lines := s.cart[userID]
	kept := lines[:0:0]
	var removed int64
	for _, l := range lines {
		if _, ok := ids[l.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	s.cart[userID] = kept
	return removed
}

// --- Ledger ---

type LedgerRepository struct{ s *Store }

func NewLedgerRepository(s *Store) *LedgerRepository { return &LedgerRepository{s: s} }

func (r *LedgerRepository) Create(_ context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	e := *entry
	return r.s.write(tx, func() { r.s.ledger = append(r.s.ledger, e) })
}

func (r *LedgerRepository) List(_ context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.s.mu.Lock()
	var matched []domain.LedgerEntry
	for _, e := range r.s.ledger {
		if e.UserID != params.UserID {
			continue
		}
		if params.Type != nil && e.Type != *params.Type {
			continue
		}
		matched = append(matched, e)
	}
	r.s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page, pageSize := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *LedgerRepository) GetStats(_ context.Context, userID uuid.UUID) (*ports.LedgerStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &ports.LedgerStats{TotalRecharged: decimal.Zero, TotalSpent: decimal.Zero}
	for _, e := range r.s.ledger {
		if e.UserID != userID {
			continue
		}
		switch e.Type {
		case domain.LedgerEntryRecharge:
			stats.Recharges++
			stats.TotalRecharged = stats.TotalRecharged.Add(e.Amount)
		case domain.LedgerEntryCheckout:
			stats.Checkouts++
			stats.TotalSpent = stats.TotalSpent.Add(e.Amount)
		}
	}
	return stats, nil
}

// --- Idempotency ---

type IdempotencyRepository struct{ s *Store }

func NewIdempotencyRepository(s *Store) *IdempotencyRepository {
	return &IdempotencyRepository{s: s}
}

func (r *IdempotencyRepository) Create(_ context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	l := *log
	r.s.mu.Lock()
	_, exists := r.s.idemp[l.Key]
	r.s.mu.Unlock()
	if exists {
		return domain.ErrIdempotencyConflict
	}
	return r.s.write(tx, func() {
		if _, exists := r.s.idemp[l.Key]; !exists {
			r.s.idemp[l.Key] = l
		}
	})
}

func (r *IdempotencyRepository) Get(_ context.Context, key string) (*domain.IdempotencyLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.idemp[key]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *IdempotencyRepository) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, l := range r.s.idemp {
		if l.CreatedAt.Before(cutoff) {
			delete(r.s.idemp, k)
			n++
		}
	}
	return n, nil
}

// --- Menu ---

type MenuRepository struct{ s *Store }

func NewMenuRepository(s *Store) *MenuRepository { return &MenuRepository{s: s} }

// Seed appends items to the catalogue.
func (r *MenuRepository) Seed(items ...domain.MenuItem) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.menu = append(r.s.menu, items...)
}

func (r *MenuRepository) ListAvailable(_ context.Context) ([]domain.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.MenuItem, 0, len(r.s.menu))
	for _, m := range r.s.menu {
		if m.Available {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MenuRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.menu {
		if m.ID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

// --- Profiles ---

type ProfileRepository struct{ s *Store }

func NewProfileRepository(s *Store) *ProfileRepository { return &ProfileRepository{s: s} }

func (r *ProfileRepository) Get(_ context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProfileRepository) Upsert(_ context.Context, profile *domain.UserProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := *profile
	p.DNI = ""
	r.s.profiles[p.UserID] = p
	return nil
}

// --- Favorites ---

type FavoriteRepository struct{ s *Store }

func NewFavoriteRepository(s *Store) *FavoriteRepository { return &FavoriteRepository{s: s} }

func (r *FavoriteRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Favorite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	favs := r.s.favorites[userID]
	out := make([]domain.Favorite, len(favs))
	copy(out, favs)
	return out, nil
}

func (r *FavoriteRepository) Create(_ context.Context, fav *domain.Favorite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.favorites[fav.UserID] = append(r.s.favorites[fav.UserID], *fav)
	return nil
}

func (r *FavoriteRepository) Delete(_ context.Context, userID, favoriteID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	favs := r.s.favorites[userID]
	for i, f := range favs {
		if f.ID == favoriteID {
			r.s.favorites[userID] = append(favs[:i:i], favs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// --- Outbox ---

type OutboxRepository struct{ s *Store }

func NewOutboxRepository(s *Store) *OutboxRepository { return &OutboxRepository{s: s} }

func (r *OutboxRepository) Insert(_ context.Context, tx pgx.Tx, event *domain.OutboxEvent) error {
	e := *event
	return r.s.write(tx, func() { r.s.outbox = append(r.s.outbox, e) })
}

func (r *OutboxRepository) FetchPending(_ context.Context, now time.Time, maxAttempts, limit int) ([]domain.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.OutboxEvent
	for _, e := range r.s.outbox {
		if e.SentAt != nil || e.NextAttemptAt.After(now) || e.Attempts >= maxAttempts {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, id uuid.UUID, sentAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.outbox {
		if r.s.outbox[i].ID == id {
			t := sentAt
			r.s.outbox[i].SentAt = &t
			return nil
		}
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastErr string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.outbox {
		if r.s.outbox[i].ID == id {
			msg := lastErr
			r.s.outbox[i].Attempts = attempts
			r.s.outbox[i].NextAttemptAt = nextAttemptAt
			r.s.outbox[i].LastError = &msg
			return nil
		}
	}
	return nil
}

// --- Audit ---

type AuditRepository struct{ s *Store }

func NewAuditRepository(s *Store) *AuditRepository { return &AuditRepository{s: s} }

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

func (r *AuditRepository) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]domain.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.AuditLog
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		a := r.s.audit[i]
		if a.UserID == nil || *a.UserID != userID {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

var (
	_ ports.UserRepository        = (*UserRepository)(nil)
	_ ports.WalletRepository      = (*WalletRepository)(nil)
	_ ports.CartRepository        = (*CartRepository)(nil)
	_ ports.LedgerRepository      = (*LedgerRepository)(nil)
	_ ports.IdempotencyRepository = (*IdempotencyRepository)(nil)
	_ ports.MenuRepository        = (*MenuRepository)(nil)
	_ ports.ProfileRepository     = (*ProfileRepository)(nil)
	_ ports.FavoriteRepository    = (*FavoriteRepository)(nil)
	_ ports.OutboxRepository      = (*OutboxRepository)(nil)
	_ ports.AuditRepository       = (*AuditRepository)(nil)
	_ ports.DBTransactor          = (*Transactor)(nil)
)
