package postgres

import (
	"context"
	"fmt"
	"strings"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create inserts a ledger entry within a transaction.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, user_id, type, amount, balance_after, reference, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.UserID, string(e.Type), e.Amount.String(), e.BalanceAfter.String(), e.Reference, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// List returns a page of the user's entries, newest first, plus the total count.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	where := []string{"user_id = $1"}
	args := []any{params.UserID}
	argIdx := 2

	if params.Type != nil {
		where = append(where, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, string(*params.Type))
		argIdx++
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM ledger_entries WHERE " + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	page, pageSize := normalizePage(params.Page, params.PageSize)
	offset := (page - 1) * pageSize

	dataQuery := fmt.Sprintf(
		`SELECT id, user_id, type, amount::text, balance_after::text, reference, created_at
		FROM ledger_entries WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		whereClause, argIdx, argIdx+1,
	)
	args = append(args, pageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e                     domain.LedgerEntry
			typ, amount, balAfter string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &amount, &balAfter, &e.Reference, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Type = domain.LedgerEntryType(typ)
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, 0, fmt.Errorf("parse amount: %w", err)
		}
		if e.BalanceAfter, err = decimal.NewFromString(balAfter); err != nil {
			return nil, 0, fmt.Errorf("parse balance_after: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, total, nil
}

// GetStats aggregates the user's recharges and checkouts.
func (r *LedgerRepo) GetStats(ctx context.Context, userID uuid.UUID) (*ports.LedgerStats, error) {
	query := `SELECT
		COUNT(*) FILTER (WHERE type = 'RECHARGE'),
		COUNT(*) FILTER (WHERE type = 'CHECKOUT'),
		COALESCE(SUM(amount) FILTER (WHERE type = 'RECHARGE'), 0)::text,
		COALESCE(SUM(amount) FILTER (WHERE type = 'CHECKOUT'), 0)::text
		FROM ledger_entries WHERE user_id = $1`

	var (
		stats            ports.LedgerStats
		recharged, spent string
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(&stats.Recharges, &stats.Checkouts, &recharged, &spent)
	if err != nil {
		return nil, fmt.Errorf("get ledger stats: %w", err)
	}
	if stats.TotalRecharged, err = decimal.NewFromString(recharged); err != nil {
		return nil, fmt.Errorf("parse total recharged: %w", err)
	}
	if stats.TotalSpent, err = decimal.NewFromString(spent); err != nil {
		return nil, fmt.Errorf("parse total spent: %w", err)
	}
	return &stats, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
