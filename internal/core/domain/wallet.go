package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrLockTimeout is returned by storage when a wallet row lock could not be
// acquired in time.
var ErrLockTimeout = errors.New("wallet lock timeout")

// Wallet is a user's spendable coin balance.
type Wallet struct {
	UserID    uuid.UUID       `json:"user_id"`
	Coins     decimal.Decimal `json:"coins"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CanAfford reports whether the wallet covers amount.
func (w *Wallet) CanAfford(amount decimal.Decimal) bool {
	return w.Coins.GreaterThanOrEqual(amount)
}

// RechargeAmounts is the fixed set of amounts a wallet can be topped up with.
type RechargeAmounts []decimal.Decimal

// ParseRechargeAmounts converts decimal literals. Every amount must be positive.
func ParseRechargeAmounts(literals []string) (RechargeAmounts, error) {
	out := make(RechargeAmounts, 0, len(literals))
	for _, lit := range literals {
		d, err := decimal.NewFromString(lit)
		if err != nil {
			return nil, fmt.Errorf("recharge amount %q: %w", lit, err)
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("recharge amount %q must be positive", lit)
		}
		if !d.Equal(d.Round(CoinScale)) {
			return nil, fmt.Errorf("recharge amount %q has more than %d decimals", lit, CoinScale)
		}
		out = append(out, d)
	}
	return out, nil
}

// Allows reports whether amount is one of the configured options.
func (r RechargeAmounts) Allows(amount decimal.Decimal) bool {
	for _, a := range r {
		if a.Equal(amount) {
			return true
		}
	}
	return false
}
