package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntryType represents the kind of coin movement.
type LedgerEntryType string

const (
	LedgerEntryRecharge LedgerEntryType = "RECHARGE"
	LedgerEntryCheckout LedgerEntryType = "CHECKOUT"
)

// LedgerEntry is an immutable record of one coin movement. Amount is always
// positive; Type tells the direction.
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Type         LedgerEntryType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reference    string          `json:"reference,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IsCredit returns true when the entry added coins.
func (e *LedgerEntry) IsCredit() bool {
	return e.Type == LedgerEntryRecharge
}

// Signed returns Amount with a negative sign for debits.
func (e *LedgerEntry) Signed() decimal.Decimal {
	if e.IsCredit() {
		return e.Amount
	}
	return e.Amount.Neg()
}
