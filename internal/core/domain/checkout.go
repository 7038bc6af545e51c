package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutOutcome is the final answer of one checkout invocation.
type CheckoutOutcome string

const (
	CheckoutPaid              CheckoutOutcome = "PAID"
	CheckoutInsufficientFunds CheckoutOutcome = "INSUFFICIENT_FUNDS"
	CheckoutWalletNotFound    CheckoutOutcome = "WALLET_NOT_FOUND"
	CheckoutEmptyCart         CheckoutOutcome = "EMPTY_CART"
	CheckoutCartChanged       CheckoutOutcome = "CART_CHANGED"
	CheckoutFailed            CheckoutOutcome = "FAILED"
)

// CheckoutStatus tracks the progress of a single invocation.
type CheckoutStatus string

const (
	CheckoutStatusIdle       CheckoutStatus = "IDLE"
	CheckoutStatusValidating CheckoutStatus = "VALIDATING"
	CheckoutStatusRejected   CheckoutStatus = "REJECTED"
	CheckoutStatusSettling   CheckoutStatus = "SETTLING"
	CheckoutStatusCleared    CheckoutStatus = "CLEARED"
	CheckoutStatusPaid       CheckoutStatus = "PAID"
	CheckoutStatusFailed     CheckoutStatus = "FAILED"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle:       {CheckoutStatusValidating},
	CheckoutStatusValidating: {CheckoutStatusRejected, CheckoutStatusSettling, CheckoutStatusFailed},
	CheckoutStatusSettling:   {CheckoutStatusCleared, CheckoutStatusFailed},
	CheckoutStatusCleared:    {CheckoutStatusPaid, CheckoutStatusFailed},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s CheckoutStatus) CanTransitionTo(next CheckoutStatus) bool {
	for _, allowed := range checkoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true for states that end an invocation.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusRejected || s == CheckoutStatusPaid || s == CheckoutStatusFailed
}

func (s CheckoutStatus) String() string {
	return string(s)
}

// CheckoutResult is the transient report of a checkout. TotalCharged and
// NewBalance are only set when Outcome is CheckoutPaid.
type CheckoutResult struct {
	CheckoutID   uuid.UUID        `json:"checkout_id"`
	Outcome      CheckoutOutcome  `json:"outcome"`
	Status       CheckoutStatus   `json:"status"`
	TotalCharged *decimal.Decimal `json:"total_charged,omitempty"`
	NewBalance   *decimal.Decimal `json:"new_balance,omitempty"`
	LineIDs      []uuid.UUID      `json:"line_ids,omitempty"`
	Message      string           `json:"message"`
	Err          error            `json:"-"`
}

// NewCheckoutResult starts a result in the Idle state.
func NewCheckoutResult() *CheckoutResult {
	return &CheckoutResult{Status: CheckoutStatusIdle}
}

// Advance moves the result to next if the transition is legal.
func (r *CheckoutResult) Advance(next CheckoutStatus) bool {
	if !r.Status.CanTransitionTo(next) {
		return false
	}
	r.Status = next
	return true
}

// Reject ends the invocation with a business outcome and no mutation.
func (r *CheckoutResult) Reject(outcome CheckoutOutcome) *CheckoutResult {
	r.Advance(CheckoutStatusRejected)
	r.Outcome = outcome
	r.Message = outcomeMessage(outcome)
	return r
}

// Fail ends the invocation after an unexpected fault.
func (r *CheckoutResult) Fail(err error) *CheckoutResult {
	if !r.Status.IsTerminal() {
		r.Status = CheckoutStatusFailed
	}
	r.Outcome = CheckoutFailed
	r.TotalCharged = nil
	r.NewBalance = nil
	r.Message = outcomeMessage(CheckoutFailed)
	r.Err = err
	return r
}

// Pay ends the invocation successfully.
func (r *CheckoutResult) Pay(checkoutID uuid.UUID, total, newBalance decimal.Decimal, lineIDs []uuid.UUID) *CheckoutResult {
	r.Advance(CheckoutStatusPaid)
	r.CheckoutID = checkoutID
	r.Outcome = CheckoutPaid
	r.TotalCharged = &total
	r.NewBalance = &newBalance
	r.LineIDs = lineIDs
	r.Message = fmt.Sprintf("Payment of %s completed. New balance: %s", total.StringFixed(2), newBalance.StringFixed(2))
	return r
}

// IsPaid is shorthand for Outcome == CheckoutPaid.
func (r *CheckoutResult) IsPaid() bool {
	return r.Outcome == CheckoutPaid
}

func outcomeMessage(o CheckoutOutcome) string {
	switch o {
	case CheckoutInsufficientFunds:
		return "Insufficient balance"
	case CheckoutWalletNotFound:
		return "Wallet not found"
	case CheckoutEmptyCart:
		return "Cart is empty"
	case CheckoutCartChanged:
		return "Cart changed, review it and try again"
	default:
		return "Payment could not be completed"
	}
}

// CheckoutQuote previews a checkout without side effects.
type CheckoutQuote struct {
	Lines      []CartLine      `json:"lines"`
	Total      decimal.Decimal `json:"total"`
	Coins      decimal.Decimal `json:"coins"`
	Affordable bool            `json:"affordable"`
	Shortfall  decimal.Decimal `json:"shortfall"`
}

// NewCheckoutQuote totals lines against the available coins.
func NewCheckoutQuote(lines []CartLine, coins decimal.Decimal) *CheckoutQuote {
	total := ComputeTotal(lines)
	q := &CheckoutQuote{
		Lines:      lines,
		Total:      total,
		Coins:      coins,
		Affordable: coins.GreaterThanOrEqual(total),
		Shortfall:  decimal.Zero,
	}
	if !q.Affordable {
		q.Shortfall = total.Sub(coins)
	}
	return q
}
