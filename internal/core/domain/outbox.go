package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types written to the outbox.
const (
	EventCheckoutCompleted = "checkout.completed"
	EventWalletRecharged   = "wallet.recharged"
)

// outboxRetryIntervals is the delay before attempt n+1.
var outboxRetryIntervals = []time.Duration{
	5 * time.Second,
	15 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
}

// OutboxEvent is a domain event persisted in the same transaction as the
// state change it describes, and relayed to the broker afterwards.
type OutboxEvent struct {
	ID            uuid.UUID  `json:"id"`
	EventType     string     `json:"event_type"`
	Key           string     `json:"key"`
	Payload       []byte     `json:"payload"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastError     *string    `json:"last_error,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RetryDelay returns the backoff after the given number of failed attempts.
func RetryDelay(attempts int) time.Duration {
	if attempts <= 0 {
		return outboxRetryIntervals[0]
	}
	if attempts > len(outboxRetryIntervals) {
		return outboxRetryIntervals[len(outboxRetryIntervals)-1]
	}
	return outboxRetryIntervals[attempts-1]
}

// CheckoutCompletedEvent is the payload of EventCheckoutCompleted.
type CheckoutCompletedEvent struct {
	CheckoutID uuid.UUID          `json:"checkout_id"`
	UserID     uuid.UUID          `json:"user_id"`
	Items      []CartSnapshotItem `json:"items"`
	Total      decimal.Decimal    `json:"total"`
	NewBalance decimal.Decimal    `json:"new_balance"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// WalletRechargedEvent is the payload of EventWalletRecharged.
type WalletRechargedEvent struct {
	EntryID    uuid.UUID       `json:"entry_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
	OccurredAt time.Time       `json:"occurred_at"`
}
