package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrIdempotencyConflict is returned by storage when a key was stored by a
// concurrent request first.
var ErrIdempotencyConflict = errors.New("idempotency key already stored")

// Idempotency scopes.
const (
	IdempotencyScopeCheckout = "checkout"
	IdempotencyScopeRecharge = "recharge"
)

// IdempotencyLog stores the response of a completed request so a retry with
// the same key replays it instead of charging twice.
type IdempotencyLog struct {
	Key          string    `json:"key"` // user_id:scope:client_key
	ResourceID   uuid.UUID `json:"resource_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildIdempotencyKey constructs the standard key format.
func BuildIdempotencyKey(userID uuid.UUID, scope, clientKey string) string {
	return userID.String() + ":" + scope + ":" + clientKey
}
