package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister      AuditAction = "REGISTER"
	AuditActionLogin         AuditAction = "LOGIN"
	AuditActionRecharge      AuditAction = "RECHARGE"
	AuditActionCheckout      AuditAction = "CHECKOUT"
	AuditActionProfileUpdate AuditAction = "PROFILE_UPDATE"
	AuditActionCartClear     AuditAction = "CART_CLEAR"
)

// AuditLog records a single audited action.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       *uuid.UUID  `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	StatusCode   int         `json:"status_code"`
	CreatedAt    time.Time   `json:"created_at"`
}
