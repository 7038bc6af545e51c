package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// LoginResponse carries a bearer token. Expiry is a Unix timestamp, ExpiresIn is in seconds.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	Expiry    int64  `json:"expiry"`
	ExpiresIn int64  `json:"expires_in"`
}

// WalletResponse is the coin balance plus the amounts it can be recharged with.
type WalletResponse struct {
	Coins           decimal.Decimal   `json:"coins"`
	Currency        string            `json:"currency"`
	RechargeOptions []decimal.Decimal `json:"recharge_options"`
}

// RechargeRequest is the request body for a wallet recharge.
type RechargeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// HistoryQuery holds the query string of the ledger listing.
type HistoryQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Type     string `form:"type" binding:"omitempty,oneof=RECHARGE CHECKOUT"`
}

// AddCartItemRequest adds either a catalogue dish (MenuItemID) or a loose line.
// Price and Quantity are accepted as any short JSON value.
type AddCartItemRequest struct {
	MenuItemID string          `json:"menu_item_id" binding:"omitempty,uuid"`
	Name       string          `json:"name" binding:"max=200"`
	Price      json.RawMessage `json:"price" binding:"max=64"`
	Quantity   json.RawMessage `json:"quantity" binding:"max=64"`
	ImageRef   string          `json:"image_ref" binding:"max=500"`
}

// ClearCartResponse reports how many lines were removed.
type ClearCartResponse struct {
	Removed int64 `json:"removed"`
}

// CheckoutRequest is the request body for checkout. An empty LineIDs pays the whole cart.
type CheckoutRequest struct {
	LineIDs []string `json:"line_ids" binding:"omitempty,max=200,dive,uuid"`
}

// ProfileRequest is the request body for a profile update.
type ProfileRequest struct {
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Address   string `json:"address" binding:"max=255"`
	DNI       string `json:"dni" binding:"omitempty,max=20,document_id"`
	Info      string `json:"info" binding:"max=1000"`
	ImageURL  string `json:"image_url" binding:"omitempty,max=500,image_url" sanitize:"-"`
}

// FavoriteRequest is the request body for saving a restaurant.
type FavoriteRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
	ImageRef    string `json:"image_ref" binding:"max=500"`
}
