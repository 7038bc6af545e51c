package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuItem is a dish that can be added to a cart.
type MenuItem struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageRef    string          `json:"image_ref,omitempty"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToCartLine copies name, price and image into a new line with quantity 1.
func (m *MenuItem) ToCartLine(userID uuid.UUID, now time.Time) *CartLine {
	return &CartLine{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      m.Name,
		Price:     NumberValue(m.Price),
		Quantity:  NumberValue(decimal.NewFromInt(DefaultQuantity)),
		ImageRef:  m.ImageRef,
		CreatedAt: now,
	}
}

// Favorite is a saved restaurant.
type Favorite struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageRef    string    `json:"image_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
