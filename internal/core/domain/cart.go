package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one pending item awaiting checkout. Price and Quantity keep the
// value exactly as the client sent it; use UnitPrice and Qty to read them.
type CartLine struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Name      string          `json:"name"`
	Price     json.RawMessage `json:"price"`
	Quantity  json.RawMessage `json:"quantity,omitempty"`
	ImageRef  string          `json:"image_ref,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnitPrice is the parsed price, 0 when unusable.
func (l CartLine) UnitPrice() decimal.Decimal {
	return ParsePrice(l.Price)
}

// Qty is the parsed quantity, 1 when unusable.
func (l CartLine) Qty() int64 {
	return ParseQuantity(l.Quantity)
}

// Subtotal returns UnitPrice * Qty.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(l.Qty()))
}

// ComputeTotal sums the subtotals of lines. It has no side effects.
func ComputeTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// LineIDs returns the ids of lines in order.
func LineIDs(lines []CartLine) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ID)
	}
	return ids
}

// CartSnapshotItem is the priced form of a line captured at checkout time.
type CartSnapshotItem struct {
	LineID    uuid.UUID       `json:"line_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Snapshot prices every line.
func Snapshot(lines []CartLine) []CartSnapshotItem {
	items := make([]CartSnapshotItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, CartSnapshotItem{
			LineID:    l.ID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice(),
			Quantity:  l.Qty(),
			Subtotal:  l.Subtotal(),
		})
	}
	return items
}
