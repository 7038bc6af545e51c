package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultQuantity is used whenever a line's quantity is missing or unusable.
const DefaultQuantity int64 = 1

// CoinScale is the number of decimal places wallets and the ledger store.
const CoinScale int32 = 2

// Limits on loosely typed numbers. maxLooseMagnitude is below MaxInt64, so a
// quantity within it always fits an int64.
const (
	maxLooseLiteral  = 40
	maxLooseExponent = 18
	minLooseExponent = -18
)

var maxLooseMagnitude = decimal.New(1, 18)

// ErrNumberOutOfRange is reported for a numeric price or quantity too large or
// too precise to be totaled.
var ErrNumberOutOfRange = errors.New("number out of range")

var errNotNumber = errors.New("not a number")

// ParsePrice reads a loosely typed price: a JSON number or a numeric string,
// rounded half up to whole cents. Missing, null, non-numeric, out of range and
// negative values yield 0.
func ParsePrice(raw json.RawMessage) decimal.Decimal {
	d, err := parseLooseDecimal(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(CoinScale)
}

// ParseQuantity reads a loosely typed quantity. Only positive whole numbers
// within range are accepted; anything else yields DefaultQuantity.
func ParseQuantity(raw json.RawMessage) int64 {
	d, err := parseLooseDecimal(raw)
	if err != nil || !d.IsPositive() || !d.IsInteger() {
		return DefaultQuantity
	}
	return d.IntPart()
}

// CheckLooseNumber returns ErrNumberOutOfRange when raw holds a number that
// ParsePrice and ParseQuantity would discard for its size or precision.
// Anything else, including garbage, is accepted.
func CheckLooseNumber(raw json.RawMessage) error {
	if _, err := parseLooseDecimal(raw); errors.Is(err, ErrNumberOutOfRange) {
		return err
	}
	return nil
}

// NumberValue encodes d as a JSON number literal.
func NumberValue(d decimal.Decimal) json.RawMessage {
	return json.RawMessage(d.String())
}

func parseLooseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, errNotNumber
	}

	lit := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, errNotNumber
		}
		lit = strings.TrimSpace(s)
		if lit == "" {
			return decimal.Zero, errNotNumber
		}
	}

	d, err := decimal.NewFromString(lit)
	if err != nil {
		return decimal.Zero, errNotNumber
	}
	// Checked after parsing: the exponent must be bounded before any
	// arithmetic rescales the value.
	if len(lit) > maxLooseLiteral ||
		d.Exponent() > maxLooseExponent || d.Exponent() < minLooseExponent ||
		d.Abs().GreaterThan(maxLooseMagnitude) {
		return decimal.Zero, ErrNumberOutOfRange
	}
	return d, nil
}
