package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(price, qty string) CartLine {
	l := CartLine{ID: uuid.New(), Name: "item"}
	if price != "" {
		l.Price = json.RawMessage(price)
	}
	if qty != "" {
		l.Quantity = json.RawMessage(qty)
	}
	return l
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"number", `12.5`, "12.5"},
		{"integer", `10`, "10"},
		{"numeric string", `"7.25"`, "7.25"},
		{"padded string", `" 3 "`, "3"},
		{"exponent", `1e2`, "100"},
		{"garbage string", `"abc"`, "0"},
		{"empty string", `""`, "0"},
		{"null", `null`, "0"},
		{"missing", ``, "0"},
		{"bool", `true`, "0"},
		{"object", `{"v":1}`, "0"},
		{"negative", `-4`, "0"},
		{"sub cent rounds half up", `"1.005"`, "1.01"},
		{"sub cent rounds down", `0.004`, "0"},
		{"huge exponent", `"1e99999999"`, "0"},
		{"tiny exponent", `"1e-99999999"`, "0"},
		{"above range", `10000000000000000001`, "0"},
		{"largest accepted", `"1e18"`, "1000000000000000000"},
		{"too many digits", `"0.0000000000000000000000001"`, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(json.RawMessage(tt.raw))
			assert.True(t, dec(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int64
	}{
		{"number", `3`, 3},
		{"numeric string", `"2"`, 2},
		{"whole float", `4.0`, 4},
		{"fraction", `2.5`, 1},
		{"zero", `0`, 1},
		{"negative", `-2`, 1},
		{"garbage", `"lots"`, 1},
		{"null", `null`, 1},
		{"missing", ``, 1},
		{"above int64", `"18446744073709551576"`, 1},
		{"above int64 number", `18446744073709551576`, 1},
		{"huge exponent", `1e99999999`, 1},
		{"largest accepted", `1e18`, 1000000000000000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuantity(json.RawMessage(tt.raw)))
		})
	}
}

func TestCheckLooseNumber(t *testing.T) {
	for _, raw := range []string{`"1e99999999"`, `18446744073709551576`, `"1e-30"`} {
		assert.ErrorIs(t, CheckLooseNumber(json.RawMessage(raw)), ErrNumberOutOfRange, raw)
	}
	for _, raw := range []string{``, `null`, `"abc"`, `"12.50"`, `3`, `-4`, `{"v":1}`} {
		assert.NoError(t, CheckLooseNumber(json.RawMessage(raw)), raw)
	}
}

func TestComputeTotal(t *testing.T) {
	t.Run("empty cart is zero", func(t *testing.T) {
		assert.True(t, ComputeTotal(nil).IsZero())
		assert.True(t, ComputeTotal([]CartLine{}).IsZero())
	})

	t.Run("price times quantity", func(t *testing.T) {
		lines := []CartLine{line(`10`, `2`), line(`5`, `1`)}
		assert.True(t, dec("25").Equal(ComputeTotal(lines)))
	})

	t.Run("non numeric price contributes zero", func(t *testing.T) {
		lines := []CartLine{line(`"abc"`, `3`)}
		assert.True(t, ComputeTotal(lines).IsZero())
	})

	t.Run("missing quantity defaults to one", func(t *testing.T) {
		lines := []CartLine{line(`"8.50"`, ``), line(`1.5`, `"x"`)}
		assert.True(t, dec("10").Equal(ComputeTotal(lines)))
	})

	t.Run("decimal precision is kept", func(t *testing.T) {
		lines := []CartLine{line(`0.1`, `1`), line(`0.2`, `1`)}
		assert.Equal(t, "0.3", ComputeTotal(lines).String())
	})

	t.Run("oversized quantity cannot offset the total", func(t *testing.T) {
		lines := []CartLine{line(`50`, `1`), line(`1`, `"18446744073709551576"`)}
		assert.True(t, dec("51").Equal(ComputeTotal(lines)), "got %s", ComputeTotal(lines))
	})

	t.Run("huge exponent does not blow up", func(t *testing.T) {
		lines := []CartLine{line(`"1e99999999"`, `1`), line(`2`, `1e99999999`)}
		assert.True(t, dec("2").Equal(ComputeTotal(lines)))
	})

	t.Run("total is whole cents", func(t *testing.T) {
		lines := []CartLine{line(`"1.005"`, `3`), line(`0.004`, `1`)}
		total := ComputeTotal(lines)
		assert.Equal(t, "3.03", total.StringFixed(2))
		assert.True(t, total.Equal(total.Round(CoinScale)))
	})

	t.Run("subtotals are never negative", func(t *testing.T) {
		for _, raw := range []string{`-1`, `"-9223372036854775808"`, `18446744073709551615`, `"9223372036854775808"`} {
			l := line(`1`, raw)
			assert.False(t, l.Subtotal().IsNegative(), raw)
			assert.False(t, line(raw, `1`).Subtotal().IsNegative(), raw)
		}
	})

	t.Run("pure", func(t *testing.T) {
		lines := []CartLine{line(`3`, `3`), line(`"abc"`, ``)}
		first := ComputeTotal(lines)
		second := ComputeTotal(lines)
		assert.True(t, first.Equal(second))
		assert.Equal(t, `"abc"`, string(lines[1].Price))
	})
}

func TestCartLine_Subtotal(t *testing.T) {
	l := line(`"4.25"`, `"2"`)
	assert.True(t, dec("4.25").Equal(l.UnitPrice()))
	assert.Equal(t, int64(2), l.Qty())
	assert.True(t, dec("8.5").Equal(l.Subtotal()))
}

func TestSnapshot(t *testing.T) {
	lines := []CartLine{line(`2`, `3`), line(`"bad"`, ``)}
	items := Snapshot(lines)

	require.Len(t, items, 2)
	assert.Equal(t, lines[0].ID, items[0].LineID)
	assert.True(t, dec("6").Equal(items[0].Subtotal))
	assert.True(t, items[1].Subtotal.IsZero())
	assert.Equal(t, int64(1), items[1].Quantity)
	assert.Equal(t, []uuid.UUID{lines[0].ID, lines[1].ID}, LineIDs(lines))
}

func TestMenuItem_ToCartLine(t *testing.T) {
	userID := uuid.New()
	item := &MenuItem{ID: uuid.New(), Name: "Empanada", Price: dec("3.50"), ImageRef: "https://img/empanada.png"}
	now := time.Now().UTC()

	l := item.ToCartLine(userID, now)

	assert.Equal(t, userID, l.UserID)
	assert.Equal(t, "Empanada", l.Name)
	assert.Equal(t, int64(1), l.Qty())
	assert.True(t, dec("3.5").Equal(l.UnitPrice()))
	assert.Equal(t, "https://img/empanada.png", l.ImageRef)
	assert.Equal(t, now, l.CreatedAt)
}

func TestWallet_CanAfford(t *testing.T) {
	w := &Wallet{Coins: dec("30")}
	assert.True(t, w.CanAfford(dec("30")))
	assert.True(t, w.CanAfford(dec("0")))
	assert.False(t, w.CanAfford(dec("30.01")))
}

func TestRechargeAmounts(t *testing.T) {
	amounts, err := ParseRechargeAmounts([]string{"5", "10", "20", "50"})
	require.NoError(t, err)

	assert.True(t, amounts.Allows(dec("10")))
	assert.True(t, amounts.Allows(dec("50.00")))
	assert.False(t, amounts.Allows(dec("15")))

	_, err = ParseRechargeAmounts([]string{"five"})
	assert.Error(t, err)
	_, err = ParseRechargeAmounts([]string{"-5"})
	assert.Error(t, err)
	_, err = ParseRechargeAmounts([]string{"2.005"})
	assert.Error(t, err)
}

func TestCheckoutStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to CheckoutStatus
		want     bool
	}{
		{CheckoutStatusIdle, CheckoutStatusValidating, true},
		{CheckoutStatusIdle, CheckoutStatusSettling, false},
		{CheckoutStatusValidating, CheckoutStatusRejected, true},
		{CheckoutStatusValidating, CheckoutStatusSettling, true},
		{CheckoutStatusValidating, CheckoutStatusPaid, false},
		{CheckoutStatusSettling, CheckoutStatusCleared, true},
		{CheckoutStatusSettling, CheckoutStatusFailed, true},
		{CheckoutStatusCleared, CheckoutStatusPaid, true},
		{CheckoutStatusCleared, CheckoutStatusFailed, true},
		{CheckoutStatusPaid, CheckoutStatusIdle, false},
		{CheckoutStatusRejected, CheckoutStatusSettling, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCheckoutStatus_IsTerminal(t *testing.T) {
	assert.True(t, CheckoutStatusPaid.IsTerminal())
	assert.True(t, CheckoutStatusRejected.IsTerminal())
	assert.True(t, CheckoutStatusFailed.IsTerminal())
	assert.False(t, CheckoutStatusIdle.IsTerminal())
	assert.False(t, CheckoutStatusCleared.IsTerminal())
}

func TestCheckoutResult_Lifecycle(t *testing.T) {
	t.Run("paid", func(t *testing.T) {
		r := NewCheckoutResult()
		require.True(t, r.Advance(CheckoutStatusValidating))
		require.True(t, r.Advance(CheckoutStatusSettling))
		require.True(t, r.Advance(CheckoutStatusCleared))
		id := uuid.New()
		r.Pay(id, dec("30"), dec("70"), nil)

		assert.Equal(t, CheckoutPaid, r.Outcome)
		assert.Equal(t, CheckoutStatusPaid, r.Status)
		assert.True(t, r.IsPaid())
		assert.Equal(t, "Payment of 30.00 completed. New balance: 70.00", r.Message)
		assert.True(t, dec("70").Equal(*r.NewBalance))
	})

	t.Run("rejected", func(t *testing.T) {
		r := NewCheckoutResult()
		r.Advance(CheckoutStatusValidating)
		r.Reject(CheckoutInsufficientFunds)

		assert.Equal(t, CheckoutStatusRejected, r.Status)
		assert.Equal(t, "Insufficient balance", r.Message)
		assert.Nil(t, r.TotalCharged)
		assert.Nil(t, r.NewBalance)
	})

	t.Run("failed clears amounts", func(t *testing.T) {
		r := NewCheckoutResult()
		r.Advance(CheckoutStatusValidating)
		r.Advance(CheckoutStatusSettling)
		cause := errors.New("connection reset")
		r.Fail(cause)

		assert.Equal(t, CheckoutFailed, r.Outcome)
		assert.Equal(t, CheckoutStatusFailed, r.Status)
		assert.ErrorIs(t, r.Err, cause)
		assert.Nil(t, r.TotalCharged)
	})

	t.Run("illegal advance is refused", func(t *testing.T) {
		r := NewCheckoutResult()
		assert.False(t, r.Advance(CheckoutStatusPaid))
		assert.Equal(t, CheckoutStatusIdle, r.Status)
	})
}

func TestNewCheckoutQuote(t *testing.T) {
	q := NewCheckoutQuote([]CartLine{line(`10`, `2`), line(`5`, ``)}, dec("10"))
	assert.True(t, dec("25").Equal(q.Total))
	assert.False(t, q.Affordable)
	assert.True(t, dec("15").Equal(q.Shortfall))

	q = NewCheckoutQuote(nil, dec("10"))
	assert.True(t, q.Affordable)
	assert.True(t, q.Shortfall.IsZero())
}

func TestLedgerEntry_Signed(t *testing.T) {
	credit := &LedgerEntry{Type: LedgerEntryRecharge, Amount: dec("20")}
	debit := &LedgerEntry{Type: LedgerEntryCheckout, Amount: dec("12.5")}

	assert.True(t, credit.IsCredit())
	assert.True(t, dec("20").Equal(credit.Signed()))
	assert.True(t, dec("-12.5").Equal(debit.Signed()))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, RetryDelay(0))
	assert.Equal(t, 5*time.Second, RetryDelay(1))
	assert.Equal(t, time.Minute, RetryDelay(3))
	assert.Equal(t, 15*time.Minute, RetryDelay(99))
}

func TestBuildIdempotencyKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	key := BuildIdempotencyKey(id, IdempotencyScopeCheckout, "abc-1")
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000:checkout:abc-1", key)
}

func TestUserProfile_FullName(t *testing.T) {
	assert.Equal(t, "Ana Ruiz", (&UserProfile{FirstName: "Ana", LastName: "Ruiz"}).FullName())
	assert.Equal(t, "Ana", (&UserProfile{FirstName: "Ana"}).FullName())
	assert.Equal(t, "Ruiz", (&UserProfile{LastName: "Ruiz"}).FullName())
}
