// Package model holds the data shapes shared by the journal, contract
// engine, ingest pipeline, and gossip/consensus packages: journal records,
// derived contracts and wallets, and the fixed-point amount type balances
// and supplies are expressed in.
package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a fixed-point quantity scaled to a token's declared `de` digits.
// It wraps shopspring/decimal so balance and supply arithmetic always keeps
// the token's declared scale instead of drifting to the library's default
// banker's-rounding behaviour.
type Amount struct {
	d     decimal.Decimal
	scale int32
}

// NewAmount builds an Amount at the given scale (0..8) from an integer
// number of whole tokens: NewAmount(1000, 2) is 1000.00.
func NewAmount(units int64, scale int32) Amount {
	return Amount{d: decimal.New(units, 0), scale: scale}
}

// AmountFromString parses a decimal string at the given scale, rounding to
// that scale if the input carries more digits than the token allows.
func AmountFromString(s string, scale int32) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{d: d.Round(scale), scale: scale}, nil
}

// Zero returns the zero amount at the given scale.
func Zero(scale int32) Amount { return Amount{d: decimal.Zero, scale: scale} }

// Scale reports the number of fractional digits this amount is fixed to.
func (a Amount) Scale() int32 { return a.scale }

// IsIntegral reports whether the amount has no fractional part, the
// precondition GENESIS/BURN/MINT quantities must satisfy (spec.md §3).
func (a Amount) IsIntegral() bool {
	return a.d.Truncate(0).Equal(a.d)
}

// Add returns a+b. Both must share the same scale.
func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d), scale: a.scale} }

// Sub returns a-b. Both must share the same scale.
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d), scale: a.scale} }

// Cmp compares a to b (-1, 0, 1), mirroring decimal.Decimal.Cmp.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// GreaterThan reports a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }

// GreaterThanOrEqual reports a >= b.
func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.d.GreaterThanOrEqual(b.d) }

// IsNegative reports a < 0.
func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// String renders the amount at its fixed scale, e.g. "1000.00".
func (a Amount) String() string { return a.d.StringFixed(a.scale) }

// MarshalJSON renders the amount as a JSON number string, matching how a
// document store's native decimal type round-trips through JSON.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses either a JSON string or number into an Amount. The
// scale is preserved from whatever the receiver already carries; callers
// that decode into a zero-value Amount must call SetScale afterwards.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// fall back to numeric literal form
		var f json.Number
		if err2 := json.Unmarshal(b, &f); err2 != nil {
			return err
		}
		s = f.String()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	a.d = d
	return nil
}

// SetScale fixes the amount's scale after JSON decoding, rounding to match.
func (a Amount) SetScale(scale int32) Amount {
	return Amount{d: a.d.Round(scale), scale: scale}
}
