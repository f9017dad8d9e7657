// Package money provides the fixed-point Money type used for balances and
// amounts. Values carry at most two fractional digits and never pass through
// binary floating point.
package money

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits a Money value carries.
const Places = 2

var (
	ErrInvalidAmount = errors.New("amount must be a decimal with at most 2 fractional digits")
	ErrNegative      = errors.New("amount must not be negative")
)

// Zero is the zero amount.
var Zero = Money{}

// Money is an immutable fixed-point amount.
type Money struct {
	d decimal.Decimal
}

// Parse reads a decimal string such as "12.50".
func Parse(s string) (Money, error) {
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return fromDecimal(d)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromInt returns a whole amount.
func FromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units).Round(Places)}
}

// FromDecimal converts d, rejecting values that need more than two fractional digits.
func FromDecimal(d decimal.Decimal) (Money, error) {
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Round(Places)) {
		return Zero, fmt.Errorf("%w: %s", ErrInvalidAmount, d.String())
	}
	return Money{d: d.Round(Places)}, nil
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool    { return m.d.Equal(o.d) }
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }
func (m Money) IsZero() bool          { return m.d.IsZero() }
func (m Money) IsNegative() bool      { return m.d.IsNegative() }
func (m Money) IsPositive() bool      { return m.d.IsPositive() }

// Decimal exposes the underlying value for aggregation.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Float64 is for metrics only. Never use it for arithmetic on money.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.d.StringFixed(Places)
}

// Sum adds up amounts exactly.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Percentage returns part/total*100 rounded half-up to places.
// A zero total yields zero.
func Percentage(part, total Money, places int32) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero.Round(places)
	}
	return part.d.Mul(decimal.NewFromInt(100)).DivRound(total.d, places)
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a decimal string or a JSON number literal.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, string(data))
		}
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(value interface{}) error {
	switch v := value.(type) {
	case Money:
		*m = v
		return nil
	case decimal.Decimal:
		parsed, err := fromDecimal(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case nil:
		*m = Zero
		return nil
	}

	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("failed to scan money: %w", err)
	}
	*m = Money{d: d.Round(Places)}
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
