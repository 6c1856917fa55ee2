// Package core provides the domain model of the expense tracker: records,
// fixed-point money, calendar periods and the derived result types.
//
// Money never passes through float64. Amounts carry two fractional digits
// and derived percentages and ratios are rounded half-up to two decimals.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	// Money is an exact base-10 currency amount.
	Money struct {
		d decimal.Decimal
	}

	// Rate is a percentage or ratio rounded half-up to two decimals.
	Rate struct {
		d decimal.Decimal
	}
)

var hundred = decimal.NewFromInt(100)

func Zero() Money { return Money{} }

// NewMoney wraps d without rounding.
func NewMoney(d decimal.Decimal) Money { return Money{d: d} }

// FromCents builds an amount from an integer number of cents.
func FromCents(cents int64) Money { return Money{d: decimal.New(cents, -2)} }

// MustMoney parses s and panics on failure. Intended for literals in tests and seeds.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney parses a decimal amount. The dot is the decimal separator and
// may follow thousands groups (1,234.56). A lone comma followed by one or
// two digits is a decimal comma (12,5). Anything else carrying a comma,
// including 4,500, is ambiguous and rejected. More than two fractional
// digits are rounded half-up. Signs are allowed so stored balances
// round-trip.
func ParseMoney(s string) (Money, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Money{}, ErrInvalidAmount
	}
	norm, ok := normalizeSeparators(raw)
	if !ok {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return Money{d: d.Round(2)}, nil
}

// normalizeSeparators rewrites s to dot-decimal form without grouping.
func normalizeSeparators(s string) (string, bool) {
	if !strings.Contains(s, ",") {
		return s, true
	}
	sign := ""
	if s[0] == '+' || s[0] == '-' {
		sign, s = s[:1], s[1:]
	}
	if !strings.Contains(s, ".") {
		intPart, frac, _ := strings.Cut(s, ",")
		if strings.Contains(frac, ",") || len(frac) < 1 || len(frac) > 2 || !allDigits(intPart) || !allDigits(frac) {
			return "", false
		}
		return sign + intPart + "." + frac, true
	}
	intPart, frac, _ := strings.Cut(s, ".")
	groups := strings.Split(intPart, ",")
	if len(groups[0]) < 1 || len(groups[0]) > 3 || !allDigits(groups[0]) {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return "", false
		}
	}
	if !allDigits(frac) {
		return "", false
	}
	return sign + strings.Join(groups, "") + "." + frac, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseAmount parses a user-entered record amount, which must be positive,
// unsigned and carry at most two fractional digits. Separators follow
// ParseMoney.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34
//	ParseAmount("1,234.56") -> 1234.56
//	ParseAmount("12.345")   -> ErrInvalidAmount
//	ParseAmount("4,500")    -> ErrInvalidAmount
//	ParseAmount("-1")       -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	norm, ok := normalizeSeparators(s)
	if !ok {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if _, frac, found := strings.Cut(norm, "."); found && len(frac) > 2 {
		return Money{}, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidAmount, s)
	}
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}, err
	}
	if !m.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// MulRate multiplies by a plain factor and rounds the result to cents.
func (m Money) MulRate(f decimal.Decimal) Money { return Money{d: m.d.Mul(f).Round(2)} }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

// Max returns the larger of m and o.
func (m Money) Max(o Money) Money {
	if m.d.GreaterThanOrEqual(o.d) {
		return m
	}
	return o
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) String() string { return m.d.StringFixed(2) }

// Cents returns the amount in integer cents, rounding half-up.
func (m Money) Cents() int64 { return m.d.Mul(hundred).Round(0).IntPart() }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*m = Money{}
		return nil
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds all amounts; the empty sum is zero.
func Sum(amounts ...Money) Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// PercentOf returns part / whole × 100. A non-positive whole yields zero.
func PercentOf(part, whole Money) Rate {
	if !whole.IsPositive() {
		return Rate{}
	}
	return NewRate(part.d.Mul(hundred).Div(whole.d))
}

// RatioOf returns num / den. A non-positive denominator yields zero.
func RatioOf(num, den Money) Rate {
	if !den.IsPositive() {
		return Rate{}
	}
	return NewRate(num.d.Div(den.d))
}

// ChangePercent returns (curr - prev) / prev × 100, or zero when prev is not positive.
func ChangePercent(curr, prev Money) Rate {
	return PercentOf(curr.Sub(prev), prev)
}

// NewRate rounds d half-up to two decimals.
func NewRate(d decimal.Decimal) Rate { return Rate{d: d.Round(2)} }

// RateOf is NewRate for integer literals.
func RateOf(v int64) Rate { return Rate{d: decimal.NewFromInt(v)} }

func MustRate(s string) Rate { return NewRate(decimal.RequireFromString(s)) }

func (r Rate) Cmp(o Rate) int { return r.d.Cmp(o.d) }

func (r Rate) Equal(o Rate) bool { return r.d.Equal(o.d) }

func (r Rate) IsZero() bool { return r.d.IsZero() }

func (r Rate) Sign() int { return r.d.Sign() }

func (r Rate) Abs() Rate { return Rate{d: r.d.Abs()} }

// Min returns the smaller of r and o.
func (r Rate) Min(o Rate) Rate {
	if r.d.LessThanOrEqual(o.d) {
		return r
	}
	return o
}

func (r Rate) Decimal() decimal.Decimal { return r.d }

func (r Rate) String() string { return r.d.StringFixed(2) }

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

func (r *Rate) UnmarshalJSON(b []byte) error {
	d, err := decimal.NewFromString(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*r = NewRate(d)
	return nil
}
