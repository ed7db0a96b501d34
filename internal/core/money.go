// Package core provides money handling and the ledger's domain records.
//
// This file contains the Money value type. Amounts are fixed-point decimals
// with two fraction digits, parsed and rounded half-up at the boundaries.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits every Money value carries.
const MoneyScale = 2

// Money is a signed fixed-point amount in the ledger currency.
// The zero value is 0.00 and is ready to use.
type Money struct {
	amount decimal.Decimal
}

// Zero is 0.00.
var Zero = Money{}

// MaxAmount bounds every amount the ledger stores and every bank's running
// deposit total, so stored cents stay far inside int64.
var MaxAmount = MoneyFromCents(100_000_000_000_000) // 1 000 000 000 000.00

// NewMoney rounds d half-up to MoneyScale.
func NewMoney(d decimal.Decimal) Money {
	return Money{amount: d.Round(MoneyScale)}
}

// MoneyFromCents builds an exact amount from minor units.
func MoneyFromCents(cents int64) Money {
	return Money{amount: decimal.New(cents, -MoneyScale)}
}

// MustParseMoney is ParseMoney for literals in tests and fixtures.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney converts a decimal string to Money with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. NaN, Inf, exponents and grouping characters are
// rejected so malformed upstream values never become zero silently.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,345") -> 12.35
//	ParseMoney("-0.5")   -> -0.50
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || digits == "" || strings.Count(digits, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range digits {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	if strings.Trim(digits, ".") == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(d), nil
}

// RoundMoney brings an intermediate decimal back to MoneyScale.
func RoundMoney(d decimal.Decimal) Money {
	return NewMoney(d)
}

// Decimal exposes the underlying value for intermediate computations.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Cents returns the amount in minor units. It is exact only for amounts
// within MaxAmount.
func (m Money) Cents() int64 {
	return m.amount.Shift(MoneyScale).IntPart()
}

func (m Money) Add(o Money) Money {
	return Money{amount: m.amount.Add(o.amount)}
}

func (m Money) Sub(o Money) Money {
	return Money{amount: m.amount.Sub(o.amount)}
}

func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg()}
}

// MulRate multiplies by a rate without rounding.
func (m Money) MulRate(rate decimal.Decimal) decimal.Decimal {
	return m.amount.Mul(rate)
}

// DivFloor splits m into n equal parts truncated to cents.
// The caller owns the remainder.
func (m Money) DivFloor(n int64) Money {
	return Money{amount: m.amount.Div(decimal.NewFromInt(n)).Truncate(MoneyScale)}
}

func (m Money) Cmp(o Money) int {
	return m.amount.Cmp(o.amount)
}

func (m Money) Equal(o Money) bool {
	return m.amount.Equal(o.amount)
}

func (m Money) LessThan(o Money) bool {
	return m.amount.LessThan(o.amount)
}

func (m Money) GreaterThan(o Money) bool {
	return m.amount.GreaterThan(o.amount)
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// ExceedsMax reports whether |m| is above MaxAmount.
func (m Money) ExceedsMax() bool {
	return m.amount.Abs().GreaterThan(MaxAmount.amount)
}

// String formats the amount with exactly two fraction digits, e.g. "1066.19".
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale)
}

// Validate rejects zero, negative and oversized amounts.
func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	if m.ExceedsMax() {
		return ErrAmountTooLarge
	}
	return nil
}

// MarshalJSON encodes Money as a decimal string to keep it out of float64.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts "12.34" or 12.34.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return fmt.Errorf("money: %w", ErrInvalidAmount)
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("money: %w", ErrInvalidAmount)
		}
		raw = s
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return fmt.Errorf("money %q: %w", raw, err)
	}
	*m = parsed
	return nil
}

// SumMoney adds up a list of amounts.
func SumMoney(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
