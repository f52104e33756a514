package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ErrInvalidMoney is returned when an amount cannot be parsed as a
// non-negative decimal with at most two fractional digits.
var ErrInvalidMoney = errors.New("invalid money amount")

var moneyPattern = regexp.MustCompile(`^(\d+(\.\d{1,2})?|\.\d{1,2})$`)

// Money is a currency amount. It maps to NUMERIC(10,2) columns and is
// rendered in JSON as a decimal string with two fractional digits.
type Money struct {
	d decimal.Decimal
}

// MoneyFromCents builds an amount from minor units.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// ParseMoney parses "49.99", "50" or "49.9" into Money.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !moneyPattern.MatchString(s) {
		return Money{}, ErrInvalidMoney
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidMoney
	}
	return Money{d: d}, nil
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.d.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// Equal compares amounts by value, so 49.9 equals 49.90.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// Cents returns the amount in minor units.
func (m Money) Cents() int64 { return m.d.Shift(2).IntPart() }

// String formats the amount with two decimals, e.g. "49.99".
func (m Money) String() string { return m.d.StringFixed(2) }

// MarshalJSON renders the amount as a JSON string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "49.99" and 49.99.
func (m *Money) UnmarshalJSON(data []byte) error {
	v, err := ParseMoney(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	if src == nil {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	*m = Money{d: d}
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// NumericValue implements pgtype.NumericValuer.
func (m Money) NumericValue() (pgtype.Numeric, error) {
	return pgtype.Numeric{Int: m.d.Coefficient(), Exp: m.d.Exponent(), Valid: true}, nil
}

// ScanNumeric implements pgtype.NumericScanner.
func (m *Money) ScanNumeric(n pgtype.Numeric) error {
	if !n.Valid {
		*m = Money{}
		return nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return fmt.Errorf("scan money: %w", ErrInvalidMoney)
	}
	*m = Money{d: decimal.NewFromBigInt(n.Int, n.Exp)}
	return nil
}
