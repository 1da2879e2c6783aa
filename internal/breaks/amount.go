package breaks

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(14,2): two fractional digits, below 10^12.
const moneyScale = 2

var moneyLimit = decimal.New(1, 12)

// FitsMoney reports whether d is stored exactly, without rounding or overflow.
func FitsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyScale)) && d.Abs().LessThan(moneyLimit)
}

// ParseAmount turns free-text user input into a decimal. Both "." and "," are accepted
// as the decimal separator, spaces are treated as digit grouping.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '_':
			return -1
		}
		return r
	}, s)
	s = strings.TrimSuffix(s, "₽")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount: %w", ErrInvalidAmount)
	}

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma > dot:
		// "1.500,50": dots are grouping
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case comma >= 0:
		// "1,500.50"
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, ErrInvalidAmount)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %q: %w", raw, ErrInvalidAmount)
	}
	if !FitsMoney(d) {
		return decimal.Zero, fmt.Errorf("amount %q: more than %d decimals or too large: %w", raw, moneyScale, ErrInvalidAmount)
	}
	return d, nil
}
