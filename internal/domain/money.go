package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in cents.
type Money int64

const (
	// MaxPrice is the largest unit price a product may carry ($999,999.99).
	MaxPrice Money = 99_999_999
	// MaxLineQuantity caps the quantity of one product in a cart.
	MaxLineQuantity = 99
)

// ErrMoneyOverflow reports arithmetic that would not fit in a Money.
var ErrMoneyOverflow = errors.New("money: amount out of range")

// Whole dollars (at most seven digits) with an optional one or two digit
// fraction. Exponents, hex floats and sub-cent fractions are rejected.
var moneyPattern = regexp.MustCompile(`^(\d{1,7})(?:\.(\d{1,2}))?$`)

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// ParseMoney parses a decimal amount such as "12.99" or "$5" into cents.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, fmt.Errorf("parse money: empty amount")
	}
	m := moneyPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("parse money %q: not a dollar amount", s)
	}
	dollars, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	var cents int64
	if frac := m[2]; frac != "" {
		if len(frac) == 1 {
			frac += "0"
		}
		if cents, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return 0, fmt.Errorf("parse money %q: %w", s, err)
		}
	}
	return Money(dollars*100 + cents), nil
}

// Add returns m+n, or ErrMoneyOverflow.
func (m Money) Add(n Money) (Money, error) {
	if (n > 0 && m > math.MaxInt64-n) || (n < 0 && m < math.MinInt64-n) {
		return 0, ErrMoneyOverflow
	}
	return m + n, nil
}

// Times returns m*q for a non-negative quantity, or ErrMoneyOverflow.
func (m Money) Times(q int) (Money, error) {
	if q < 0 {
		return 0, fmt.Errorf("money: negative quantity %d", q)
	}
	if q == 0 || m == 0 {
		return 0, nil
	}
	p := m * Money(q)
	if p/Money(q) != m {
		return 0, ErrMoneyOverflow
	}
	return p, nil
}

// Dollars returns the amount as a float, for display and payment APIs only.
func (m Money) Dollars() float64 {
	return float64(m) / 100
}

// Decimal returns the amount as a plain decimal string ("12.99"), suitable
// for form values.
func (m Money) Decimal() string {
	return strconv.FormatFloat(m.Dollars(), 'f', 2, 64)
}

// String formats the amount for US English display, e.g. "$1,234.50".
func (m Money) String() string {
	if m < 0 {
		return moneyPrinter.Sprintf("-$%.2f", (-m).Dollars())
	}
	return moneyPrinter.Sprintf("$%.2f", m.Dollars())
}
