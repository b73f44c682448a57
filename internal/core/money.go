// Package core provides money parsing and handling utilities.
//
// Amounts are decimal currency values carried as shopspring decimals; they
// are rounded to cents only when parsed from user input or formatted for
// display.
package core

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is used when neither the form nor the company names one.
const DefaultCurrency = "USD"

var maxAmount = decimal.NewFromInt(1_000_000_000)

// ParseAmount converts a user supplied decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding to two decimal places. Signs, exponents, zero and values
// that round to zero are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("0.004")  -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() || d.GreaterThan(maxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatMoney renders "<amount> <currency>", the way totals are shown on the
// dashboard.
func FormatMoney(d decimal.Decimal, cur string) string {
	if cur == "" {
		return FormatAmount(d)
	}
	return fmt.Sprintf("%s %s", FormatAmount(d), cur)
}

// NormalizeCurrency validates a currency given on a form. Three letter
// values must be ISO 4217 codes; short non-alphanumeric values such as "€"
// or "R$" are kept as symbols.
func NormalizeCurrency(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewValidationError("currency", "currency is empty")
	}
	if isLetters(s) {
		unit, err := currency.ParseISO(strings.ToUpper(s))
		if err != nil {
			return "", &ValidationError{Field: "currency", Message: fmt.Sprintf("unknown currency code %q", s), Err: err}
		}
		return unit.String(), nil
	}
	if utf8.RuneCountInString(s) > 3 {
		return "", NewValidationError("currency", fmt.Sprintf("currency symbol %q is too long", s))
	}
	return s, nil
}

// ResolveCurrency picks the currency for a new expense: the explicit value
// when present, else the company's, else DefaultCurrency.
func ResolveCurrency(explicit string, company *Company) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return NormalizeCurrency(explicit)
	}
	if company != nil && strings.TrimSpace(company.Currency) != "" {
		return strings.TrimSpace(company.Currency), nil
	}
	return DefaultCurrency, nil
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
