// Package currency handles locale-formatted money strings from funder
// reports. Parsing is deliberately lenient: a malformed cell becomes zero
// rather than aborting a multi-thousand-row batch.
package currency

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Parse converts a money string to a decimal rounded to 2 places.
// Handles "$1,234.56", "(12.00)" as -12.00, stray whitespace, and bare
// numbers. Empty or unparseable input yields zero; Parse never fails.
func Parse(raw string) decimal.Decimal {
	d, _ := ParseCell(raw)
	return d
}

// ParseCell is Parse with an ok flag for callers that need to distinguish a
// genuine zero from an unparseable cell.
func ParseCell(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	// Accounting convention: parentheses mean negative.
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	// Keep digits, decimal point, and sign; drops $, commas, currency codes.
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)

	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), true
}
