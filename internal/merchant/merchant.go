// Package merchant normalizes merchant names for use as grouping and index
// keys. Funders spell the same business inconsistently ("Café  Rio", "CAFE
// RIO , LLC"), so pivot grouping and ledger matching run on the normalized
// form while reports keep the original spelling.
package merchant

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize folds a merchant name to a canonical key: accents stripped,
// whitespace collapsed, uppercased. Empty input stays empty.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil || folded == "" {
		// Non-transformable input is normalized structurally only.
		folded = name
	}

	folded = whitespaceRun.ReplaceAllString(folded, " ")
	return strings.ToUpper(strings.TrimSpace(folded))
}
