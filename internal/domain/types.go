// Package domain defines the canonical types shared by the parsers,
// classifier, and ledger reconciler.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalRow is one normalized remittance line: a single advance and the
// amounts a funder reported for it this period. Rows are created by a parser
// and never mutated afterwards.
type CanonicalRow struct {
	AdvanceID    string
	MerchantName string
	Gross        decimal.Decimal
	Fee          decimal.Decimal
	Net          decimal.Decimal
}

// NewCanonicalRow creates a validated canonical row. Amounts are rounded to
// 2 decimal places and the fee is forced positive: funders disagree on sign
// conventions but a fee is always a cost.
func NewCanonicalRow(advanceID, merchantName string, gross, fee, net decimal.Decimal) (*CanonicalRow, error) {
	advanceID = strings.TrimSpace(advanceID)
	if advanceID == "" {
		return nil, fmt.Errorf("advance ID cannot be empty")
	}

	return &CanonicalRow{
		AdvanceID:    advanceID,
		MerchantName: strings.TrimSpace(merchantName),
		Gross:        gross.Round(2),
		Fee:          fee.Round(2).Abs(),
		Net:          net.Round(2),
	}, nil
}

// IsZero reports whether all three amounts are zero. Zero rows are dropped
// before totals are computed.
func (r *CanonicalRow) IsZero() bool {
	return r.Gross.IsZero() && r.Fee.IsZero() && r.Net.IsZero()
}

// Totals holds the three grand totals of a parsed report.
type Totals struct {
	Gross decimal.Decimal `json:"gross"`
	Fee   decimal.Decimal `json:"fee"`
	Net   decimal.Decimal `json:"net"`
}

// Add accumulates one row into the totals.
func (t Totals) Add(r CanonicalRow) Totals {
	return Totals{
		Gross: t.Gross.Add(r.Gross),
		Fee:   t.Fee.Add(r.Fee),
		Net:   t.Net.Add(r.Net),
	}
}

// ParseResult is the output of one successful parse: normalized rows plus
// their grand totals. Parse failures are returned as errors, never inside a
// ParseResult.
type ParseResult struct {
	Rows   []CanonicalRow
	Totals Totals
}

// GrandTotalLabel is the merchant-name marker on the synthetic totals row.
const GrandTotalLabel = "Grand Total"

// GrandTotalRow returns the synthetic totals row. Identifier and merchant
// columns are blanked except for the label.
func (p *ParseResult) GrandTotalRow() CanonicalRow {
	return CanonicalRow{
		AdvanceID:    "",
		MerchantName: GrandTotalLabel,
		Gross:        p.Totals.Gross,
		Fee:          p.Totals.Fee,
		Net:          p.Totals.Net,
	}
}

// UnmatchedEntry records an advance identifier that appeared in a report but
// has no row in the target ledger sheet. Unmatched entries are a normal,
// non-fatal outcome of reconciliation.
type UnmatchedEntry struct {
	Sheet        string `json:"sheet"`
	AdvanceID    string `json:"advanceId"`
	MerchantName string `json:"merchantName"`
}

// RegistryEntry is one known advance in the identifier registry. Entries are
// upserted on every sighting and never deleted; re-insertion under a
// different funder overwrites the mapping (most recent classification wins).
type RegistryEntry struct {
	AdvanceID    string
	Funder       string
	MerchantName string
	Portfolio    string
	FirstSeen    time.Time
	LastUpdated  time.Time
}
