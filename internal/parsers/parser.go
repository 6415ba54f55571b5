// Package parsers converts funder remittance reports into canonical rows.
// One strategy exists per funder family; all satisfy the same Parse
// contract and are selected through a dispatch table rather than type
// hierarchies.
package parsers

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
	"github.com/rumor-ml/commons.systems/remitparse/internal/merchant"
)

// Parser is the strategy interface for all funder report parsers.
type Parser interface {
	// Name returns the parser identifier (e.g., "fixed", "weekly").
	Name() string

	// Parse converts one raw report file into canonical rows and totals.
	Parse(path string) (*domain.ParseResult, error)
}

// BatchParser is implemented by parsers whose reporting period spans
// several files (one per business day). Callers feed every accumulated
// file for the period at once; days are additive, never deduplicated.
type BatchParser interface {
	Parser
	ParseBatch(paths []string) (*domain.ParseResult, error)
}

// constructors maps funder family to its parser factory.
var constructors = map[domain.Family]func(*domain.FunderProfile) Parser{
	domain.FamilyFixed:   func(p *domain.FunderProfile) Parser { return &FixedParser{profile: p} },
	domain.FamilyWeekly:  func(p *domain.FunderProfile) Parser { return &WeeklyParser{profile: p} },
	domain.FamilyDaily:   func(p *domain.FunderProfile) Parser { return &DailyParser{profile: p} },
	domain.FamilyFormula: func(p *domain.FunderProfile) Parser { return &FormulaParser{profile: p} },
}

// ForFunder returns the parser for a funder profile's family.
func ForFunder(profile *domain.FunderProfile) (Parser, error) {
	ctor, ok := constructors[profile.Family]
	if !ok {
		return nil, fmt.Errorf("no parser for funder family %q", profile.Family)
	}
	return ctor(profile), nil
}

// rawLine is one pre-pivot report line.
type rawLine struct {
	advanceID    string
	merchantName string
	gross        decimal.Decimal
	fee          decimal.Decimal
	net          decimal.Decimal
}

// pivot groups lines by (advance ID, normalized merchant name), sums the
// three amounts per group, drops all-zero groups, and returns rows in
// stable advance-ID order with grand totals.
func pivot(lines []rawLine) (*domain.ParseResult, error) {
	type groupKey struct {
		id       string
		merchant string
	}

	groups := make(map[groupKey]*rawLine)
	var order []groupKey

	for _, line := range lines {
		key := groupKey{id: line.advanceID, merchant: merchant.Normalize(line.merchantName)}
		if g, ok := groups[key]; ok {
			g.gross = g.gross.Add(line.gross)
			g.fee = g.fee.Add(line.fee)
			g.net = g.net.Add(line.net)
			continue
		}
		copied := line
		groups[key] = &copied
		order = append(order, key)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].id != order[j].id {
			return order[i].id < order[j].id
		}
		return order[i].merchant < order[j].merchant
	})

	result := &domain.ParseResult{}
	for _, key := range order {
		g := groups[key]
		row, err := domain.NewCanonicalRow(g.advanceID, g.merchantName, g.gross, g.fee, g.net)
		if err != nil {
			return nil, fmt.Errorf("invalid row for advance %q: %w", g.advanceID, err)
		}
		if row.IsZero() {
			continue
		}
		result.Rows = append(result.Rows, *row)
		result.Totals = result.Totals.Add(*row)
	}

	return result, nil
}
