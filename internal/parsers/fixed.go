package parsers

import (
	"fmt"

	"github.com/rumor-ml/commons.systems/remitparse/internal/currency"
	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
	"github.com/rumor-ml/commons.systems/remitparse/internal/tabular"
)

// FixedParser handles single-file reports with a fixed column layout. The
// canonical amount columns are the last three required columns of the
// profile, in (gross, fee, net) order.
type FixedParser struct {
	profile *domain.FunderProfile
}

// Name returns the parser identifier.
func (p *FixedParser) Name() string { return "fixed" }

// Parse converts a fixed-layout report into canonical rows.
func (p *FixedParser) Parse(path string) (*domain.ParseResult, error) {
	grid, err := tabular.Load(path)
	if err != nil {
		return nil, err
	}
	lines, err := p.extract(grid)
	if err != nil {
		return nil, err
	}
	return pivot(lines)
}

// extract pulls raw lines out of a loaded grid. Shared with the daily
// parser, whose per-day files use the same fixed layout.
func (p *FixedParser) extract(grid tabular.Grid) ([]rawLine, error) {
	headerRow := grid.FindHeaderRow(p.profile.IDColumn)
	if headerRow < 0 {
		return nil, &domain.SchemaMismatchError{Funder: p.profile.Name, Missing: p.profile.RequiredColumns}
	}
	if missing := grid.MissingColumns(headerRow, p.profile.RequiredColumns); len(missing) > 0 {
		return nil, &domain.SchemaMismatchError{Funder: p.profile.Name, Missing: missing}
	}

	cols, err := amountColumns(p.profile)
	if err != nil {
		return nil, err
	}

	idCol := grid.HeaderIndex(headerRow, p.profile.IDColumn)
	merchantCol := grid.HeaderIndex(headerRow, cols.merchant)
	grossCol := grid.HeaderIndex(headerRow, cols.gross)
	feeCol := grid.HeaderIndex(headerRow, cols.fee)
	netCol := grid.HeaderIndex(headerRow, cols.net)

	var lines []rawLine
	for i := headerRow + 1; i < len(grid); i++ {
		id := grid.Cell(i, idCol)
		if id == "" {
			continue // blank or synthetic totals row
		}
		lines = append(lines, rawLine{
			advanceID:    id,
			merchantName: grid.Cell(i, merchantCol),
			gross:        currency.Parse(grid.Cell(i, grossCol)),
			fee:          currency.Parse(grid.Cell(i, feeCol)),
			net:          currency.Parse(grid.Cell(i, netCol)),
		})
	}
	return lines, nil
}

// fixedColumns names the semantic columns of a fixed-layout profile.
type fixedColumns struct {
	merchant, gross, fee, net string
}

// amountColumns maps a fixed profile's required columns to semantics.
// Convention: [id, merchant, gross, fee, net] in required-column order.
func amountColumns(profile *domain.FunderProfile) (fixedColumns, error) {
	if len(profile.RequiredColumns) < 5 {
		return fixedColumns{}, fmt.Errorf("funder %s: fixed layout needs 5 required columns, got %d",
			profile.Name, len(profile.RequiredColumns))
	}
	req := profile.RequiredColumns
	return fixedColumns{
		merchant: req[1],
		gross:    req[2],
		fee:      req[3],
		net:      req[4],
	}, nil
}
