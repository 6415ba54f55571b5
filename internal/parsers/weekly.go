package parsers

import (
	"fmt"
	"strings"

	"github.com/rumor-ml/commons.systems/remitparse/internal/currency"
	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
	"github.com/rumor-ml/commons.systems/remitparse/internal/tabular"
)

// WeeklyParser handles variable-width reports that append one
// (gross, fee, net) column triplet per historical week. The file keeps every
// prior week, so nothing about the layout is positionally stable except
// that the rightmost non-total "net" column is the current week and the two
// columns immediately before it are that week's gross and fee.
type WeeklyParser struct {
	profile *domain.FunderProfile
}

// Name returns the parser identifier.
func (p *WeeklyParser) Name() string { return "weekly" }

// Parse locates the current week's triplet and converts it to canonical rows.
func (p *WeeklyParser) Parse(path string) (*domain.ParseResult, error) {
	grid, err := tabular.Load(path)
	if err != nil {
		return nil, err
	}

	// The header row floats below a variable amount of preamble; find it by
	// its identifier-column marker instead of assuming row 0.
	headerRow := grid.FindHeaderRow(p.profile.IDColumn)
	if headerRow < 0 {
		return nil, &domain.SchemaMismatchError{Funder: p.profile.Name, Missing: p.profile.RequiredColumns}
	}
	if missing := grid.MissingColumns(headerRow, p.profile.RequiredColumns); len(missing) > 0 {
		return nil, &domain.SchemaMismatchError{Funder: p.profile.Name, Missing: missing}
	}

	netCol, err := currentNetColumn(grid, headerRow)
	if err != nil {
		return nil, fmt.Errorf("funder %s: %w", p.profile.Name, err)
	}
	grossCol, feeCol := netCol-2, netCol-1

	idCol := grid.HeaderIndex(headerRow, p.profile.IDColumn)
	merchantCol := merchantColumn(grid, headerRow, p.profile, idCol)

	var lines []rawLine
	for i := headerRow + 1; i < len(grid); i++ {
		id := grid.Cell(i, idCol)
		if id == "" {
			continue
		}
		lines = append(lines, rawLine{
			advanceID:    id,
			merchantName: grid.Cell(i, merchantCol),
			gross:        currency.Parse(grid.Cell(i, grossCol)),
			fee:          currency.Parse(grid.Cell(i, feeCol)),
			net:          currency.Parse(grid.Cell(i, netCol)),
		})
	}
	return pivot(lines)
}

// currentNetColumn selects the rightmost "net"-labeled header that is not a
// running-total column. Tolerant of an unbounded number of historical weeks.
func currentNetColumn(grid tabular.Grid, headerRow int) (int, error) {
	best := -1
	for j := 0; j < len(grid[headerRow]); j++ {
		header := strings.ToLower(grid.Cell(headerRow, j))
		if !strings.Contains(header, "net") {
			continue
		}
		if strings.Contains(header, "total") || strings.Contains(header, "balance") {
			continue
		}
		if j > best {
			best = j
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("no net column found in header row")
	}
	if best < 2 {
		return 0, fmt.Errorf("net column at index %d has no room for gross and fee columns", best)
	}
	return best, nil
}

// merchantColumn finds the merchant-name column: the second required column
// by convention, falling back to the column right of the identifier.
func merchantColumn(grid tabular.Grid, headerRow int, profile *domain.FunderProfile, idCol int) int {
	if len(profile.RequiredColumns) >= 2 {
		if col := grid.HeaderIndex(headerRow, profile.RequiredColumns[1]); col >= 0 {
			return col
		}
	}
	return idCol + 1
}
