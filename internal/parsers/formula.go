package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/rumor-ml/commons.systems/remitparse/internal/currency"
	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
	"github.com/rumor-ml/commons.systems/remitparse/internal/tabular"
)

// FormulaParser handles workbook reports whose amount column is a SUM
// formula over per-week raw columns. Some senders export with stale cached
// formula results (uniformly zero amounts); for those, the parser reads the
// formula text itself, extracts the referenced column range, and recomputes
// the sums from the raw cell values.
type FormulaParser struct {
	profile *domain.FunderProfile
}

// Name returns the parser identifier.
func (p *FormulaParser) Name() string { return "formula" }

// sumRangePattern extracts the column range of a SUM formula, e.g.
// "SUM(D2:K2)" or "=SUM($D$2:$K$2)".
var sumRangePattern = regexp.MustCompile(`(?i)=?\s*SUM\(\$?([A-Z]+)\$?\d+:\$?([A-Z]+)\$?\d+\)`)

// Parse reads the workbook with formulas evaluated and, when the evaluated
// amounts are uniformly zero, falls back to recomputing them from formula
// ranges.
func (p *FormulaParser) Parse(path string) (*domain.ParseResult, error) {
	values, err := tabular.LoadXLSX(path)
	if err != nil {
		return nil, err
	}

	headerRow := values.FindHeaderRow(p.profile.IDColumn)
	if headerRow < 0 {
		return nil, &domain.SchemaMismatchError{Funder: p.profile.Name, Missing: p.profile.RequiredColumns}
	}
	if missing := values.MissingColumns(headerRow, p.profile.RequiredColumns); len(missing) > 0 {
		return nil, &domain.SchemaMismatchError{Funder: p.profile.Name, Missing: missing}
	}

	if len(p.profile.RequiredColumns) < 3 {
		return nil, fmt.Errorf("funder %s: formula layout needs 3 required columns, got %d",
			p.profile.Name, len(p.profile.RequiredColumns))
	}
	idCol := values.HeaderIndex(headerRow, p.profile.IDColumn)
	merchantCol := values.HeaderIndex(headerRow, p.profile.RequiredColumns[1])
	amountCol := values.HeaderIndex(headerRow, p.profile.RequiredColumns[2])

	// Optional explicit gross/fee columns, named by the profile; most
	// exports carry only the net amount, in which case gross mirrors net
	// and the fee is zero.
	grossCol := values.HeaderIndex(headerRow, headerOrDefault(p.profile.GrossColumn, "Gross"))
	feeCol := values.HeaderIndex(headerRow, headerOrDefault(p.profile.FeeColumn, "Fee"))

	dataRows := make([]int, 0, len(values))
	allZero := true
	for i := headerRow + 1; i < len(values); i++ {
		if values.Cell(i, idCol) == "" {
			continue
		}
		dataRows = append(dataRows, i)
		if amt, ok := currency.ParseCell(values.Cell(i, amountCol)); ok && !amt.IsZero() {
			allZero = false
		}
	}

	amounts := make(map[int]decimal.Decimal, len(dataRows))
	if allZero && len(dataRows) > 0 {
		// Broken export: recover the amounts from the formula text.
		recovered, err := p.recomputeFromFormulas(path, values, dataRows, amountCol)
		if err != nil {
			return nil, fmt.Errorf("funder %s: %w", p.profile.Name, err)
		}
		amounts = recovered
	} else {
		for _, i := range dataRows {
			amounts[i] = currency.Parse(values.Cell(i, amountCol))
		}
	}

	var lines []rawLine
	for _, i := range dataRows {
		net := amounts[i]
		gross := net
		if grossCol >= 0 {
			gross = currency.Parse(values.Cell(i, grossCol))
		}
		var fee decimal.Decimal
		if feeCol >= 0 {
			fee = currency.Parse(values.Cell(i, feeCol))
		}
		lines = append(lines, rawLine{
			advanceID:    values.Cell(i, idCol),
			merchantName: values.Cell(i, merchantCol),
			gross:        gross,
			fee:          fee,
			net:          net,
		})
	}
	return pivot(lines)
}

func headerOrDefault(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

// recomputeFromFormulas samples formula text in the amount column, extracts
// the SUM column range, and sums the raw values for every data row.
func (p *FormulaParser) recomputeFromFormulas(path string, values tabular.Grid, dataRows []int, amountCol int) (map[int]decimal.Decimal, error) {
	formulas, err := tabular.LoadFormulas(path)
	if err != nil {
		return nil, err
	}

	// A handful of rows is enough; the range columns are identical per row.
	sample := dataRows
	if len(sample) > 10 {
		sample = sample[:10]
	}

	startCol, endCol := -1, -1
	for _, i := range sample {
		m := sumRangePattern.FindStringSubmatch(formulas.Cell(i, amountCol))
		if m == nil {
			continue
		}
		start, err := excelize.ColumnNameToNumber(strings.ToUpper(m[1]))
		if err != nil {
			continue
		}
		end, err := excelize.ColumnNameToNumber(strings.ToUpper(m[2]))
		if err != nil {
			continue
		}
		startCol, endCol = start-1, end-1
		break
	}
	if startCol < 0 {
		return nil, fmt.Errorf("amount column is uniformly zero and no SUM formula found to recover from")
	}
	if endCol < startCol {
		startCol, endCol = endCol, startCol
	}

	amounts := make(map[int]decimal.Decimal, len(dataRows))
	for _, i := range dataRows {
		sum := decimal.Zero
		for j := startCol; j <= endCol; j++ {
			sum = sum.Add(currency.Parse(values.Cell(i, j)))
		}
		amounts[i] = sum
	}
	return amounts, nil
}
