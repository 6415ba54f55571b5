package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
)

// encodingNames is the fallback order for CSV decoding.
var encodingNames = []string{"UTF-8", "Windows-1252", "ISO-8859-1"}

// Load reads a file into a Grid, dispatching on extension. XLSX loads
// evaluated cell values; use LoadFormulas for the formula view.
func Load(path string) (Grid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	default:
		return LoadCSV(path)
	}
}

// LoadCSV reads a CSV file, falling back through UTF-8, Windows-1252, and
// ISO-8859-1 until one decodes. Files that look binary fail with
// UnreadableFileError.
func LoadCSV(path string) (Grid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// A NUL byte in the sample means this is not a text file at all.
	sample := raw
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return nil, &domain.UnreadableFileError{Path: path, Encodings: encodingNames}
	}

	text, err := decodeText(raw, path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV %s: %w", path, err)
	}
	return Grid(records), nil
}

// decodeText tries each supported encoding in order.
func decodeText(raw []byte, path string) (string, error) {
	if utf8.Valid(raw) {
		// Strip a UTF-8 BOM if present; some funder exports carry one.
		return string(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})), nil
	}
	for _, cm := range []*charmap.Charmap{charmap.Windows1252, charmap.ISO8859_1} {
		decoded, err := cm.NewDecoder().Bytes(raw)
		if err == nil {
			return string(decoded), nil
		}
	}
	return "", &domain.UnreadableFileError{Path: path, Encodings: encodingNames}
}

// LoadXLSX reads the first sheet of a workbook with formulas evaluated to
// their cached values.
func LoadXLSX(path string) (Grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheets[0], path, err)
	}
	return Grid(rows), nil
}

// LoadFormulas reads the first sheet of a workbook with formulas preserved
// as text. Cells without formulas come back as their values. The sheet
// dimension is walked cell by cell because GetRows drops trailing cells
// whose cached value is empty, which is exactly where stale formulas live.
func LoadFormulas(path string) (Grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	sheet := sheets[0]

	rowCount, colCount, err := sheetExtent(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to size sheet %s of %s: %w", sheet, path, err)
	}

	grid := make(Grid, rowCount)
	for i := 0; i < rowCount; i++ {
		grid[i] = make([]string, colCount)
		for j := 0; j < colCount; j++ {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, fmt.Errorf("bad coordinates (%d,%d): %w", j+1, i+1, err)
			}
			if formula, err := f.GetCellFormula(sheet, cell); err == nil && formula != "" {
				grid[i][j] = formula
				continue
			}
			val, err := f.GetCellValue(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("failed to read cell %s: %w", cell, err)
			}
			grid[i][j] = val
		}
	}
	return grid, nil
}

// sheetExtent returns the row and column counts of the sheet's dimension
// ref, falling back to the populated rows when the ref is a single cell.
func sheetExtent(f *excelize.File, sheet string) (rows, cols int, err error) {
	dim, err := f.GetSheetDimension(sheet)
	if err != nil {
		return 0, 0, err
	}
	parts := strings.Split(dim, ":")
	endRef := parts[len(parts)-1]
	col, row, err := excelize.CellNameToCoordinates(endRef)
	if err != nil {
		return 0, 0, err
	}

	populated, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0, err
	}
	if len(populated) > row {
		row = len(populated)
	}
	for _, r := range populated {
		if len(r) > col {
			col = len(r)
		}
	}
	return row, col, nil
}
