// Package ledger reconciles canonical remittance rows into the long-lived
// portfolio workbook: one sheet per funder, one row per advance, one dated
// column per reporting period, and a running-balance formula column that is
// regenerated in full on every run. The workbook is treated as a mutable
// external resource: backed up before mutation, patched in memory, and
// saved only after every row has been processed.
package ledger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
)

// Config fixes the structural contract of the ledger workbook. These
// positions are configuration, not inference: the reconciler validates them
// and fails fast when the anchor is missing.
type Config struct {
	// HeaderRow is the 1-based row holding column headers.
	HeaderRow int
	// IDColumn is the 1-based column holding advance identifiers.
	IDColumn int
	// MerchantColumn is the 1-based column holding merchant names.
	MerchantColumn int
	// FirstPeriodColumn is the 1-based column of the oldest period column.
	FirstPeriodColumn int
	// AnchorHeader is the header text of the running-balance column. Period
	// columns are inserted immediately before it, never appended at the
	// sheet's end, so the balance column stays trailing.
	AnchorHeader string
}

// DefaultConfig matches the portfolio workbooks in production use.
func DefaultConfig() Config {
	return Config{
		HeaderRow:         2,
		IDColumn:          1,
		MerchantColumn:    2,
		FirstPeriodColumn: 3,
		AnchorHeader:      "Running Balance",
	}
}

// Validate checks the structural contract for internal consistency.
func (c Config) Validate() error {
	if c.HeaderRow < 1 {
		return fmt.Errorf("header row must be >= 1, got %d", c.HeaderRow)
	}
	if c.IDColumn < 1 || c.MerchantColumn < 1 || c.FirstPeriodColumn < 1 {
		return fmt.Errorf("column indexes must be >= 1")
	}
	if c.FirstPeriodColumn <= c.IDColumn || c.FirstPeriodColumn <= c.MerchantColumn {
		return fmt.Errorf("first period column must lie right of the identity columns")
	}
	if strings.TrimSpace(c.AnchorHeader) == "" {
		return fmt.Errorf("anchor header cannot be empty")
	}
	return nil
}

// Reconciler merges canonical rows into one ledger workbook.
type Reconciler struct {
	path   string
	config Config
}

// New creates a reconciler for the workbook at path.
func New(path string, config Config) (*Reconciler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger config: %w", err)
	}
	return &Reconciler{path: path, config: config}, nil
}

// Reconcile writes each row's net amount into the period column of the
// funder's sheet. Safe to re-run for the same period: the period column is
// located before it is created, and cell writes are absolute. Identifiers
// without a ledger row come back as unmatched entries; they never fail the
// run. The workbook is saved only after every row has been processed.
func (r *Reconciler) Reconcile(sheet string, rows []domain.CanonicalRow, period string) ([]domain.UnmatchedEntry, error) {
	if strings.TrimSpace(period) == "" {
		return nil, fmt.Errorf("period label cannot be empty")
	}

	if err := r.backup(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", r.path, err)
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("ledger has no sheet for funder %q", sheet)
	}

	anchorCol, err := r.findAnchor(f, sheet)
	if err != nil {
		return nil, err
	}

	periodCol, anchorCol, err := r.locatePeriodColumn(f, sheet, anchorCol, period)
	if err != nil {
		return nil, err
	}

	lastRow, index, err := r.indexIdentifiers(f, sheet)
	if err != nil {
		return nil, err
	}

	if err := r.rebuildRunningTotals(f, sheet, anchorCol, lastRow); err != nil {
		return nil, err
	}

	var unmatched []domain.UnmatchedEntry
	for _, row := range rows {
		if row.AdvanceID == "" || row.MerchantName == domain.GrandTotalLabel {
			continue
		}
		sheetRow, ok := index[strings.TrimSpace(row.AdvanceID)]
		if !ok {
			unmatched = append(unmatched, domain.UnmatchedEntry{
				Sheet:        sheet,
				AdvanceID:    row.AdvanceID,
				MerchantName: row.MerchantName,
			})
			continue
		}
		cell, err := excelize.CoordinatesToCellName(periodCol, sheetRow)
		if err != nil {
			return nil, fmt.Errorf("bad period cell (%d,%d): %w", periodCol, sheetRow, err)
		}
		net, _ := row.Net.Float64()
		if err := f.SetCellValue(sheet, cell, net); err != nil {
			return nil, fmt.Errorf("failed to write net for %s: %w", row.AdvanceID, err)
		}
	}

	if err := f.Save(); err != nil {
		return nil, fmt.Errorf("failed to save ledger %s: %w", r.path, err)
	}
	return unmatched, nil
}

// backup copies the workbook aside before any mutation so a destructive
// formatting bug can always be rolled back by hand.
func (r *Reconciler) backup() error {
	src, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open ledger for backup: %w", err)
	}
	defer src.Close()

	stamp := time.Now().Format("20060102-150405")
	ext := filepath.Ext(r.path)
	backupPath := strings.TrimSuffix(r.path, ext) + ".backup-" + stamp + ext

	dst, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("failed to create ledger backup: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write ledger backup: %w", err)
	}
	return nil
}

// findAnchor locates the running-balance column by header text.
func (r *Reconciler) findAnchor(f *excelize.File, sheet string) (int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < r.config.HeaderRow {
		return 0, &domain.AnchorNotFoundError{Sheet: sheet, Anchor: r.config.AnchorHeader}
	}
	header := rows[r.config.HeaderRow-1]
	for i, cell := range header {
		if strings.EqualFold(strings.TrimSpace(cell), r.config.AnchorHeader) {
			return i + 1, nil
		}
	}
	return 0, &domain.AnchorNotFoundError{Sheet: sheet, Anchor: r.config.AnchorHeader}
}

// locatePeriodColumn finds the column labeled with the period, creating it
// immediately before the anchor when absent. Returns the (possibly shifted)
// anchor column alongside. The exact-label search makes reruns idempotent.
func (r *Reconciler) locatePeriodColumn(f *excelize.File, sheet string, anchorCol int, period string) (periodCol, newAnchorCol int, err error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	header := rows[r.config.HeaderRow-1]
	for i, cell := range header {
		if strings.TrimSpace(cell) == period {
			return i + 1, anchorCol, nil
		}
	}

	anchorName, err := excelize.ColumnNumberToName(anchorCol)
	if err != nil {
		return 0, 0, fmt.Errorf("bad anchor column %d: %w", anchorCol, err)
	}
	if err := f.InsertCols(sheet, anchorName, 1); err != nil {
		return 0, 0, fmt.Errorf("failed to insert period column: %w", err)
	}
	periodCol = anchorCol
	newAnchorCol = anchorCol + 1

	if err := r.copyColumnFormatting(f, sheet, periodCol); err != nil {
		return 0, 0, err
	}

	headerCell, err := excelize.CoordinatesToCellName(periodCol, r.config.HeaderRow)
	if err != nil {
		return 0, 0, fmt.Errorf("bad header cell: %w", err)
	}
	if err := f.SetCellValue(sheet, headerCell, period); err != nil {
		return 0, 0, fmt.Errorf("failed to label period column: %w", err)
	}
	return periodCol, newAnchorCol, nil
}

// copyColumnFormatting clones width and cell styles (font, border, fill,
// number format, alignment, protection travel with the style ID) from the
// column immediately left of col, so an inserted period column is visually
// indistinguishable from its historical neighbors.
func (r *Reconciler) copyColumnFormatting(f *excelize.File, sheet string, col int) error {
	if col < 2 {
		return nil
	}
	leftName, err := excelize.ColumnNumberToName(col - 1)
	if err != nil {
		return fmt.Errorf("bad column %d: %w", col-1, err)
	}
	colName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return fmt.Errorf("bad column %d: %w", col, err)
	}

	if width, err := f.GetColWidth(sheet, leftName); err == nil {
		if err := f.SetColWidth(sheet, colName, colName, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if styleID, err := f.GetColStyle(sheet, leftName); err == nil && styleID != 0 {
		if err := f.SetColStyle(sheet, colName, styleID); err != nil {
			return fmt.Errorf("failed to set column style: %w", err)
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	for rowNum := r.config.HeaderRow; rowNum <= len(rows); rowNum++ {
		leftCell, err := excelize.CoordinatesToCellName(col-1, rowNum)
		if err != nil {
			return fmt.Errorf("bad cell (%d,%d): %w", col-1, rowNum, err)
		}
		cell, err := excelize.CoordinatesToCellName(col, rowNum)
		if err != nil {
			return fmt.Errorf("bad cell (%d,%d): %w", col, rowNum, err)
		}
		styleID, err := f.GetCellStyle(sheet, leftCell)
		if err != nil || styleID == 0 {
			continue
		}
		if err := f.SetCellStyle(sheet, cell, cell, styleID); err != nil {
			return fmt.Errorf("failed to copy cell style to %s: %w", cell, err)
		}
	}
	return nil
}

// indexIdentifiers scans the fixed identifier column and maps advance ID to
// 1-based sheet row. Also reports the last populated data row.
func (r *Reconciler) indexIdentifiers(f *excelize.File, sheet string) (lastRow int, index map[string]int, err error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	index = make(map[string]int)
	for i := r.config.HeaderRow; i < len(rows); i++ {
		row := rows[i]
		colIdx := r.config.IDColumn - 1
		if colIdx >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[colIdx])
		if id == "" {
			continue
		}
		sheetRow := i + 1
		index[id] = sheetRow
		if sheetRow > lastRow {
			lastRow = sheetRow
		}
	}
	return lastRow, index, nil
}

// rebuildRunningTotals regenerates the balance formula for every data row
// as SUM over all period columns. Regenerating in full each run, rather
// than patching incrementally, keeps the range honest if columns were ever
// reordered by hand.
func (r *Reconciler) rebuildRunningTotals(f *excelize.File, sheet string, anchorCol, lastRow int) error {
	firstCol := r.config.FirstPeriodColumn
	lastCol := anchorCol - 1
	if lastCol < firstCol {
		return nil // no period columns yet
	}

	for rowNum := r.config.HeaderRow + 1; rowNum <= lastRow; rowNum++ {
		start, err := excelize.CoordinatesToCellName(firstCol, rowNum)
		if err != nil {
			return fmt.Errorf("bad cell (%d,%d): %w", firstCol, rowNum, err)
		}
		end, err := excelize.CoordinatesToCellName(lastCol, rowNum)
		if err != nil {
			return fmt.Errorf("bad cell (%d,%d): %w", lastCol, rowNum, err)
		}
		cell, err := excelize.CoordinatesToCellName(anchorCol, rowNum)
		if err != nil {
			return fmt.Errorf("bad cell (%d,%d): %w", anchorCol, rowNum, err)
		}
		if err := f.SetCellFormula(sheet, cell, fmt.Sprintf("SUM(%s:%s)", start, end)); err != nil {
			return fmt.Errorf("failed to set running total at %s: %w", cell, err)
		}
	}
	return nil
}
