package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadCSV_UTF8(t *testing.T) {
	path := writeFile(t, "report.csv", []byte("Advance ID,Merchant,Net\nA1,Cafe Rio,100.00\n"))

	grid, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if len(grid) != 2 {
		t.Fatalf("rows = %d, want 2", len(grid))
	}
	if grid.Cell(1, 1) != "Cafe Rio" {
		t.Errorf("Cell(1,1) = %q, want Cafe Rio", grid.Cell(1, 1))
	}
}

func TestLoadCSV_BOMStripped(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Advance ID,Net\nA1,5\n")...)
	path := writeFile(t, "bom.csv", data)

	grid, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if grid.Cell(0, 0) != "Advance ID" {
		t.Errorf("Cell(0,0) = %q, want Advance ID (BOM should be stripped)", grid.Cell(0, 0))
	}
}

func TestLoadCSV_Windows1252Fallback(t *testing.T) {
	// 0xE9 is é in Windows-1252 and invalid as standalone UTF-8.
	data := []byte("Merchant,Net\nCaf\xe9 Rio,10.00\n")
	path := writeFile(t, "cp1252.csv", data)

	grid, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if grid.Cell(1, 0) != "Café Rio" {
		t.Errorf("Cell(1,0) = %q, want Café Rio", grid.Cell(1, 0))
	}
}

func TestLoadCSV_BinaryRejected(t *testing.T) {
	path := writeFile(t, "binary.csv", []byte{0x00, 0x01, 0x02, 0x00})

	_, err := LoadCSV(path)
	if err == nil {
		t.Fatal("LoadCSV() expected error for binary content")
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", "Advance ID")
	_ = f.SetCellValue(sheet, "B1", "Net")
	_ = f.SetCellValue(sheet, "A2", "A1")
	_ = f.SetCellValue(sheet, "B2", 42.5)

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving fixture: %v", err)
	}

	grid, err := LoadXLSX(path)
	if err != nil {
		t.Fatalf("LoadXLSX() error = %v", err)
	}
	if grid.Cell(0, 0) != "Advance ID" {
		t.Errorf("Cell(0,0) = %q, want Advance ID", grid.Cell(0, 0))
	}
	if grid.Cell(1, 1) != "42.5" {
		t.Errorf("Cell(1,1) = %q, want 42.5", grid.Cell(1, 1))
	}
}

func TestLoadFormulas(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", 1)
	_ = f.SetCellValue(sheet, "B1", 2)
	_ = f.SetCellFormula(sheet, "C1", "SUM(A1:B1)")

	path := filepath.Join(t.TempDir(), "formulas.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving fixture: %v", err)
	}

	grid, err := LoadFormulas(path)
	if err != nil {
		t.Fatalf("LoadFormulas() error = %v", err)
	}
	if got := grid.Cell(0, 2); got != "SUM(A1:B1)" {
		t.Errorf("Cell(0,2) = %q, want SUM(A1:B1)", got)
	}
}

func TestGrid_FindHeaderRow(t *testing.T) {
	grid := Grid{
		{"Weekly Remittance Report"},
		{"", "Period: 2026-08-24"},
		{"Advance ID", "Merchant", "Net"},
		{"A1", "Shop", "10"},
	}

	if got := grid.FindHeaderRow("advance id"); got != 2 {
		t.Errorf("FindHeaderRow() = %d, want 2", got)
	}
	if got := grid.FindHeaderRow("No Such Header"); got != -1 {
		t.Errorf("FindHeaderRow(missing) = %d, want -1", got)
	}
}

func TestGrid_MissingColumns(t *testing.T) {
	grid := Grid{{"Advance ID", "Merchant Name", "Net Amount"}}

	missing := grid.MissingColumns(0, []string{"Advance ID", "Gross Amount", "Fee"})
	if len(missing) != 2 {
		t.Fatalf("missing = %v, want 2 entries", missing)
	}
}
