// Package tabular loads funder report files (CSV or XLSX) into a uniform
// string grid so the parsers can treat every source the same way.
package tabular

import "strings"

// Grid is a rectangular-ish view of a tabular file. Rows may have ragged
// lengths; Cell returns "" out of range.
type Grid [][]string

// Cell returns the trimmed cell value at (row, col), or "" if out of range.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	r := g[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Width returns the widest row length.
func (g Grid) Width() int {
	w := 0
	for _, r := range g {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// HeaderIndex finds a column by header text in the given row: exact match
// first, then case-insensitive. Returns -1 if absent.
func (g Grid) HeaderIndex(row int, name string) int {
	if row < 0 || row >= len(g) {
		return -1
	}
	for i := range g[row] {
		if g.Cell(row, i) == name {
			return i
		}
	}
	for i := range g[row] {
		if strings.EqualFold(g.Cell(row, i), name) {
			return i
		}
	}
	return -1
}

// FindHeaderRow scans for the first row containing the marker text in any
// cell (case-insensitive). Reports the row index, or -1 if no row matches.
// Variable-layout reports bury their header under preamble rows, so callers
// must not assume row 0.
func (g Grid) FindHeaderRow(marker string) int {
	for i := range g {
		for j := range g[i] {
			if strings.EqualFold(g.Cell(i, j), marker) {
				return i
			}
		}
	}
	return -1
}

// MissingColumns returns the subset of names absent from the header row.
func (g Grid) MissingColumns(row int, names []string) []string {
	var missing []string
	for _, name := range names {
		if g.HeaderIndex(row, name) < 0 {
			missing = append(missing, name)
		}
	}
	return missing
}
