package domain

import (
	"fmt"
	"sort"
	"strings"
)

// UnreadableFileError indicates that no supported text encoding could decode
// the file.
type UnreadableFileError struct {
	Path      string
	Encodings []string
}

func (e *UnreadableFileError) Error() string {
	return fmt.Sprintf("unreadable file %s: no encoding succeeded (tried %s)",
		e.Path, strings.Join(e.Encodings, ", "))
}

// SchemaMismatchError indicates required columns were absent from a report.
// It always names every missing column.
type SchemaMismatchError struct {
	Funder  string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	missing := append([]string(nil), e.Missing...)
	sort.Strings(missing)
	return fmt.Sprintf("schema mismatch for %s: missing columns %s",
		e.Funder, strings.Join(missing, ", "))
}

// AmbiguousClassificationError indicates no funder reached its confidence
// threshold for a file.
type AmbiguousClassificationError struct {
	Reason string
}

func (e *AmbiguousClassificationError) Error() string {
	return fmt.Sprintf("ambiguous classification: %s", e.Reason)
}

// UnauthorizedFunderError indicates a funder is not permitted to post into
// the target portfolio.
type UnauthorizedFunderError struct {
	Funder    string
	Portfolio string
}

func (e *UnauthorizedFunderError) Error() string {
	return fmt.Sprintf("funder %s is not authorized for portfolio %s", e.Funder, e.Portfolio)
}

// AnchorNotFoundError indicates a ledger sheet is missing its structural
// anchor header, so the reconciler cannot locate the insertion point.
type AnchorNotFoundError struct {
	Sheet  string
	Anchor string
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("ledger sheet %s: anchor header %q not found", e.Sheet, e.Anchor)
}
