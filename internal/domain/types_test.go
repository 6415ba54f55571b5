package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestNewCanonicalRow(t *testing.T) {
	row, err := NewCanonicalRow(" VF-000001 ", "  Alpha LLC ", dec("100.005"), dec("-5.00"), dec("95.00"))
	if err != nil {
		t.Fatalf("NewCanonicalRow() error = %v", err)
	}
	if row.AdvanceID != "VF-000001" {
		t.Errorf("advance ID = %q, want trimmed", row.AdvanceID)
	}
	if got := row.Gross.String(); got != "100.01" {
		t.Errorf("gross = %s, want 100.01 (rounded)", got)
	}
	if got := row.Fee.String(); got != "5" {
		t.Errorf("fee = %s, want 5 (absolute value)", got)
	}
}

func TestNewCanonicalRow_EmptyID(t *testing.T) {
	if _, err := NewCanonicalRow("   ", "Shop", dec("1"), dec("1"), dec("1")); err == nil {
		t.Fatal("NewCanonicalRow() expected error for blank advance ID")
	}
}

func TestCanonicalRow_IsZero(t *testing.T) {
	zero, _ := NewCanonicalRow("A", "Shop", decimal.Zero, decimal.Zero, decimal.Zero)
	if !zero.IsZero() {
		t.Error("all-zero row should report IsZero")
	}
	nonzero, _ := NewCanonicalRow("A", "Shop", decimal.Zero, decimal.Zero, dec("0.01"))
	if nonzero.IsZero() {
		t.Error("row with a net amount should not report IsZero")
	}
}

func TestCombineEvidence(t *testing.T) {
	tests := []struct {
		name     string
		evidence []Evidence
		want     float64
	}{
		{"empty", nil, 0},
		{"single full score", []Evidence{{Criterion: "a", Score: 1, Weight: 0.4}}, 1},
		{
			"weighted average",
			[]Evidence{
				{Criterion: "overlap", Score: 1, Weight: 0.4},
				{Criterion: "unique", Score: 0, Weight: 0.6},
			},
			0.4,
		},
		{
			"normalized by evaluated weight only",
			[]Evidence{
				{Criterion: "overlap", Score: 0.5, Weight: 0.4},
				{Criterion: "hint", Score: 1, Weight: 0.2},
			},
			(0.5*0.4 + 1*0.2) / 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CombineEvidence(tt.evidence)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("CombineEvidence() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSchemaMismatchError_NamesAllColumns(t *testing.T) {
	err := error(&SchemaMismatchError{Funder: "Vantage Funding", Missing: []string{"Net Remitted", "Gross Collected"}})

	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatal("errors.As failed")
	}
	msg := err.Error()
	for _, col := range []string{"Gross Collected", "Net Remitted"} {
		if !strings.Contains(msg, col) {
			t.Errorf("error message %q should name %s", msg, col)
		}
	}
}
