package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
	"github.com/rumor-ml/commons.systems/remitparse/internal/profiles"
)

// fakeLookup is an in-memory IDLookup.
type fakeLookup struct {
	entries map[string]domain.RegistryEntry
}

func (f *fakeLookup) LookupSet(ids []string) (map[string]domain.RegistryEntry, error) {
	out := make(map[string]domain.RegistryEntry)
	for _, id := range ids {
		if e, ok := f.entries[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func testCatalog(t *testing.T) *profiles.Catalog {
	t.Helper()
	c, err := profiles.LoadEmbedded()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	return c
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestClassify_FixedSchemaFunder(t *testing.T) {
	c := New(testCatalog(t), nil)

	path := writeFixture(t, "weekly_vantage_export.csv",
		"Funding ID,Business Name,Gross Collected,Servicing Fee,Net Remitted\n"+
			"VF-000001,Alpha LLC,100.00,5.00,95.00\n"+
			"VF-000002,Beta Corp,200.00,10.00,190.00\n")

	result, err := c.Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Funder != "Vantage Funding" {
		t.Fatalf("funder = %q, want Vantage Funding (reason: %s)", result.Funder, result.Reason)
	}
	if result.Confidence < 0.6 {
		t.Errorf("confidence = %.2f, want >= 0.6", result.Confidence)
	}
	if len(result.NewIDs) != 2 {
		t.Errorf("new IDs = %v, want both (no registry attached)", result.NewIDs)
	}
	if len(result.Evidence) == 0 {
		t.Error("evidence trail should not be empty")
	}
}

func TestClassify_VariableSchemaFunder(t *testing.T) {
	c := New(testCatalog(t), nil)

	path := writeFixture(t, "crestline_week_35.csv",
		"Weekly Statement\n"+
			"Advance #,Merchant,Gross,Fee,Net,Gross,Fee,Net,Net Total\n"+
			"CL00000001,Shop One,100.00,10.00,90.00,200.00,20.00,180.00,270.00\n")

	result, err := c.Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Funder != "Crestline Capital" {
		t.Fatalf("funder = %q, want Crestline Capital (reason: %s)", result.Funder, result.Reason)
	}
}

func TestClassify_LowOverlapReturnsNoFunder(t *testing.T) {
	c := New(testCatalog(t), nil)

	// No profile's columns, identifiers, or hints appear here.
	path := writeFixture(t, "mystery.csv",
		"Alpha,Beta,Gamma\n1,2,3\n4,5,6\n")

	result, err := c.Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Classified() {
		t.Fatalf("funder = %q, want unclassified", result.Funder)
	}
	if result.Reason == "" {
		t.Error("unclassified result must carry a reason")
	}
}

func TestClassify_SplitsKnownAndNewIDs(t *testing.T) {
	known := &fakeLookup{entries: map[string]domain.RegistryEntry{
		"VF-000001": {AdvanceID: "VF-000001", Funder: "Vantage Funding"},
	}}
	c := New(testCatalog(t), known)

	path := writeFixture(t, "vantage.csv",
		"Funding ID,Business Name,Gross Collected,Servicing Fee,Net Remitted\n"+
			"VF-000001,Alpha LLC,100.00,5.00,95.00\n"+
			"VF-000002,Beta Corp,200.00,10.00,190.00\n")

	result, err := c.Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(result.MatchedIDs) != 1 || result.MatchedIDs[0] != "VF-000001" {
		t.Errorf("matched = %v, want [VF-000001]", result.MatchedIDs)
	}
	if len(result.NewIDs) != 1 || result.NewIDs[0] != "VF-000002" {
		t.Errorf("new = %v, want [VF-000002]", result.NewIDs)
	}
}

func TestClassify_RegistryCorroboration(t *testing.T) {
	// Known Meridian IDs in the registry corroborate a Meridian file.
	known := &fakeLookup{entries: map[string]domain.RegistryEntry{
		"MD-AAA11": {AdvanceID: "MD-AAA11", Funder: "Meridian Advance"},
		"MD-BBB22": {AdvanceID: "MD-BBB22", Funder: "Meridian Advance"},
	}}
	c := New(testCatalog(t), known)

	path := writeFixture(t, "remit_day3.csv",
		"Deal ID,DBA Name,Gross,Fee,Net\n"+
			"MD-AAA11,Taco Stand,100.00,4.00,96.00\n"+
			"MD-BBB22,Book Shop,50.00,2.00,48.00\n")

	result, err := c.Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Funder != "Meridian Advance" {
		t.Fatalf("funder = %q, want Meridian Advance (reason: %s)", result.Funder, result.Reason)
	}
	if len(result.MatchedIDs) != 2 {
		t.Errorf("matched = %v, want both known IDs", result.MatchedIDs)
	}

	hasRegistryEvidence := false
	for _, e := range result.Evidence {
		if e.Criterion == "registry-match" {
			hasRegistryEvidence = true
			if e.Score != 1 {
				t.Errorf("registry-match score = %.2f, want 1", e.Score)
			}
		}
	}
	if !hasRegistryEvidence {
		t.Error("expected registry-match evidence in the trail")
	}
}

func TestOverride_BypassesScoringButExtractsIDs(t *testing.T) {
	known := &fakeLookup{entries: map[string]domain.RegistryEntry{
		"VF-000001": {AdvanceID: "VF-000001", Funder: "Vantage Funding"},
	}}
	c := New(testCatalog(t), known)

	path := writeFixture(t, "unlabeled.csv",
		"Funding ID,Business Name,Gross Collected,Servicing Fee,Net Remitted\n"+
			"VF-000001,Alpha LLC,100.00,5.00,95.00\n"+
			"VF-000002,Beta Corp,200.00,10.00,190.00\n")

	result, err := c.Override(path, "Vantage Funding")
	if err != nil {
		t.Fatalf("Override() error = %v", err)
	}
	if result.Funder != "Vantage Funding" || result.Confidence != 1 {
		t.Errorf("got %s at %.2f, want Vantage Funding at 1.00", result.Funder, result.Confidence)
	}
	if len(result.MatchedIDs) != 1 || len(result.NewIDs) != 1 {
		t.Errorf("matched = %v, new = %v; want 1 each", result.MatchedIDs, result.NewIDs)
	}
}

func TestOverride_UnknownFunder(t *testing.T) {
	c := New(testCatalog(t), nil)
	if _, err := c.Override(writeFixture(t, "x.csv", "a\n"), "No Such Funder"); err == nil {
		t.Fatal("Override() expected error for unknown funder")
	}
}

func TestClassify_FilenameHintOnlyIsNotEnough(t *testing.T) {
	c := New(testCatalog(t), nil)

	// Filename suggests Vantage but the content shares no structure.
	path := writeFixture(t, "vantage_notes.csv", "Memo\nnothing tabular here\n")

	result, err := c.Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Classified() {
		t.Fatalf("funder = %q, want unclassified on hint alone", result.Funder)
	}
}
