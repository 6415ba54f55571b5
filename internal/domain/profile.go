package domain

import (
	"fmt"
	"regexp"
)

// Family identifies the parsing strategy a funder's reports require.
type Family string

const (
	// FamilyFixed is a single CSV with a fixed column layout.
	FamilyFixed Family = "fixed"
	// FamilyWeekly is a report that grows a (gross, fee, net) column triplet
	// per historical week; the rightmost non-total net column is current.
	FamilyWeekly Family = "weekly"
	// FamilyDaily is a weekly total assembled from several daily CSV files.
	FamilyDaily Family = "daily"
	// FamilyFormula is a workbook whose amount column holds SUM formulas
	// that may evaluate stale in some exports.
	FamilyFormula Family = "formula"
)

var validFamilies = map[Family]struct{}{
	FamilyFixed: {}, FamilyWeekly: {}, FamilyDaily: {}, FamilyFormula: {},
}

// ValidateFamily checks if the family is known.
func ValidateFamily(f Family) bool {
	_, ok := validFamilies[f]
	return ok
}

// FunderProfile is the static descriptor of one funder's report format.
// Profiles are loaded once at startup and never mutated.
type FunderProfile struct {
	Name   string
	Family Family

	// RequiredColumns must all be present for a parse to proceed.
	RequiredColumns []string
	// UniqueColumns appear in this funder's reports and no other's; their
	// presence is strong classification evidence.
	UniqueColumns []string
	// ExpectedColumnCount is 0 for variable-width formats.
	ExpectedColumnCount int
	// IDColumn is the header of the advance-identifier column.
	IDColumn string
	// GrossColumn and FeeColumn name the optional explicit gross and fee
	// headers of formula-family workbooks. Empty falls back to the
	// conventional "Gross" and "Fee" headers.
	GrossColumn string
	FeeColumn   string
	// FilenameHint, when non-empty, is a case-insensitive substring funders
	// tend to put in their export filenames.
	FilenameHint string
	// IDPattern matches this funder's advance-identifier convention.
	IDPattern *regexp.Regexp
	// DailyFilesPerPeriod is how many daily files make one reporting period.
	// Zero for funders that deliver a single weekly file.
	DailyFilesPerPeriod int
	// AuthorizedPortfolios restricts which portfolios this funder may post
	// into. Empty means unrestricted.
	AuthorizedPortfolios []string
}

// Variable reports whether the profile describes a variable-width format.
func (p *FunderProfile) Variable() bool {
	return p.ExpectedColumnCount == 0
}

// AuthorizedFor reports whether the funder may post into the portfolio.
func (p *FunderProfile) AuthorizedFor(portfolio string) bool {
	if len(p.AuthorizedPortfolios) == 0 {
		return true
	}
	for _, allowed := range p.AuthorizedPortfolios {
		if allowed == portfolio {
			return true
		}
	}
	return false
}

// FilesPerPeriod returns how many files constitute one reporting period,
// at minimum 1.
func (p *FunderProfile) FilesPerPeriod() int {
	if p.DailyFilesPerPeriod > 1 {
		return p.DailyFilesPerPeriod
	}
	return 1
}

// Validate checks profile invariants. Called by the catalog loader.
func (p *FunderProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("funder name cannot be empty")
	}
	if !ValidateFamily(p.Family) {
		return fmt.Errorf("funder %s: unknown family %q", p.Name, p.Family)
	}
	if p.IDColumn == "" {
		return fmt.Errorf("funder %s: ID column cannot be empty", p.Name)
	}
	if len(p.RequiredColumns) == 0 {
		return fmt.Errorf("funder %s: at least one required column", p.Name)
	}
	if p.Family == FamilyDaily && p.DailyFilesPerPeriod < 2 {
		return fmt.Errorf("funder %s: daily family requires dailyFilesPerPeriod >= 2, got %d",
			p.Name, p.DailyFilesPerPeriod)
	}
	if p.Family != FamilyDaily && p.DailyFilesPerPeriod != 0 {
		return fmt.Errorf("funder %s: dailyFilesPerPeriod only valid for daily family", p.Name)
	}
	if p.Family == FamilyWeekly && p.ExpectedColumnCount != 0 {
		return fmt.Errorf("funder %s: weekly family is variable-width, expectedColumnCount must be 0", p.Name)
	}
	return nil
}
