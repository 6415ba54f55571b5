// Package pipeline sequences one remittance file through the full run:
// classify (or honor a manual override), check portfolio authorization,
// parse by funder family, gate multi-file funders until their period is
// complete, reconcile into the ledger, and finally record new identifiers
// in the registry. The registry update runs last so a failed reconcile
// never claims identifiers it did not post.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rumor-ml/commons.systems/remitparse/internal/batch"
	"github.com/rumor-ml/commons.systems/remitparse/internal/classifier"
	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
	"github.com/rumor-ml/commons.systems/remitparse/internal/parsers"
	"github.com/rumor-ml/commons.systems/remitparse/internal/profiles"
)

// Reconciler is the ledger surface the coordinator needs.
type Reconciler interface {
	Reconcile(sheet string, rows []domain.CanonicalRow, period string) ([]domain.UnmatchedEntry, error)
}

// IdentifierStore is the registry surface the coordinator needs.
type IdentifierStore interface {
	UpsertAll(entries []domain.RegistryEntry) error
}

// ProcessRequest describes one submitted report file.
type ProcessRequest struct {
	FilePath  string
	Portfolio string
	Period    string
	// FunderOverride, when set, skips classification and attributes the
	// file to the named funder.
	FunderOverride string
}

// ProcessSummary is the outcome of one Process call.
type ProcessSummary struct {
	RunID      string                  `json:"runId"`
	Funder     string                  `json:"funder"`
	Confidence float64                 `json:"confidence"`
	Period     string                  `json:"period"`
	Portfolio  string                  `json:"portfolio"`
	Rows       int                     `json:"rows"`
	Totals     domain.Totals           `json:"totals"`
	Unmatched  []domain.UnmatchedEntry `json:"unmatched,omitempty"`
	NewIDs     []string                `json:"newIds,omitempty"`
	MatchedIDs []string                `json:"matchedIds,omitempty"`
	// Waiting is true when a multi-file funder's period is still
	// incomplete; FilesSeen reports the arrivals so far.
	Waiting   bool `json:"waiting"`
	FilesSeen int  `json:"filesSeen"`
}

// Coordinator runs the processing sequence. Single-threaded per instance.
type Coordinator struct {
	catalog     *profiles.Catalog
	classifier  *classifier.Classifier
	reconciler  Reconciler
	registry    IdentifierStore // nil disables identifier recording
	accumulator *batch.Accumulator
}

// New creates a coordinator. registry may be nil; a nil accumulator gets an
// in-memory one.
func New(catalog *profiles.Catalog, cls *classifier.Classifier, rec Reconciler, reg IdentifierStore, acc *batch.Accumulator) *Coordinator {
	if acc == nil {
		acc, _ = batch.New("")
	}
	return &Coordinator{
		catalog:     catalog,
		classifier:  cls,
		reconciler:  rec,
		registry:    reg,
		accumulator: acc,
	}
}

// Process runs one file through classification, parsing, reconciliation,
// and registry update. A multi-file funder whose period is not yet complete
// returns a Waiting summary and no error; resubmitting later files resumes.
func (c *Coordinator) Process(req ProcessRequest) (*ProcessSummary, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	result, err := c.attribute(req)
	if err != nil {
		return nil, err
	}

	profile := c.catalog.ByName(result.Funder)
	if profile == nil {
		return nil, fmt.Errorf("classified funder %q has no profile", result.Funder)
	}
	if !profile.AuthorizedFor(req.Portfolio) {
		return nil, &domain.UnauthorizedFunderError{Funder: profile.Name, Portfolio: req.Portfolio}
	}

	summary := &ProcessSummary{
		RunID:      uuid.NewString(),
		Funder:     profile.Name,
		Confidence: result.Confidence,
		Period:     req.Period,
		Portfolio:  req.Portfolio,
		NewIDs:     result.NewIDs,
		MatchedIDs: result.MatchedIDs,
		FilesSeen:  1,
	}

	parser, err := parsers.ForFunder(profile)
	if err != nil {
		return nil, err
	}

	parsed, waiting, filesSeen, err := c.parse(parser, profile, req)
	if err != nil {
		return nil, err
	}
	summary.FilesSeen = filesSeen
	if waiting {
		summary.Waiting = true
		return summary, nil
	}

	unmatched, err := c.reconciler.Reconcile(profile.Name, parsed.Rows, req.Period)
	if err != nil {
		return nil, fmt.Errorf("reconciling %s for period %s: %w", profile.Name, req.Period, err)
	}

	summary.Rows = len(parsed.Rows)
	summary.Totals = parsed.Totals
	summary.Unmatched = unmatched

	if err := c.recordNewIDs(profile.Name, req.Portfolio, result.NewIDs, parsed.Rows); err != nil {
		return nil, err
	}
	return summary, nil
}

func validateRequest(req ProcessRequest) error {
	if strings.TrimSpace(req.FilePath) == "" {
		return fmt.Errorf("file path is required")
	}
	if strings.TrimSpace(req.Portfolio) == "" {
		return fmt.Errorf("portfolio is required")
	}
	if strings.TrimSpace(req.Period) == "" {
		return fmt.Errorf("period is required")
	}
	return nil
}

// attribute resolves the funder, by manual override or by classification.
// An unclassifiable file surfaces as AmbiguousClassificationError.
func (c *Coordinator) attribute(req ProcessRequest) (*domain.ClassificationResult, error) {
	if req.FunderOverride != "" {
		return c.classifier.Override(req.FilePath, req.FunderOverride)
	}
	result, err := c.classifier.Classify(req.FilePath)
	if err != nil {
		return nil, err
	}
	if !result.Classified() {
		return nil, &domain.AmbiguousClassificationError{Reason: result.Reason}
	}
	return result, nil
}

// parse runs the family parser, gating multi-file funders on the
// accumulator. waiting is true when the period is still incomplete.
func (c *Coordinator) parse(parser parsers.Parser, profile *domain.FunderProfile, req ProcessRequest) (parsed *domain.ParseResult, waiting bool, filesSeen int, err error) {
	expected := profile.FilesPerPeriod()
	if expected <= 1 {
		parsed, err = parser.Parse(req.FilePath)
		return parsed, false, 1, err
	}

	key := batch.Key{Portfolio: req.Portfolio, Funder: profile.Name, Period: req.Period}
	ready, err := c.accumulator.Accept(key, req.FilePath, expected)
	if err != nil {
		return nil, false, 0, fmt.Errorf("tracking daily file arrival: %w", err)
	}
	files := c.accumulator.Files(key)
	if !ready {
		return nil, true, len(files), nil
	}

	bp, ok := parser.(parsers.BatchParser)
	if !ok {
		return nil, false, len(files), fmt.Errorf("funder %s expects %d files per period but parser %s cannot batch",
			profile.Name, expected, parser.Name())
	}
	parsed, err = bp.ParseBatch(files)
	return parsed, false, len(files), err
}

// recordNewIDs upserts the identifiers first seen in this run, carrying the
// merchant names from the parsed rows. Runs only after a successful
// reconcile.
func (c *Coordinator) recordNewIDs(funder, portfolio string, newIDs []string, rows []domain.CanonicalRow) error {
	if c.registry == nil || len(newIDs) == 0 {
		return nil
	}
	merchants := make(map[string]string, len(rows))
	for _, row := range rows {
		merchants[row.AdvanceID] = row.MerchantName
	}
	entries := make([]domain.RegistryEntry, 0, len(newIDs))
	for _, id := range newIDs {
		entries = append(entries, domain.RegistryEntry{
			AdvanceID:    id,
			Funder:       funder,
			MerchantName: merchants[id],
			Portfolio:    portfolio,
		})
	}
	if err := c.registry.UpsertAll(entries); err != nil {
		return fmt.Errorf("recording new identifiers: %w", err)
	}
	return nil
}
