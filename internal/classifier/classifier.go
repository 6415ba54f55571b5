// Package classifier decides which funder produced an unlabeled report.
// Formats evolve and some funders share column layouts, so no single rule
// decides; instead each funder profile contributes independently weighted
// evidence (column structure, identifier shape, filename hints, registry
// corroboration) and the highest-scoring profile above its threshold wins.
// Ties and sub-threshold scores never auto-select a funder.
package classifier

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
	"github.com/rumor-ml/commons.systems/remitparse/internal/profiles"
	"github.com/rumor-ml/commons.systems/remitparse/internal/tabular"
)

// Evidence weights. Unique-column presence outweighs plain overlap because
// shared layouts make overlap a weak discriminator.
const (
	weightColumnOverlap = 0.4
	weightUniqueColumns = 0.6
	weightColumnCount   = 0.4
	weightStructure     = 0.4
	weightFilenameHint  = 0.2
	weightIDPattern     = 0.6
	weightRegistry      = 0.6
)

// Thresholds per family: variable-width formats carry less structural
// signal, so they accept at a lower bar.
const (
	thresholdFixed    = 0.6
	thresholdVariable = 0.5
)

// tieMargin is the minimum lead the best profile needs over the runner-up.
const tieMargin = 0.05

// minVariableWidth is the column count at which a variable-width report
// scores full column-count evidence: identifier, merchant, and at least two
// (gross, fee, net) triplets.
const minVariableWidth = 8

// IDLookup is the registry surface the classifier needs.
type IDLookup interface {
	LookupSet(ids []string) (map[string]domain.RegistryEntry, error)
}

// Classifier scores files against the funder catalog.
type Classifier struct {
	catalog  *profiles.Catalog
	registry IDLookup // nil disables registry evidence
}

// New creates a classifier. registry may be nil.
func New(catalog *profiles.Catalog, registry IDLookup) *Classifier {
	return &Classifier{catalog: catalog, registry: registry}
}

// Classify scores the file against every funder profile and returns the
// best guess with its evidence trail. An unclassifiable file is not an
// error: the result has an empty Funder and a Reason.
func (c *Classifier) Classify(path string) (*domain.ClassificationResult, error) {
	grid, err := tabular.Load(path)
	if err != nil {
		return nil, err
	}
	return c.classifyGrid(grid, filepath.Base(path))
}

// Override attributes the file to the named funder without scoring.
// Identifier extraction and the registry split still run so downstream
// bookkeeping sees the same result shape as a scored classification.
func (c *Classifier) Override(path, funder string) (*domain.ClassificationResult, error) {
	profile := c.catalog.ByName(funder)
	if profile == nil {
		return nil, fmt.Errorf("unknown funder %q", funder)
	}
	grid, err := tabular.Load(path)
	if err != nil {
		return nil, err
	}
	ids := extractIDs(grid, profile)
	matched, fresh, err := c.splitKnownIDs(ids)
	if err != nil {
		return nil, err
	}
	return &domain.ClassificationResult{
		Funder:     profile.Name,
		Confidence: 1,
		MatchedIDs: matched,
		NewIDs:     fresh,
		Reason:     fmt.Sprintf("manual override to %s", profile.Name),
	}, nil
}

type candidate struct {
	profile    *domain.FunderProfile
	confidence float64
	evidence   []domain.Evidence
	ids        []string
	threshold  float64
}

func (c *Classifier) classifyGrid(grid tabular.Grid, filename string) (*domain.ClassificationResult, error) {
	all := c.catalog.All()
	candidates := make([]candidate, 0, len(all))

	for i := range all {
		profile := &all[i]
		ids := extractIDs(grid, profile)
		evidence := c.gatherEvidence(grid, filename, profile, ids)

		threshold := thresholdFixed
		if profile.Variable() {
			threshold = thresholdVariable
		}
		candidates = append(candidates, candidate{
			profile:    profile,
			confidence: domain.CombineEvidence(evidence),
			evidence:   evidence,
			ids:        ids,
			threshold:  threshold,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence > candidates[j].confidence
	})

	best := candidates[0]
	if best.confidence <= best.threshold {
		return &domain.ClassificationResult{
			Evidence: best.evidence,
			Reason: fmt.Sprintf("no funder reached its threshold; best was %s at %.2f (needs %.2f)",
				best.profile.Name, best.confidence, best.threshold),
		}, nil
	}
	if len(candidates) > 1 {
		second := candidates[1]
		if second.confidence > second.threshold && best.confidence-second.confidence < tieMargin {
			return &domain.ClassificationResult{
				Evidence: best.evidence,
				Reason: fmt.Sprintf("ambiguous between %s (%.2f) and %s (%.2f)",
					best.profile.Name, best.confidence, second.profile.Name, second.confidence),
			}, nil
		}
	}

	matched, fresh, err := c.splitKnownIDs(best.ids)
	if err != nil {
		return nil, err
	}

	return &domain.ClassificationResult{
		Funder:     best.profile.Name,
		Confidence: best.confidence,
		MatchedIDs: matched,
		NewIDs:     fresh,
		Evidence:   best.evidence,
		Reason:     fmt.Sprintf("selected %s on weighted evidence", best.profile.Name),
	}, nil
}

// gatherEvidence builds the weighted evidence list for one profile.
func (c *Classifier) gatherEvidence(grid tabular.Grid, filename string, profile *domain.FunderProfile, ids []string) []domain.Evidence {
	var evidence []domain.Evidence
	headerRow, hits := bestHeaderRow(grid, profile.RequiredColumns)

	if profile.Variable() {
		width := float64(grid.Width())
		countScore := width / minVariableWidth
		if countScore > 1 {
			countScore = 1
		}
		// Structure is judged on the row holding this profile's own
		// identifier column; another funder's triplets must not count.
		idRow := grid.FindHeaderRow(profile.IDColumn)
		evidence = append(evidence,
			domain.Evidence{Criterion: "column-count", Score: countScore, Weight: weightColumnCount},
			domain.Evidence{Criterion: "structure", Score: structureScore(grid, idRow), Weight: weightStructure},
		)
	} else {
		overlap := 0.0
		if len(profile.RequiredColumns) > 0 {
			overlap = float64(hits) / float64(len(profile.RequiredColumns))
		}
		evidence = append(evidence,
			domain.Evidence{Criterion: "column-overlap", Score: overlap, Weight: weightColumnOverlap},
			domain.Evidence{Criterion: "unique-columns", Score: uniqueScore(grid, headerRow, profile), Weight: weightUniqueColumns},
		)
	}

	// Filename hint is a pure bonus: only evaluated when it matches.
	if profile.FilenameHint != "" &&
		strings.Contains(strings.ToLower(filename), strings.ToLower(profile.FilenameHint)) {
		evidence = append(evidence,
			domain.Evidence{Criterion: "filename-hint", Score: 1, Weight: weightFilenameHint})
	}

	if len(ids) > 0 && profile.IDPattern != nil {
		matching := 0
		for _, id := range ids {
			if profile.IDPattern.MatchString(id) {
				matching++
			}
		}
		evidence = append(evidence, domain.Evidence{
			Criterion: "id-pattern",
			Score:     float64(matching) / float64(len(ids)),
			Weight:    weightIDPattern,
		})
	}

	if c.registry != nil && len(ids) > 0 {
		if known, err := c.registry.LookupSet(ids); err == nil && len(known) > 0 {
			attributed := 0
			for _, entry := range known {
				if entry.Funder == profile.Name {
					attributed++
				}
			}
			evidence = append(evidence, domain.Evidence{
				Criterion: "registry-match",
				Score:     float64(attributed) / float64(len(ids)),
				Weight:    weightRegistry,
			})
		}
	}

	return evidence
}

// splitKnownIDs partitions extracted IDs into already-registered and new.
func (c *Classifier) splitKnownIDs(ids []string) (matched, fresh []string, err error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	if c.registry == nil {
		return nil, ids, nil
	}
	known, err := c.registry.LookupSet(ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to consult identifier registry: %w", err)
	}
	for _, id := range ids {
		if _, ok := known[id]; ok {
			matched = append(matched, id)
		} else {
			fresh = append(fresh, id)
		}
	}
	return matched, fresh, nil
}

// extractIDs pulls the advance identifiers under the profile's ID column.
func extractIDs(grid tabular.Grid, profile *domain.FunderProfile) []string {
	headerRow := grid.FindHeaderRow(profile.IDColumn)
	if headerRow < 0 {
		return nil
	}
	idCol := grid.HeaderIndex(headerRow, profile.IDColumn)

	seen := make(map[string]struct{})
	var ids []string
	for i := headerRow + 1; i < len(grid); i++ {
		id := grid.Cell(i, idCol)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// bestHeaderRow scans the leading rows for the one containing the most of
// the wanted columns. Returns (-1, 0) when nothing matches.
func bestHeaderRow(grid tabular.Grid, wanted []string) (row, hits int) {
	row, hits = -1, 0
	limit := len(grid)
	if limit > 20 {
		limit = 20
	}
	for i := 0; i < limit; i++ {
		n := len(wanted) - len(grid.MissingColumns(i, wanted))
		if n > hits {
			row, hits = i, n
		}
	}
	return row, hits
}

// uniqueScore reports what fraction of the profile's distinguishing columns
// appear in the header row. Profiles without unique columns score zero, not
// full marks: absence of a discriminator is not evidence.
func uniqueScore(grid tabular.Grid, headerRow int, profile *domain.FunderProfile) float64 {
	if headerRow < 0 || len(profile.UniqueColumns) == 0 {
		return 0
	}
	found := len(profile.UniqueColumns) - len(grid.MissingColumns(headerRow, profile.UniqueColumns))
	return float64(found) / float64(len(profile.UniqueColumns))
}

// structureScore checks for the repeating (gross, fee, net) triplet shape
// of variable-width reports: full marks for two or more non-total net
// columns, half for one.
func structureScore(grid tabular.Grid, headerRow int) float64 {
	if headerRow < 0 {
		return 0
	}
	nets := 0
	for j := 0; j < len(grid[headerRow]); j++ {
		header := strings.ToLower(grid.Cell(headerRow, j))
		if strings.Contains(header, "net") &&
			!strings.Contains(header, "total") && !strings.Contains(header, "balance") {
			nets++
		}
	}
	switch {
	case nets >= 2:
		return 1
	case nets == 1:
		return 0.5
	default:
		return 0
	}
}
