package parsers

import (
	"fmt"

	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
	"github.com/rumor-ml/commons.systems/remitparse/internal/tabular"
)

// DailyParser handles funders whose weekly total arrives as several daily
// files. Each file uses a fixed layout; the files are concatenated without
// deduplication (days are additive) and pivoted as one data set.
type DailyParser struct {
	profile *domain.FunderProfile
}

// Name returns the parser identifier.
func (p *DailyParser) Name() string { return "daily" }

// Parse handles a single daily file, used when probing one file for
// classification. Totals from a lone file understate the period.
func (p *DailyParser) Parse(path string) (*domain.ParseResult, error) {
	return p.ParseBatch([]string{path})
}

// ParseBatch concatenates every daily file for the period and pivots the
// combined rows.
func (p *DailyParser) ParseBatch(paths []string) (*domain.ParseResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("funder %s: no files to parse", p.profile.Name)
	}

	inner := FixedParser{profile: p.profile}
	var all []rawLine
	for _, path := range paths {
		grid, err := tabular.Load(path)
		if err != nil {
			return nil, err
		}
		lines, err := inner.extract(grid)
		if err != nil {
			return nil, fmt.Errorf("daily file %s: %w", path, err)
		}
		all = append(all, lines...)
	}
	return pivot(all)
}
