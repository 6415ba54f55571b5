// Package profiles loads the funder format catalog from YAML. A default
// catalog ships embedded in the binary; deployments with a newer funder
// lineup can point at a file instead.
package profiles

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
)

//go:embed funders.yaml
var embeddedCatalog []byte

// profileSpec is the YAML shape of one funder profile.
type profileSpec struct {
	Name                 string   `yaml:"name"`
	Family               string   `yaml:"family"`
	IDColumn             string   `yaml:"id_column"`
	RequiredColumns      []string `yaml:"required_columns"`
	UniqueColumns        []string `yaml:"unique_columns"`
	ExpectedColumnCount  int      `yaml:"expected_column_count"`
	GrossColumn          string   `yaml:"gross_column"`
	FeeColumn            string   `yaml:"fee_column"`
	FilenameHint         string   `yaml:"filename_hint"`
	IDPattern            string   `yaml:"id_pattern"`
	DailyFilesPerPeriod  int      `yaml:"daily_files_per_period"`
	AuthorizedPortfolios []string `yaml:"authorized_portfolios"`
}

type catalogSpec struct {
	Funders []profileSpec `yaml:"funders"`
}

// Catalog holds the loaded funder profiles in file order.
type Catalog struct {
	profiles []domain.FunderProfile
	byName   map[string]*domain.FunderProfile
}

// New builds a catalog from YAML data, validating every profile.
func New(data []byte) (*Catalog, error) {
	var spec catalogSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse funder catalog YAML: %w", err)
	}
	if len(spec.Funders) == 0 {
		return nil, fmt.Errorf("funder catalog is empty")
	}

	c := &Catalog{
		profiles: make([]domain.FunderProfile, 0, len(spec.Funders)),
		byName:   make(map[string]*domain.FunderProfile, len(spec.Funders)),
	}

	for i, fs := range spec.Funders {
		var pattern *regexp.Regexp
		if fs.IDPattern != "" {
			var err error
			pattern, err = regexp.Compile(fs.IDPattern)
			if err != nil {
				return nil, fmt.Errorf("funder %d (%s): invalid id_pattern %q: %w", i, fs.Name, fs.IDPattern, err)
			}
		}

		profile := domain.FunderProfile{
			Name:                 fs.Name,
			Family:               domain.Family(fs.Family),
			RequiredColumns:      fs.RequiredColumns,
			UniqueColumns:        fs.UniqueColumns,
			ExpectedColumnCount:  fs.ExpectedColumnCount,
			IDColumn:             fs.IDColumn,
			GrossColumn:          fs.GrossColumn,
			FeeColumn:            fs.FeeColumn,
			FilenameHint:         fs.FilenameHint,
			IDPattern:            pattern,
			DailyFilesPerPeriod:  fs.DailyFilesPerPeriod,
			AuthorizedPortfolios: fs.AuthorizedPortfolios,
		}
		if err := profile.Validate(); err != nil {
			return nil, fmt.Errorf("funder %d: %w", i, err)
		}
		if _, dup := c.byName[profile.Name]; dup {
			return nil, fmt.Errorf("duplicate funder name %q", profile.Name)
		}

		c.profiles = append(c.profiles, profile)
		c.byName[profile.Name] = &c.profiles[len(c.profiles)-1]
	}

	return c, nil
}

// LoadEmbedded loads the catalog compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	c, err := New(embeddedCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded funder catalog: %w", err)
	}
	return c, nil
}

// LoadFromFile loads a catalog override from disk.
func LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read funder catalog: %w", err)
	}
	c, err := New(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load funder catalog from %q: %w", path, err)
	}
	return c, nil
}

// ByName returns the profile for a funder, or nil if unknown.
func (c *Catalog) ByName(name string) *domain.FunderProfile {
	return c.byName[name]
}

// All returns the profiles in catalog order.
func (c *Catalog) All() []domain.FunderProfile {
	out := make([]domain.FunderProfile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Names returns the funder names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.profiles))
	for i, p := range c.profiles {
		names[i] = p.Name
	}
	return names
}
