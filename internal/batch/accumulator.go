// Package batch gates funders whose weekly total is delivered as several
// daily files. Reconciling before every daily file has arrived would
// understate the ledger, so the accumulator tracks arrivals per
// (portfolio, funder, period) key and reports readiness. The decision is a
// pure state check; callers re-invoke processing when later files arrive.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CurrentVersion is the state file format version.
const CurrentVersion = 1

// Key identifies one accumulation bucket.
type Key struct {
	Portfolio string
	Funder    string
	Period    string
}

func (k Key) String() string {
	return k.Portfolio + "|" + k.Funder + "|" + k.Period
}

// record tracks the files seen for one key.
type record struct {
	Files     []string  `json:"files"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
}

// state is the persisted accumulator state.
type state struct {
	Version     int                `json:"version"`
	Buckets     map[string]*record `json:"buckets"`
	LastUpdated time.Time          `json:"lastUpdated"`
}

// Accumulator tracks daily-file arrivals. With a state path it survives
// restarts; with an empty path it is purely in-memory.
type Accumulator struct {
	statePath string
	state     *state
}

// New creates an accumulator, loading prior state from statePath when the
// file exists.
func New(statePath string) (*Accumulator, error) {
	a := &Accumulator{
		statePath: statePath,
		state:     &state{Version: CurrentVersion, Buckets: make(map[string]*record)},
	}
	if statePath == "" {
		return a, nil
	}

	data, err := os.ReadFile(statePath)
	if os.IsNotExist(err) {
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read accumulator state: %w", err)
	}

	var loaded state
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse accumulator state %s: %w", statePath, err)
	}
	if loaded.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported accumulator state version %d", loaded.Version)
	}
	if loaded.Buckets == nil {
		loaded.Buckets = make(map[string]*record)
	}
	a.state = &loaded
	return a, nil
}

// Accept records a file arrival for the key and reports whether the bucket
// holds at least expectedFiles distinct files. The same path twice does not
// advance the count. An already-open gate stays open.
func (a *Accumulator) Accept(key Key, filePath string, expectedFiles int) (bool, error) {
	if expectedFiles < 1 {
		expectedFiles = 1
	}

	cleaned, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return false, fmt.Errorf("failed to resolve path %s: %w", filePath, err)
	}

	now := time.Now().UTC()
	rec, ok := a.state.Buckets[key.String()]
	if !ok {
		rec = &record{FirstSeen: now}
		a.state.Buckets[key.String()] = rec
	}

	known := false
	for _, f := range rec.Files {
		if f == cleaned {
			known = true
			break
		}
	}
	if !known {
		rec.Files = append(rec.Files, cleaned)
	}
	rec.LastSeen = now
	a.state.LastUpdated = now

	if err := a.save(); err != nil {
		return false, err
	}
	return len(rec.Files) >= expectedFiles, nil
}

// Files returns the accumulated file paths for the key in arrival order.
func (a *Accumulator) Files(key Key) []string {
	rec, ok := a.state.Buckets[key.String()]
	if !ok {
		return nil
	}
	return append([]string(nil), rec.Files...)
}

// save persists the state atomically (write temp, rename).
func (a *Accumulator) save() error {
	if a.statePath == "" {
		return nil
	}

	data, err := json.MarshalIndent(a.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode accumulator state: %w", err)
	}

	tmp := a.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write accumulator state: %w", err)
	}
	if err := os.Rename(tmp, a.statePath); err != nil {
		return fmt.Errorf("failed to replace accumulator state: %w", err)
	}
	return nil
}
