// Package registry persists the advance-identifier registry: every advance
// ID ever sighted, the funder it was attributed to, and when. The registry
// grows monotonically; entries are upserted on each sighting and never
// deleted. The classifier consults it to disambiguate files whose column
// layout alone is inconclusive.
package registry

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS advances (
	advance_id    TEXT PRIMARY KEY,
	funder        TEXT NOT NULL,
	merchant_name TEXT NOT NULL DEFAULT '',
	portfolio     TEXT NOT NULL DEFAULT '',
	first_seen    TEXT NOT NULL,
	last_updated  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_advances_funder ON advances(funder);
`

// Registry is a SQLite-backed identifier store. Single-writer discipline is
// assumed: one coordinator processes one file at a time.
type Registry struct {
	db *sql.DB
}

// Open opens (creating if needed) the registry database at path.
func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database %s: %w", path, err)
	}

	// WAL keeps readers unblocked during upsert bursts.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL on %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate registry schema: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Upsert records a sighting of an advance. A new ID is inserted with
// first_seen = now; a known ID has its funder, merchant, portfolio, and
// last_updated overwritten while first_seen is preserved. Overwriting the
// funder on conflict is deliberate: the most recent classification wins.
func (r *Registry) Upsert(entry domain.RegistryEntry) error {
	return upsert(r.db, entry)
}

// UpsertAll records a batch of sightings in one transaction, so a failure
// partway through leaves the registry untouched.
func (r *Registry) UpsertAll(entries []domain.RegistryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin registry batch: %w", err)
	}
	for _, e := range entries {
		if err := upsert(tx, e); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registry batch: %w", err)
	}
	return nil
}

// execer abstracts over *sql.DB and *sql.Tx for the upsert statement.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsert(db execer, entry domain.RegistryEntry) error {
	if strings.TrimSpace(entry.AdvanceID) == "" {
		return fmt.Errorf("advance ID cannot be empty")
	}
	if entry.Funder == "" {
		return fmt.Errorf("funder cannot be empty")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.Exec(`
		INSERT INTO advances (advance_id, funder, merchant_name, portfolio, first_seen, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(advance_id) DO UPDATE SET
			funder        = excluded.funder,
			merchant_name = excluded.merchant_name,
			portfolio     = excluded.portfolio,
			last_updated  = excluded.last_updated`,
		strings.TrimSpace(entry.AdvanceID), entry.Funder, entry.MerchantName, entry.Portfolio, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert advance %s: %w", entry.AdvanceID, err)
	}
	return nil
}

// LookupSet returns the known entries among the given IDs, keyed by ID.
// Unknown IDs are simply absent from the result.
func (r *Registry) LookupSet(ids []string) (map[string]domain.RegistryEntry, error) {
	result := make(map[string]domain.RegistryEntry, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.Query(
		`SELECT advance_id, funder, merchant_name, portfolio, first_seen, last_updated
		 FROM advances WHERE advance_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up advances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.RegistryEntry
		var firstSeen, lastUpdated string
		if err := rows.Scan(&entry.AdvanceID, &entry.Funder, &entry.MerchantName,
			&entry.Portfolio, &firstSeen, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan advance row: %w", err)
		}
		entry.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
		entry.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
		result[entry.AdvanceID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read advance rows: %w", err)
	}
	return result, nil
}

// CountByFunder tallies how many of the given IDs are already attributed to
// each funder. Used by the classifier's registry-corroboration evidence.
func (r *Registry) CountByFunder(ids []string) (map[string]int, error) {
	entries, err := r.LookupSet(ids)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, entry := range entries {
		counts[entry.Funder]++
	}
	return counts, nil
}
