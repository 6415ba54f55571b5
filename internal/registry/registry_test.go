package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/remitparse/internal/domain"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegistry_UpsertAndLookup(t *testing.T) {
	r := openTestRegistry(t)

	err := r.Upsert(domain.RegistryEntry{
		AdvanceID:    "VF-000001",
		Funder:       "Vantage Funding",
		MerchantName: "Alpha LLC",
		Portfolio:    "alpha",
	})
	require.NoError(t, err)

	entries, err := r.LookupSet([]string{"VF-000001", "VF-999999"})
	require.NoError(t, err)
	require.Len(t, entries, 1, "unknown IDs must be absent, not zero-valued")

	got := entries["VF-000001"]
	assert.Equal(t, "Vantage Funding", got.Funder)
	assert.Equal(t, "Alpha LLC", got.MerchantName)
	assert.False(t, got.FirstSeen.IsZero(), "first_seen should be populated")
	assert.False(t, got.LastUpdated.IsZero(), "last_updated should be populated")
}

// The registry deliberately lets the most recent classification win on
// conflicting funder attribution for the same advance. This is observed
// legacy behavior, preserved rather than endorsed: it can drift a
// misclassified ID further from the truth over time.
func TestRegistry_MostRecentClassificationWins(t *testing.T) {
	r := openTestRegistry(t)

	first := domain.RegistryEntry{AdvanceID: "X-1", Funder: "Vantage Funding", MerchantName: "Shop"}
	require.NoError(t, r.Upsert(first))
	before, err := r.LookupSet([]string{"X-1"})
	require.NoError(t, err)

	second := domain.RegistryEntry{AdvanceID: "X-1", Funder: "Crestline Capital", MerchantName: "Shop"}
	require.NoError(t, r.Upsert(second))

	after, err := r.LookupSet([]string{"X-1"})
	require.NoError(t, err)
	assert.Equal(t, "Crestline Capital", after["X-1"].Funder, "overwrite on conflict")
	assert.True(t, after["X-1"].FirstSeen.Equal(before["X-1"].FirstSeen),
		"first_seen must survive re-upsert")
}

func TestRegistry_CountByFunder(t *testing.T) {
	r := openTestRegistry(t)

	seed := []domain.RegistryEntry{
		{AdvanceID: "A1", Funder: "Vantage Funding"},
		{AdvanceID: "A2", Funder: "Vantage Funding"},
		{AdvanceID: "B1", Funder: "Crestline Capital"},
	}
	require.NoError(t, r.UpsertAll(seed))

	counts, err := r.CountByFunder([]string{"A1", "A2", "B1", "UNKNOWN"})
	require.NoError(t, err)
	assert.Equal(t, 2, counts["Vantage Funding"])
	assert.Equal(t, 1, counts["Crestline Capital"])
}

func TestRegistry_UpsertAllIsAtomic(t *testing.T) {
	r := openTestRegistry(t)

	batch := []domain.RegistryEntry{
		{AdvanceID: "A1", Funder: "Vantage Funding"},
		{AdvanceID: "  ", Funder: "Vantage Funding"}, // invalid mid-batch
		{AdvanceID: "A3", Funder: "Vantage Funding"},
	}
	require.Error(t, r.UpsertAll(batch))

	entries, err := r.LookupSet([]string{"A1", "A3"})
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed batch must not persist any of its entries")
}

func TestRegistry_RejectsEmptyID(t *testing.T) {
	r := openTestRegistry(t)
	err := r.Upsert(domain.RegistryEntry{AdvanceID: "  ", Funder: "X"})
	assert.Error(t, err, "blank advance ID must be rejected")
}
