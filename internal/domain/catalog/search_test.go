package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
)

func newTestIndex(t *testing.T, snap *Snapshot) *SearchIndex {
	t.Helper()
	si, err := NewSearchIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = si.Close() })
	require.NoError(t, si.IndexSnapshot(snap))
	return si
}

func TestSearchIndex_Search(t *testing.T) {
	products := []Product{
		{ID: uuid.New(), Name: "Acetaminofen 500mg"},
		{ID: uuid.New(), Name: "Plexgrip Jarabe 120ml"},
	}
	clients := []Client{{ID: uuid.New(), Name: "Farmacia San Rafael"}}
	si := newTestIndex(t, NewSnapshot(products, clients))

	count, err := si.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	results, err := si.Search(normalizer.MatchTypeProduct, "jarabe", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Plexgrip Jarabe 120ml", results[0].Name)
	assert.Equal(t, products[1].ID, results[0].EntityID)
	assert.Equal(t, normalizer.MatchTypeProduct, results[0].Type)
}

func TestSearchIndex_TypoTolerance(t *testing.T) {
	products := []Product{{ID: uuid.New(), Name: "Acetaminofen 500mg"}}
	si := newTestIndex(t, NewSnapshot(products, nil))

	// one edit away from "acetaminofen"
	results, err := si.Search(normalizer.MatchTypeProduct, "acetaminofem", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, products[0].ID, results[0].EntityID)
}

func TestSearchIndex_TypeFilter(t *testing.T) {
	products := []Product{{ID: uuid.New(), Name: "San Rafael Gotas"}}
	clients := []Client{{ID: uuid.New(), Name: "Farmacia San Rafael"}}
	si := newTestIndex(t, NewSnapshot(products, clients))

	results, err := si.Search(normalizer.MatchTypeClient, "rafael", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, clients[0].ID, results[0].EntityID)
	assert.Equal(t, normalizer.MatchTypeClient, results[0].Type)
}

func TestSearchIndex_SearchPrefix(t *testing.T) {
	products := []Product{
		{ID: uuid.New(), Name: "Plexgrip Jarabe"},
		{ID: uuid.New(), Name: "Plexgrip Tabletas"},
		{ID: uuid.New(), Name: "Azucar"},
	}
	si := newTestIndex(t, NewSnapshot(products, nil))

	results, err := si.SearchPrefix(normalizer.MatchTypeProduct, "plex", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
