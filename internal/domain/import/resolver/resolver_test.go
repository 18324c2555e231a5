package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/catalog"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
)

// fakeMatchStore is an in-memory MatchStore for resolver tests.
type fakeMatchStore struct {
	matches     map[normalizer.MatchType]map[string]normalizer.ManualMatch
	listErr     error
	upsertErr   error
	upsertCalls int
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{
		matches: map[normalizer.MatchType]map[string]normalizer.ManualMatch{
			normalizer.MatchTypeProduct: {},
			normalizer.MatchTypeClient:  {},
		},
	}
}

func (f *fakeMatchStore) ListByType(_ context.Context, matchType normalizer.MatchType) ([]normalizer.ManualMatch, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []normalizer.ManualMatch
	for _, m := range f.matches[matchType] {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMatchStore) Upsert(_ context.Context, matchType normalizer.MatchType, csvName string, entityID uuid.UUID, entityName string) (*normalizer.ManualMatch, error) {
	f.upsertCalls++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	m := normalizer.ManualMatch{
		ID:                uuid.New(),
		Type:              matchType,
		NormalizedCSVName: normalizer.Normalize(csvName),
		MatchedID:         entityID,
		MatchedName:       entityName,
	}
	f.matches[matchType][m.NormalizedCSVName] = m
	return &m, nil
}

func (f *fakeMatchStore) put(matchType normalizer.MatchType, normalized string, entityID uuid.UUID, name string) {
	f.matches[matchType][normalized] = normalizer.ManualMatch{
		ID:                uuid.New(),
		Type:              matchType,
		NormalizedCSVName: normalized,
		MatchedID:         entityID,
		MatchedName:       name,
	}
}

func testSnapshot(products []catalog.Product, clients []catalog.Client) *catalog.Snapshot {
	return catalog.NewSnapshot(products, clients)
}

func product(name string) catalog.Product {
	return catalog.Product{ID: uuid.New(), Name: name, Percentage: decimal.NewFromInt(10)}
}

func client(name string) catalog.Client {
	return catalog.Client{ID: uuid.New(), Name: name}
}

var testThresholds = Thresholds{Product: 0.62, Client: 0.68}

func TestResolver_ExactBeatsFuzzy(t *testing.T) {
	// A fuzzy candidate that would score very high must lose to the
	// entry whose normalized name equals the input exactly
	fuzzyCandidate := product("Plexgrip Jarabe 120ml Pediatrico")
	exact := product("Plexgrip Jarabe")
	snap := testSnapshot([]catalog.Product{fuzzyCandidate, exact}, nil)

	r, err := New(context.Background(), snap, newFakeMatchStore(), testThresholds)
	require.NoError(t, err)

	res := r.ResolveProduct("PLEXGRIP--JARABE")
	require.True(t, res.Resolved())
	assert.Equal(t, MethodExact, res.Method)
	assert.Equal(t, exact.ID, res.EntityID)
}

func TestResolver_SavedMatchBeatsExact(t *testing.T) {
	corrected := product("Plexgrip Jarabe 120ml")
	sameName := product("Plexgrip Jarabe")
	snap := testSnapshot([]catalog.Product{sameName, corrected}, nil)

	store := newFakeMatchStore()
	store.put(normalizer.MatchTypeProduct, "plexgrip jarabe", corrected.ID, corrected.Name)

	r, err := New(context.Background(), snap, store, testThresholds)
	require.NoError(t, err)

	res := r.ResolveProduct("Plexgrip Jarabe")
	require.True(t, res.Resolved())
	assert.Equal(t, MethodSaved, res.Method)
	assert.Equal(t, corrected.ID, res.EntityID)
}

func TestResolver_StaleSavedMatchIgnored(t *testing.T) {
	// The saved match points at a product that no longer exists; the
	// resolver falls through to the remaining layers instead of crashing
	existing := product("Plexgrip Jarabe")
	snap := testSnapshot([]catalog.Product{existing}, nil)

	store := newFakeMatchStore()
	store.put(normalizer.MatchTypeProduct, "plexgrip jarabe", uuid.New(), "Deleted Product")

	r, err := New(context.Background(), snap, store, testThresholds)
	require.NoError(t, err)

	res := r.ResolveProduct("Plexgrip Jarabe")
	require.True(t, res.Resolved())
	assert.Equal(t, MethodExact, res.Method)
	assert.Equal(t, existing.ID, res.EntityID)
}

func TestResolver_FuzzyAboveThreshold(t *testing.T) {
	p := product("Plexgrip Jarabe 120ml")
	snap := testSnapshot([]catalog.Product{p}, nil)

	r, err := New(context.Background(), snap, newFakeMatchStore(), testThresholds)
	require.NoError(t, err)

	res := r.ResolveProduct("Plexgrip Jarabe")
	require.True(t, res.Resolved())
	assert.Equal(t, MethodFuzzy, res.Method)
	assert.Equal(t, p.ID, res.EntityID)
	assert.GreaterOrEqual(t, res.Score, testThresholds.Product)
}

func TestResolver_Unresolved(t *testing.T) {
	snap := testSnapshot([]catalog.Product{product("Cloruro de Sodio")}, nil)

	r, err := New(context.Background(), snap, newFakeMatchStore(), testThresholds)
	require.NoError(t, err)

	res := r.ResolveProduct("Vitamina C Masticable")
	assert.False(t, res.Resolved())
	assert.Equal(t, MethodUnresolved, res.Method)
}

func TestResolver_ClientThresholdIsSeparate(t *testing.T) {
	c := client("Farmacia San Rafael Centro")
	snap := testSnapshot(nil, []catalog.Client{c})

	// jaccard 3/4 + containment 0.25 = 1.0, above both thresholds
	r, err := New(context.Background(), snap, newFakeMatchStore(), Thresholds{Product: 0.62, Client: 0.68})
	require.NoError(t, err)

	res := r.ResolveClient("Farmacia San Rafael")
	require.True(t, res.Resolved())
	assert.Equal(t, c.ID, res.EntityID)

	// Same input against a stricter threshold stays unresolved
	strict, err := New(context.Background(), snap, newFakeMatchStore(), Thresholds{Product: 0.62, Client: 1.2})
	require.NoError(t, err)
	assert.False(t, strict.ResolveClient("Farmacia San Rafael").Resolved())
}

func TestResolver_MemoizesPerNormalizedName(t *testing.T) {
	p := product("Azucar")
	snap := testSnapshot([]catalog.Product{p}, nil)

	r, err := New(context.Background(), snap, newFakeMatchStore(), testThresholds)
	require.NoError(t, err)

	first := r.ResolveProduct("Azúcar")
	second := r.ResolveProduct("AZUCAR")
	assert.Equal(t, first, second, "spellings sharing a normalized form resolve identically")
}

func TestResolver_ListFailureSurfaced(t *testing.T) {
	store := newFakeMatchStore()
	store.listErr = errors.New("connection refused")

	_, err := New(context.Background(), testSnapshot(nil, nil), store, testThresholds)
	assert.Error(t, err)
}

func TestResolver_AssignManual(t *testing.T) {
	p := product("Plexgrip Jarabe 120ml")
	snap := testSnapshot([]catalog.Product{p}, nil)
	store := newFakeMatchStore()

	r, err := New(context.Background(), snap, store, testThresholds)
	require.NoError(t, err)

	res, err := r.AssignManual(context.Background(), normalizer.MatchTypeProduct, "PLEXGRIP JBE", p.ID)
	require.NoError(t, err)
	assert.Equal(t, MethodManual, res.Method)
	assert.Equal(t, 1, store.upsertCalls)

	// Future resolutions of the same name come from the cache
	again := r.ResolveProduct("plexgrip jbe")
	assert.Equal(t, p.ID, again.EntityID)
}

func TestResolver_AssignManual_StoreFailureLeavesCacheUntouched(t *testing.T) {
	p := product("Plexgrip Jarabe 120ml")
	snap := testSnapshot([]catalog.Product{p}, nil)
	store := newFakeMatchStore()
	store.upsertErr = errors.New("write failed")

	r, err := New(context.Background(), snap, store, testThresholds)
	require.NoError(t, err)

	_, err = r.AssignManual(context.Background(), normalizer.MatchTypeProduct, "PLEXGRIP JBE", p.ID)
	require.Error(t, err)

	// The failed write must not have marked the name resolved
	assert.False(t, r.ResolveProduct("PLEXGRIP JBE").Resolved())
}

func TestResolver_AssignManual_UnknownEntity(t *testing.T) {
	snap := testSnapshot([]catalog.Product{product("Azucar")}, nil)
	r, err := New(context.Background(), snap, newFakeMatchStore(), testThresholds)
	require.NoError(t, err)

	_, err = r.AssignManual(context.Background(), normalizer.MatchTypeProduct, "algo", uuid.New())
	assert.Error(t, err)
}
