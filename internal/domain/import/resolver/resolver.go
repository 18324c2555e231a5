package resolver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/catalog"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
)

// Thresholds carries the minimum fuzzy scores per entity type.
type Thresholds struct {
	Product float64
	Client  float64
}

// Method records how a name was resolved, for summary display.
type Method string

const (
	MethodSaved      Method = "saved"
	MethodExact      Method = "exact"
	MethodFuzzy      Method = "fuzzy"
	MethodManual     Method = "manual"
	MethodUnresolved Method = "unresolved"
)

// Resolution is the outcome for one distinct normalized name.
type Resolution struct {
	EntityID   uuid.UUID
	EntityName string
	Method     Method
	Score      float64
}

// Resolved reports whether a catalog identity was assigned.
func (r Resolution) Resolved() bool {
	return r.Method != MethodUnresolved
}

// MatchStore is the persisted cache of human-confirmed corrections.
type MatchStore interface {
	ListByType(ctx context.Context, matchType normalizer.MatchType) ([]normalizer.ManualMatch, error)
	Upsert(ctx context.Context, matchType normalizer.MatchType, csvName string, entityID uuid.UUID, entityName string) (*normalizer.ManualMatch, error)
}

// Resolver assigns catalog identities to free-text names. It memoizes per
// distinct normalized name, so a name repeated across hundreds of rows is
// resolved once per batch. A Resolver instance covers exactly one import
// batch; build a fresh one for the next file.
type Resolver struct {
	snapshot   *catalog.Snapshot
	store      MatchStore
	thresholds Thresholds

	savedProducts map[string]normalizer.ManualMatch
	savedClients  map[string]normalizer.ManualMatch

	productCache map[string]Resolution
	clientCache  map[string]Resolution

	productCandidates []Candidate
	clientCandidates  []Candidate
}

// New builds a Resolver over the given catalog snapshot. Saved matches are
// loaded up front in two list calls rather than one lookup per name.
func New(ctx context.Context, snap *catalog.Snapshot, store MatchStore, thresholds Thresholds) (*Resolver, error) {
	r := &Resolver{
		snapshot:      snap,
		store:         store,
		thresholds:    thresholds,
		savedProducts: make(map[string]normalizer.ManualMatch),
		savedClients:  make(map[string]normalizer.ManualMatch),
		productCache:  make(map[string]Resolution),
		clientCache:   make(map[string]Resolution),
	}

	productMatches, err := store.ListByType(ctx, normalizer.MatchTypeProduct)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved product matches: %w", err)
	}
	for _, m := range productMatches {
		r.savedProducts[m.NormalizedCSVName] = m
	}

	clientMatches, err := store.ListByType(ctx, normalizer.MatchTypeClient)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved client matches: %w", err)
	}
	for _, m := range clientMatches {
		r.savedClients[m.NormalizedCSVName] = m
	}

	r.productCandidates = make([]Candidate, 0, len(snap.Products))
	for _, p := range snap.Products {
		r.productCandidates = append(r.productCandidates, Candidate{ID: p.ID, Name: p.Name})
	}
	r.clientCandidates = make([]Candidate, 0, len(snap.Clients))
	for _, c := range snap.Clients {
		r.clientCandidates = append(r.clientCandidates, Candidate{ID: c.ID, Name: c.Name})
	}

	return r, nil
}

// ResolveProduct resolves a free-text product name.
func (r *Resolver) ResolveProduct(name string) Resolution {
	normalized := normalizer.Normalize(name)
	if normalized == "" {
		return Resolution{Method: MethodUnresolved}
	}
	if cached, ok := r.productCache[normalized]; ok {
		return cached
	}

	res := r.resolveProduct(normalized)
	r.productCache[normalized] = res
	return res
}

// ResolveClient resolves a free-text client name.
func (r *Resolver) ResolveClient(name string) Resolution {
	normalized := normalizer.Normalize(name)
	if normalized == "" {
		return Resolution{Method: MethodUnresolved}
	}
	if cached, ok := r.clientCache[normalized]; ok {
		return cached
	}

	res := r.resolveClient(normalized)
	r.clientCache[normalized] = res
	return res
}

func (r *Resolver) resolveProduct(normalized string) Resolution {
	// A saved match pointing at a deleted product is treated as absent
	if m, ok := r.savedProducts[normalized]; ok {
		if p, exists := r.snapshot.ProductByID(m.MatchedID); exists {
			return Resolution{EntityID: p.ID, EntityName: p.Name, Method: MethodSaved}
		}
	}

	if p, ok := r.snapshot.ProductByNormalizedName(normalized); ok {
		return Resolution{EntityID: p.ID, EntityName: p.Name, Method: MethodExact}
	}

	if best, ok := BestMatch(normalized, r.productCandidates, r.thresholds.Product); ok {
		return Resolution{EntityID: best.ID, EntityName: best.Name, Method: MethodFuzzy, Score: best.Score}
	}

	return Resolution{Method: MethodUnresolved}
}

func (r *Resolver) resolveClient(normalized string) Resolution {
	if m, ok := r.savedClients[normalized]; ok {
		if c, exists := r.snapshot.ClientByID(m.MatchedID); exists {
			return Resolution{EntityID: c.ID, EntityName: c.Name, Method: MethodSaved}
		}
	}

	if c, ok := r.snapshot.ClientByNormalizedName(normalized); ok {
		return Resolution{EntityID: c.ID, EntityName: c.Name, Method: MethodExact}
	}

	if best, ok := BestMatch(normalized, r.clientCandidates, r.thresholds.Client); ok {
		return Resolution{EntityID: best.ID, EntityName: best.Name, Method: MethodFuzzy, Score: best.Score}
	}

	return Resolution{Method: MethodUnresolved}
}

// AssignManual persists a human correction and updates the batch cache. The
// store write must succeed before any row is reported resolved, so the write
// happens first and a failure leaves the cache untouched.
func (r *Resolver) AssignManual(ctx context.Context, matchType normalizer.MatchType, csvName string, entityID uuid.UUID) (Resolution, error) {
	normalized := normalizer.Normalize(csvName)
	if normalized == "" {
		return Resolution{}, fmt.Errorf("cannot assign a match for an empty name")
	}

	var entityName string
	switch matchType {
	case normalizer.MatchTypeProduct:
		p, ok := r.snapshot.ProductByID(entityID)
		if !ok {
			return Resolution{}, fmt.Errorf("product %s not found in catalog", entityID)
		}
		entityName = p.Name
	case normalizer.MatchTypeClient:
		c, ok := r.snapshot.ClientByID(entityID)
		if !ok {
			return Resolution{}, fmt.Errorf("client %s not found in catalog", entityID)
		}
		entityName = c.Name
	default:
		return Resolution{}, fmt.Errorf("unknown match type %q", matchType)
	}

	saved, err := r.store.Upsert(ctx, matchType, csvName, entityID, entityName)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to save manual match: %w", err)
	}

	res := Resolution{EntityID: entityID, EntityName: entityName, Method: MethodManual}
	switch matchType {
	case normalizer.MatchTypeProduct:
		r.savedProducts[saved.NormalizedCSVName] = *saved
		r.productCache[normalized] = res
	case normalizer.MatchTypeClient:
		r.savedClients[saved.NormalizedCSVName] = *saved
		r.clientCache[normalized] = res
	}
	return res, nil
}

// SuggestProducts ranks catalog products by similarity for the manual-match
// picker.
func (r *Resolver) SuggestProducts(name string, limit int) []FuzzyResult {
	return RankCandidates(name, r.productCandidates, limit)
}

// SuggestClients ranks catalog clients by similarity.
func (r *Resolver) SuggestClients(name string, limit int) []FuzzyResult {
	return RankCandidates(name, r.clientCandidates, limit)
}
