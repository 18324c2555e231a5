package catalog

import (
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
)

// SuggestionEngine finds catalog entries whose normalized name occurs as a
// substring of a free-text description. It backs the suggestion list shown
// next to rows that need a manual match.
type SuggestionEngine struct {
	mu sync.RWMutex

	productMatcher *ahocorasick.Matcher
	productIDs     []uuid.UUID
	productNames   []string

	clientMatcher *ahocorasick.Matcher
	clientIDs     []uuid.UUID
	clientNames   []string
}

func NewSuggestionEngine() *SuggestionEngine {
	return &SuggestionEngine{}
}

// Rebuild replaces both matchers from the given catalog snapshot.
func (e *SuggestionEngine) Rebuild(snap *Snapshot) {
	productPatterns := make([][]byte, 0, len(snap.Products))
	productIDs := make([]uuid.UUID, 0, len(snap.Products))
	productNames := make([]string, 0, len(snap.Products))
	for _, p := range snap.Products {
		normalized := normalizer.Normalize(p.Name)
		if normalized == "" {
			continue
		}
		productPatterns = append(productPatterns, []byte(normalized))
		productIDs = append(productIDs, p.ID)
		productNames = append(productNames, p.Name)
	}

	clientPatterns := make([][]byte, 0, len(snap.Clients))
	clientIDs := make([]uuid.UUID, 0, len(snap.Clients))
	clientNames := make([]string, 0, len(snap.Clients))
	for _, c := range snap.Clients {
		normalized := normalizer.Normalize(c.Name)
		if normalized == "" {
			continue
		}
		clientPatterns = append(clientPatterns, []byte(normalized))
		clientIDs = append(clientIDs, c.ID)
		clientNames = append(clientNames, c.Name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.productMatcher = ahocorasick.NewMatcher(productPatterns)
	e.productIDs = productIDs
	e.productNames = productNames
	e.clientMatcher = ahocorasick.NewMatcher(clientPatterns)
	e.clientIDs = clientIDs
	e.clientNames = clientNames
}

// Suggestion is a catalog entry found inside a description.
type Suggestion struct {
	EntityID uuid.UUID
	Name     string
	Type     normalizer.MatchType
}

// Suggest returns catalog entries of the given type whose normalized name
// appears inside the description. Results preserve catalog order.
func (e *SuggestionEngine) Suggest(matchType normalizer.MatchType, description string) []Suggestion {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var matcher *ahocorasick.Matcher
	var ids []uuid.UUID
	var names []string
	switch matchType {
	case normalizer.MatchTypeProduct:
		matcher, ids, names = e.productMatcher, e.productIDs, e.productNames
	case normalizer.MatchTypeClient:
		matcher, ids, names = e.clientMatcher, e.clientIDs, e.clientNames
	default:
		return nil
	}
	if matcher == nil {
		return nil
	}

	normalized := normalizer.Normalize(description)
	hits := matcher.Match([]byte(normalized))

	suggestions := make([]Suggestion, 0, len(hits))
	for _, idx := range hits {
		if idx < 0 || idx >= len(ids) {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			EntityID: ids[idx],
			Name:     names[idx],
			Type:     matchType,
		})
	}
	return suggestions
}
