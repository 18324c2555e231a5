// Package resolver assigns catalog identities to the free-text product and
// client names found in import files. Resolution layers saved manual matches,
// exact normalized equality, and token-based fuzzy scoring.
package resolver

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
)

// Candidate is a catalog entry offered to the fuzzy matcher.
type Candidate struct {
	ID   uuid.UUID
	Name string
}

// FuzzyResult is the best-scoring candidate for an input name.
type FuzzyResult struct {
	ID    uuid.UUID
	Name  string
	Score float64
}

// Score rates the similarity of two already-normalized strings. The base is
// token-set Jaccard similarity; exact equality adds 0.5 and substring
// containment adds 0.25, so short names embedded in longer descriptions
// still clear the threshold.
func Score(normalizedA, normalizedB string) float64 {
	if normalizedA == "" || normalizedB == "" {
		return 0
	}

	base := jaccard(normalizer.Tokens(normalizedA), normalizer.Tokens(normalizedB))

	switch {
	case normalizedA == normalizedB:
		return base + 0.5
	case contains(normalizedA, normalizedB) || contains(normalizedB, normalizedA):
		return base + 0.25
	}
	return base
}

// BestMatch scores every candidate against the input and returns the highest
// scorer at or above threshold. Candidates are scanned in order and a later
// candidate must strictly beat the current best, so catalog order decides
// ties deterministically.
func BestMatch(input string, candidates []Candidate, threshold float64) (FuzzyResult, bool) {
	normalized := normalizer.Normalize(input)
	if normalized == "" {
		return FuzzyResult{}, false
	}

	var best FuzzyResult
	found := false

	for _, c := range candidates {
		score := Score(normalized, normalizer.Normalize(c.Name))
		if score < threshold {
			continue
		}
		if !found || score > best.Score {
			best = FuzzyResult{ID: c.ID, Name: c.Name, Score: score}
			found = true
		}
	}

	return best, found
}

// RankCandidates orders all candidates by similarity to the input, best
// first, for suggestion lists next to unresolved rows. No threshold applies;
// Levenshtein distance from the fuzzy library breaks score ties so near-miss
// typos rank above unrelated entries.
func RankCandidates(input string, candidates []Candidate, limit int) []FuzzyResult {
	normalized := normalizer.Normalize(input)

	results := make([]FuzzyResult, 0, len(candidates))
	distances := make(map[uuid.UUID]int, len(candidates))

	for _, c := range candidates {
		candNorm := normalizer.Normalize(c.Name)
		results = append(results, FuzzyResult{
			ID:    c.ID,
			Name:  c.Name,
			Score: Score(normalized, candNorm),
		})
		distances[c.ID] = fuzzy.LevenshteinDistance(normalized, candNorm)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return distances[results[i].ID] < distances[results[j].ID]
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, tok := range a {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, tok := range b {
		setB[tok] = struct{}{}
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func contains(haystack, needle string) bool {
	return needle != "" && strings.Contains(haystack, needle)
}
