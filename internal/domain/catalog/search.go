package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
)

// SearchDocument is an indexed catalog entry.
type SearchDocument struct {
	ID         string `json:"id"`
	Name       string `json:"name"`       // catalog display name
	Normalized string `json:"normalized"` // canonical form, for exact lookups
	Type       string `json:"type"`       // "product" or "client"
}

// SearchResult is a search hit with its relevance score.
type SearchResult struct {
	EntityID uuid.UUID
	Name     string
	Type     normalizer.MatchType
	Score    float64
}

// SearchIndex backs the inline catalog-search control shown next to
// unresolved rows, so corrections happen without re-uploading the file.
// It combines a Bleve full-text index with typo tolerance.
type SearchIndex struct {
	index   bleve.Index
	indexMu sync.RWMutex
	path    string // empty = in-memory
}

// NewSearchIndex creates a search index. An empty path means in-memory.
func NewSearchIndex(path string) (*SearchIndex, error) {
	si := &SearchIndex{path: path}

	var index bleve.Index
	var err error

	indexMapping := buildIndexMapping()

	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", mkdirErr)
		}
		index, err = bleve.New(path, indexMapping)
	} else {
		index, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	si.index = index
	return si, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("normalized", textFieldMapping)
	docMapping.AddFieldMappingsAt("type", keywordFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name

	return indexMapping
}

// IndexSnapshot replaces the index contents with the given catalog snapshot.
func (si *SearchIndex) IndexSnapshot(snap *Snapshot) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	batch := si.index.NewBatch()

	for _, p := range snap.Products {
		doc := SearchDocument{
			ID:         fmt.Sprintf("product_%s", p.ID),
			Name:       p.Name,
			Normalized: normalizer.Normalize(p.Name),
			Type:       string(normalizer.MatchTypeProduct),
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index product %s: %w", p.ID, err)
		}
	}

	for _, c := range snap.Clients {
		doc := SearchDocument{
			ID:         fmt.Sprintf("client_%s", c.ID),
			Name:       c.Name,
			Normalized: normalizer.Normalize(c.Name),
			Type:       string(normalizer.MatchTypeClient),
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index client %s: %w", c.ID, err)
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// Search runs a typo-tolerant match query restricted to one entity type.
func (si *SearchIndex) Search(matchType normalizer.MatchType, query string, limit int) ([]SearchResult, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	matchQuery := bleve.NewMatchQuery(normalizer.Normalize(query))
	matchQuery.SetField("normalized")
	matchQuery.SetFuzziness(1)

	typeQuery := bleve.NewTermQuery(string(matchType))
	typeQuery.SetField("type")

	conjunction := bleve.NewConjunctionQuery(matchQuery, typeQuery)

	searchRequest := bleve.NewSearchRequest(conjunction)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}

	return convertResults(searchResults)
}

// SearchPrefix runs an autocomplete-style prefix query on normalized names.
func (si *SearchIndex) SearchPrefix(matchType normalizer.MatchType, prefix string, limit int) ([]SearchResult, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	prefixQuery := bleve.NewPrefixQuery(normalizer.Normalize(prefix))
	prefixQuery.SetField("normalized")

	typeQuery := bleve.NewTermQuery(string(matchType))
	typeQuery.SetField("type")

	conjunction := bleve.NewConjunctionQuery(prefixQuery, typeQuery)

	searchRequest := bleve.NewSearchRequest(conjunction)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("catalog prefix search failed: %w", err)
	}

	return convertResults(searchResults)
}

func convertResults(searchResults *bleve.SearchResult) ([]SearchResult, error) {
	results := make([]SearchResult, 0, len(searchResults.Hits))

	for _, hit := range searchResults.Hits {
		var result SearchResult
		result.Score = hit.Score

		if name, ok := hit.Fields["name"].(string); ok {
			result.Name = name
		}
		if docType, ok := hit.Fields["type"].(string); ok {
			result.Type = normalizer.MatchType(docType)
		}

		// IDs are stored as "<type>_<uuid>"
		raw := hit.ID
		if idx := len(string(result.Type)) + 1; idx < len(raw) {
			if entityID, err := uuid.Parse(raw[idx:]); err == nil {
				result.EntityID = entityID
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// DocumentCount returns the number of indexed entries.
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()
	return si.index.DocCount()
}

// Close closes the underlying index.
func (si *SearchIndex) Close() error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	if si.index != nil {
		return si.index.Close()
	}
	return nil
}
