package category

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
)

// searchDocument is the indexed shape of one category: its display name plus
// all learned keywords flattened into a single searchable text field.
type searchDocument struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Keywords string `json:"keywords"`
	UserID   string `json:"user_id"`
}

// SearchHit is one ranked result from the category index.
type SearchHit struct {
	CategoryID uuid.UUID
	Name       string
	Score      float64
}

// SearchIndex ranks categories against a free-text label using bleve. It is
// in-memory only; each user's index is rebuilt from their category set when
// that set changes.
type SearchIndex struct {
	index bleve.Index
	mu    sync.RWMutex
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex() (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create category index: %w", err)
	}
	return &SearchIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("keywords", textFieldMapping)
	docMapping.AddFieldMappingsAt("user_id", keywordFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// IndexCategories replaces the index contents with the given category set.
func (si *SearchIndex) IndexCategories(cats []Category) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	if err := si.clearLocked(); err != nil {
		return err
	}

	batch := si.index.NewBatch()
	for _, cat := range cats {
		if cat.IsOther {
			continue
		}
		doc := searchDocument{
			ID:       cat.ID.String(),
			Name:     normalizeName(cat.Name),
			Keywords: strings.ToLower(strings.Join(cat.Keywords, " ")),
			UserID:   cat.UserID.String(),
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("index category %s: %w", cat.ID, err)
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("batch index categories: %w", err)
	}
	return nil
}

// Best returns the top-ranked category for the label, with typo tolerance of
// one edit. ok is false when nothing in the index matches at all.
func (si *SearchIndex) Best(label string) (SearchHit, bool, error) {
	hits, err := si.Search(label, 1)
	if err != nil || len(hits) == 0 {
		return SearchHit{}, false, err
	}
	return hits[0], true, nil
}

// Search returns up to limit categories ranked by relevance to the label.
func (si *SearchIndex) Search(label string, limit int) ([]SearchHit, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}

	matchQuery := bleve.NewMatchQuery(strings.ToLower(normalizeName(label)))
	matchQuery.SetFuzziness(1)

	request := bleve.NewSearchRequest(matchQuery)
	request.Size = limit
	request.Fields = []string{"name"}

	results, err := si.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("category search: %w", err)
	}

	hits := make([]SearchHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		name, _ := hit.Fields["name"].(string)
		hits = append(hits, SearchHit{CategoryID: id, Name: name, Score: hit.Score})
	}
	return hits, nil
}

// DocumentCount returns the number of indexed categories.
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return si.index.DocCount()
}

// Close releases the index.
func (si *SearchIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.index.Close()
}

func (si *SearchIndex) clearLocked() error {
	query := bleve.NewMatchAllQuery()
	request := bleve.NewSearchRequest(query)
	request.Size = 10000

	results, err := si.index.Search(request)
	if err != nil {
		return fmt.Errorf("list indexed categories: %w", err)
	}

	batch := si.index.NewBatch()
	for _, hit := range results.Hits {
		batch.Delete(hit.ID)
	}
	return si.index.Batch(batch)
}
