package cache

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/decklens/internal/models"
)

// indexedEntry is the shape indexed per cache entry.
type indexedEntry struct {
	DocumentID string `json:"document_id"`
	Category   string `json:"category"`
	Content    string `json:"content"`
	Keywords   string `json:"keywords"`
}

// EntryIndex is a Bleve keyword index over cache entries, so follow-up
// queries can find already-extracted pages without new vision calls.
type EntryIndex struct {
	index bleve.Index
}

// NewEntryIndex creates or opens a Bleve index at path. An empty path builds
// an in-memory index (tests, ephemeral runs).
func NewEntryIndex(path string) (*EntryIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so literal metric
	// terms like "arr" match exactly.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("keywords", textFieldMapping)

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("document_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)

	im.AddDocumentMapping("entry", docMapping)
	im.DefaultType = "entry"
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		return &EntryIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open cache index: %w", openErr)
		}
		return &EntryIndex{index: index}, nil
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache index: %w", err)
	}
	return &EntryIndex{index: index}, nil
}

// Index adds or replaces an entry in the index, keyed by entry.Key().
func (e *EntryIndex) Index(ctx context.Context, entry *models.CacheEntry) error {
	return e.index.Index(entry.Key(), &indexedEntry{
		DocumentID: entry.DocumentID,
		Category:   string(entry.Category),
		Content:    entry.Content,
		Keywords:   strings.Join(entry.Keywords, " "),
	})
}

// Search returns keys of entries for documentID matching the query, best
// match first. A query that names a category exactly matches on category;
// otherwise it matches over content and keywords.
func (e *EntryIndex) Search(ctx context.Context, documentID, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	boolQuery := bleve.NewBooleanQuery()

	docQuery := bleve.NewTermQuery(documentID)
	docQuery.SetField("document_id")
	boolQuery.AddMust(docQuery)

	if isCategory(query) {
		catQuery := bleve.NewTermQuery(strings.ToLower(strings.TrimSpace(query)))
		catQuery.SetField("category")
		boolQuery.AddMust(catQuery)
	} else {
		contentQuery := bleve.NewMatchQuery(query)
		contentQuery.SetField("content")
		keywordsQuery := bleve.NewMatchQuery(query)
		keywordsQuery.SetField("keywords")
		keywordsQuery.SetBoost(2.0)
		boolQuery.AddMust(bleve.NewDisjunctionQuery(
			blevequery.Query(contentQuery),
			blevequery.Query(keywordsQuery),
		))
	}

	req := bleve.NewSearchRequestOptions(boolQuery, limit, 0, false)
	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("cache index search: %w", err)
	}
	keys := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		keys = append(keys, hit.ID)
	}
	return keys, nil
}

// Delete removes an entry by key.
func (e *EntryIndex) Delete(ctx context.Context, key string) error {
	return e.index.Delete(key)
}

// Close closes the underlying index.
func (e *EntryIndex) Close() error { return e.index.Close() }

func isCategory(query string) bool {
	q := models.Category(strings.ToLower(strings.TrimSpace(query)))
	for _, cat := range models.Categories() {
		if q == cat {
			return true
		}
	}
	return q == models.CategoryGeneral
}
