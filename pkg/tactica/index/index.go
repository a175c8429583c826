// Package index provides the page-level retrieval index used to find
// session plans by free text.
package index

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/cognicore/tactica/internal/logger"
)

// Page is one indexable page of a document.
type Page struct {
	Number int
	Text   string
}

// Hit is one search result.
type Hit struct {
	DocumentID string  `json:"document_id"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// Indexer stores and searches pages keyed by document id.
type Indexer interface {
	Index(ctx context.Context, docID string, pages []Page) error
	Delete(ctx context.Context, docID string) error
	Search(ctx context.Context, q string, topK int) ([]Hit, error)
}

const (
	fieldDocID = "document_id"
	fieldPage  = "page_number"
	fieldText  = "text"

	// maxPagesPerDoc bounds the lookup used to replace a document's pages.
	maxPagesPerDoc = 10000
)

type pageDoc struct {
	DocumentID string  `json:"document_id"`
	PageNumber float64 `json:"page_number"`
	Text       string  `json:"text"`
}

// Bleve is an Indexer backed by a bleve index, on disk or in memory.
type Bleve struct {
	mu  sync.Mutex
	idx bleve.Index
	log *logger.Logger
}

func newMapping() *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentMapping()

	id := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt(fieldDocID, id)

	page := bleve.NewNumericFieldMapping()
	doc.AddFieldMappingsAt(fieldPage, page)

	text := bleve.NewTextFieldMapping()
	text.Analyzer = en.AnalyzerName
	text.Store = false
	doc.AddFieldMappingsAt(fieldText, text)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// OpenBleve opens the index at path, creating it when missing. An empty
// path keeps the index in memory.
func OpenBleve(path string, log *logger.Logger) (*Bleve, error) {
	if log == nil {
		log = logger.NewNop()
	}
	var (
		idx bleve.Index
		err error
	)
	switch {
	case path == "":
		idx, err = bleve.NewMemOnly(newMapping())
	default:
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, newMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open page index: %w", err)
	}
	return &Bleve{idx: idx, log: log}, nil
}

// Close releases the index files.
func (b *Bleve) Close() error {
	return b.idx.Close()
}

func pageID(docID string, number int) string {
	return docID + "#" + strconv.Itoa(number)
}

// Index replaces every page previously stored for docID.
func (b *Bleve) Index(ctx context.Context, docID string, pages []Page) error {
	if strings.TrimSpace(docID) == "" {
		return errors.New("index: document id required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.pageIDs(ctx, docID)
	if err != nil {
		return err
	}
	batch := b.idx.NewBatch()
	for _, id := range existing {
		batch.Delete(id)
	}
	indexed := 0
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		if err := batch.Index(pageID(docID, p.Number), pageDoc{
			DocumentID: docID,
			PageNumber: float64(p.Number),
			Text:       p.Text,
		}); err != nil {
			return fmt.Errorf("index page %d: %w", p.Number, err)
		}
		indexed++
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.idx.Batch(batch); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	b.log.Debug("pages indexed", "document", docID, "pages", indexed, "replaced", len(existing))
	return nil
}

// Delete removes every page of docID.
func (b *Bleve) Delete(ctx context.Context, docID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids, err := b.pageIDs(ctx, docID)
	if err != nil || len(ids) == 0 {
		return err
	}
	batch := b.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.idx.Batch(batch)
}

func (b *Bleve) pageIDs(ctx context.Context, docID string) ([]string, error) {
	q := bleve.NewTermQuery(docID)
	q.SetField(fieldDocID)
	req := bleve.NewSearchRequestOptions(q, maxPagesPerDoc, 0, false)
	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lookup pages of %s: %w", docID, err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// Search returns up to topK pages ranked by relevance.
func (b *Bleve) Search(ctx context.Context, text string, topK int) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 10
	}
	var q query.Query
	match := bleve.NewMatchQuery(text)
	match.SetField(fieldText)
	q = match
	req := bleve.NewSearchRequestOptions(q, topK, 0, false)
	req.Fields = []string{fieldDocID, fieldPage}

	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		if v, ok := h.Fields[fieldDocID].(string); ok {
			hit.DocumentID = v
		}
		if v, ok := h.Fields[fieldPage].(float64); ok {
			hit.PageNumber = int(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
