package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
)

// Indexed field names.
const (
	fieldFeedback = "user_feedback"
	fieldResponse = "response_text"
	fieldDistrict = "district_name"
	fieldService  = "service_type"
	fieldCreated  = "created_at"
)

// openTimeout bounds the wait for another process holding the index open.
const openTimeout = "2s"

// defaultFuzziness is the edit distance used for fuzzy queries.
const defaultFuzziness = 1

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If the path already exists, the existing index is opened and reused.
// If you change the index mapping in code, remove the index directory and run reindex.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.OpenUsing(path, map[string]interface{}{"bolt_timeout": openTimeout})
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryBleveIndex creates an in-memory index, used when no index path is configured.
func NewMemoryBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so district and place names match
	// as typed.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(fieldFeedback, textFieldMapping)

	responseMapping := bleve.NewTextFieldMapping()
	responseMapping.Analyzer = standard.Name
	responseMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldResponse, responseMapping)

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	keywordFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldDistrict, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(fieldService, keywordFieldMapping)

	dateMapping := bleve.NewDateTimeFieldMapping()
	dateMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldCreated, dateMapping)

	im.AddDocumentMapping("feedback", docMapping)
	im.DefaultType = "feedback"
	im.DefaultMapping = docMapping
	return im
}

// Index indexes a feedback record by its id.
func (b *BleveIndex) Index(ctx context.Context, rec *models.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("cannot index record without id")
	}
	doc := map[string]interface{}{
		fieldFeedback: rec.UserFeedback,
		fieldResponse: rec.ResponseText,
		fieldDistrict: rec.DistrictName,
		fieldService:  rec.ServiceType,
		fieldCreated:  rec.CreatedAt,
	}
	return b.index.Index(rec.ID, doc)
}

// Search runs a match (or fuzzy) query over the feedback text, filtered by district and
// service when set.
func (b *BleveIndex) Search(ctx context.Context, q *models.SearchQuery) ([]*KeywordResult, uint64, error) {
	var text blevequery.Query
	if q.Fuzzy {
		text = buildFuzzyQuery(q.Query, defaultFuzziness, fieldFeedback)
	} else {
		mq := bleve.NewMatchQuery(q.Query)
		mq.SetField(fieldFeedback)
		text = mq
	}

	clauses := []blevequery.Query{text}
	if q.DistrictName != "" {
		tq := bleve.NewTermQuery(q.DistrictName)
		tq.SetField(fieldDistrict)
		clauses = append(clauses, tq)
	}
	if q.ServiceType != "" {
		tq := bleve.NewTermQuery(q.ServiceType)
		tq.SetField(fieldService)
		clauses = append(clauses, tq)
	}
	var query blevequery.Query = text
	if len(clauses) > 1 {
		query = bleve.NewConjunctionQuery(clauses...)
	}

	req := bleve.NewSearchRequestOptions(query, q.Limit, q.Offset, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField(fieldFeedback)
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		res := &KeywordResult{ID: hit.ID, Score: hit.Score}
		if frags := hit.Fragments[fieldFeedback]; len(frags) > 0 {
			res.Highlights = map[string]string{fieldFeedback: strings.Join(frags, " … ")}
		}
		out[i] = res
	}
	return out, results.Total, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query.
// If field is empty, searches all fields; otherwise restricts to the specified field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a record from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
