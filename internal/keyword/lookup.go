package keyword

import (
	"context"
	"fmt"
	"time"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
)

// RecordFinder loads stored feedback by id.
type RecordFinder interface {
	FindByIDs(ctx context.Context, ids []string) ([]*models.Record, error)
}

// Lookup runs q against idx and resolves the hits to stored records, keeping score order.
// Hits whose record is gone from the store are dropped.
func Lookup(ctx context.Context, idx KeywordIndex, store RecordFinder, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	results, total, err := idx.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	recs, err := store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load search hits: %w", err)
	}
	byID := make(map[string]*models.Record, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}

	hits := make([]*models.SearchHit, 0, len(results))
	for _, r := range results {
		rec, ok := byID[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, &models.SearchHit{
			Record:     rec,
			Score:      r.Score,
			Highlights: r.Highlights,
			Rank:       q.Offset + len(hits) + 1,
		})
	}
	return &models.SearchResponse{
		Hits:      hits,
		Total:     int(total),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     q.Query,
	}, nil
}
