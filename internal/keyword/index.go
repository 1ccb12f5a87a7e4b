// Package keyword provides full-text search over stored feedback.
package keyword

import (
	"context"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
)

// KeywordIndex defines keyword search operations over feedback records.
type KeywordIndex interface {
	// Index adds or replaces rec under rec.ID.
	Index(ctx context.Context, rec *models.Record) error
	// Search returns hits for q.Query, restricted to q.DistrictName and q.ServiceType when set,
	// together with the total number of matches.
	Search(ctx context.Context, q *models.SearchQuery) ([]*KeywordResult, uint64, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID         string
	Score      float64
	Highlights map[string]string
}
