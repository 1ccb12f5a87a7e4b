// Package storage defines the persistence interface for feedback records.
package storage

import (
	"context"
	"errors"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the document store for feedback records. Record ids are assigned by the store.
type Storage interface {
	// Insert stores rec, assigning ID and CreatedAt, and returns the new ID.
	Insert(ctx context.Context, rec *models.Record) (string, error)
	Get(ctx context.Context, id string) (*models.Record, error)
	// FindByIDs returns the records for ids in the order given. Unknown ids are omitted.
	FindByIDs(ctx context.Context, ids []string) ([]*models.Record, error)
	// FindByKey returns all records for a district and service type, oldest first.
	FindByKey(ctx context.Context, district, service string) ([]*models.Record, error)
	List(ctx context.Context, offset, limit int) ([]*models.Record, error)
	// ForEach calls fn for every record, oldest first, stopping at the first error.
	ForEach(ctx context.Context, fn func(*models.Record) error) error
	Count(ctx context.Context) (int64, error)
	Close() error
}
