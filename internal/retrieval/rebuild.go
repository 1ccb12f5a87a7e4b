package retrieval

import (
	"context"
	"fmt"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/storage"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
	"github.com/Nikhil-Zer0/PublicService-backend/pkg/utils"
)

// RebuildOptions controls Rebuild.
type RebuildOptions struct {
	// Reembed, when set, embeds every record's text again instead of using the stored
	// embedding. Needed after a model change.
	Reembed Encoder
	// Progress is called once per record.
	Progress func()
}

// Rebuild builds a fresh index from every stored record in insertion order. Stored
// embeddings are used unless opts.Reembed is set; a stored embedding of the wrong dimension
// is an error.
func Rebuild(ctx context.Context, store storage.Storage, dimensions int, opts RebuildOptions) (*vector.FlatIndex, error) {
	idx, err := vector.NewFlatIndex(dimensions)
	if err != nil {
		return nil, err
	}
	err = store.ForEach(ctx, func(rec *models.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		emb := rec.Embedding
		if opts.Reembed != nil {
			var err error
			emb, err = opts.Reembed.Embed(ctx, utils.NormalizeText(rec.UserFeedback))
			if err != nil {
				return fmt.Errorf("failed to embed feedback %s: %w", rec.ID, err)
			}
		}
		if err := idx.Add(ctx, rec.ID, emb); err != nil {
			return fmt.Errorf("feedback %s: %w", rec.ID, err)
		}
		if opts.Progress != nil {
			opts.Progress()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}
	return idx, nil
}
