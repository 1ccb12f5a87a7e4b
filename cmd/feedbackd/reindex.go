package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/config"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/retrieval"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/storage"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
)

func newReindexCmd(g *globalOptions) *cobra.Command {
	var verify, reembed bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the vector and keyword indexes from stored feedback",
		Long: `Rebuild the vector index file from the embeddings stored with each record, in
insertion order, and re-add every record to the keyword index.

Use --reembed after changing the embedding model, and --verify to check the persisted
index against the store without changing anything. Stop the server first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if verify {
				return verifyIndex(ctx, cmd.OutOrStdout(), cfg)
			}
			components, err := initializeComponents(cfg, logger, vector.WithCorruptSetAside())
			if err != nil {
				return err
			}
			defer components.Close()
			if aside := components.Index.SetAsidePath(); aside != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Index file was unreadable; moved to %s\n", aside)
			}
			return reindex(ctx, components, reembed, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "only load and check the persisted index")
	cmd.Flags().BoolVar(&reembed, "reembed", false, "embed every record again instead of using stored embeddings")
	return cmd
}

// reindex replaces the live vector index with one rebuilt from the store and refreshes the
// keyword index.
func reindex(ctx context.Context, c *Components, reembed bool, out, progressOut io.Writer, logger *zap.Logger) error {
	total, err := c.Storage.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	start := time.Now()
	bar := newProgressBar(progressOut, int(total), "[cyan]Reindexing[reset]")
	opts := retrieval.RebuildOptions{Progress: func() { _ = bar.Add(1) }}
	if reembed {
		opts.Reembed = c.Encoder
	}
	idx, err := retrieval.Rebuild(ctx, c.Storage, c.Index.Dimensions(), opts)
	if err != nil {
		if errors.Is(err, vector.ErrDimensionMismatch) && !reembed {
			return fmt.Errorf("%w (stored embeddings do not match the configured model; run with --reembed)", err)
		}
		return fmt.Errorf("rebuild failed: %w", err)
	}
	if err := c.Index.Replace(idx); err != nil {
		return err
	}
	_ = bar.Finish()

	docs := 0
	err = c.Storage.ForEach(ctx, func(rec *models.Record) error {
		docs++
		return c.Keyword.Index(ctx, rec)
	})
	if err != nil {
		return fmt.Errorf("keyword reindex failed: %w", err)
	}

	logger.Info("reindex complete",
		zap.Int("vectors", idx.Size()),
		zap.Int("keyword_docs", docs),
		zap.Bool("reembed", reembed),
		zap.Duration("elapsed", time.Since(start)))
	fmt.Fprintf(out, "Rebuilt vector index with %d entries and keyword index with %d documents\n", idx.Size(), docs)
	return nil
}

// verifyBatch keeps id lookups under the SQLite bound-parameter limit.
const verifyBatch = 500

// verifyIndex checks that the persisted index loads and that every entry resolves to a stored
// record. It takes no lock and writes nothing.
func verifyIndex(ctx context.Context, w io.Writer, cfg *config.Config) error {
	idx, err := vector.Load(cfg.Storage.IndexPath, cfg.Embedding.Dimensions)
	if err != nil {
		return fmt.Errorf("index check failed: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	ids, _ := idx.Snapshot()
	unique := retrieval.Dedupe(ids)
	found := 0
	for start := 0; start < len(unique); start += verifyBatch {
		end := min(start+verifyBatch, len(unique))
		recs, err := store.FindByIDs(ctx, unique[start:end])
		if err != nil {
			return fmt.Errorf("failed to resolve index entries: %w", err)
		}
		found += len(recs)
	}

	fmt.Fprintf(w, "Index %s: %d entries, %d dimensions\n", cfg.Storage.IndexPath, idx.Size(), idx.Dimensions())
	fmt.Fprintf(w, "Store: %d records\n", count)
	var problems []string
	if missing := len(unique) - found; missing > 0 {
		problems = append(problems, fmt.Sprintf("%d index entries have no stored record", missing))
	}
	if dupes := len(ids) - len(unique); dupes > 0 {
		problems = append(problems, fmt.Sprintf("%d duplicate index entries", dupes))
	}
	if int64(len(unique)) != count {
		problems = append(problems, fmt.Sprintf("index covers %d of %d records", len(unique), count))
	}
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(w, "  -", p)
		}
		return fmt.Errorf("index out of sync with store; run feedbackd reindex")
	}
	fmt.Fprintln(w, "Index OK")
	return nil
}
