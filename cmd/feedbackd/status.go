package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/cli"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/config"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/keyword"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/storage"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
)

func newStatusCmd(g *globalOptions) *cobra.Command {
	var output, serverURL, token string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show record, index and disk usage counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			var st *models.Status
			if serverURL != "" {
				st, err = newAPIClient(serverURL, token).status(ctx)
			} else {
				var cfg *config.Config
				cfg, _, err = g.load(false)
				if err == nil {
					st, err = localStatus(ctx, cfg)
				}
			}
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}
			return cli.WriteStatus(cmd.OutOrStdout(), st, format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	addServerFlags(cmd, &serverURL, &token)
	return cmd
}

// localStatus reads counts straight from the data files. The vector index is read without
// taking its lock, so this works while the server is running; the keyword count is left at
// zero when its index is held open elsewhere.
func localStatus(ctx context.Context, cfg *config.Config) (*models.Status, error) {
	idx, err := vector.Load(cfg.Storage.IndexPath, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	count, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	st := &models.Status{
		Records:         count,
		IndexSize:       idx.Size(),
		IndexDimensions: idx.Dimensions(),
	}
	st.IndexInSync = int64(st.IndexSize) == st.Records
	if _, statErr := os.Stat(cfg.Storage.BleveIndexPath); cfg.Storage.BleveIndexPath != "" && statErr == nil {
		if kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath); err == nil {
			if n, err := kw.DocCount(); err == nil {
				st.KeywordDocs = n
			}
			_ = kw.Close()
		}
	}
	if du, err := storage.MeasureDisk(dataPaths(cfg)); err == nil {
		st.Disk = du
	}
	return st, nil
}
