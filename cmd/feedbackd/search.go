package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/cli"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/keyword"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/storage"
)

func newSearchCmd(g *globalOptions) *cobra.Command {
	var (
		q         models.SearchQuery
		output    string
		serverURL string
		token     string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Keyword search over stored feedback",
		Long: `Keyword search over stored feedback. Without --server the local keyword index is
opened directly, which is not possible while the server is running.`,
		Example: `  feedbackd search "water supply" --district Pune
  feedbackd search --fuzzy "electrcity" --output json
  feedbackd search potholes --server http://localhost:8000 --token $FEEDBACK_API_TOKEN`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Query = buildSearchQuery(args)
			if err := q.Validate(); err != nil {
				return err
			}
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var resp *models.SearchResponse
			if serverURL != "" {
				resp, err = newAPIClient(serverURL, token).search(ctx, &q)
			} else {
				resp, err = searchLocal(ctx, g, &q)
			}
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), resp, format)
		},
	}
	cmd.Flags().StringVar(&q.DistrictName, "district", "", "only feedback for this district")
	cmd.Flags().StringVar(&q.ServiceType, "service", "", "only feedback for this service type")
	cmd.Flags().BoolVar(&q.Fuzzy, "fuzzy", false, "tolerate typos in query terms")
	cmd.Flags().IntVar(&q.Limit, "limit", 10, "number of results")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "number of results to skip")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	addServerFlags(cmd, &serverURL, &token)
	return cmd
}

// addServerFlags registers the flags that route a command to a running server.
func addServerFlags(cmd *cobra.Command, serverURL, token *string) {
	cmd.Flags().StringVar(serverURL, "server", "", "query a running server at this URL instead of local files")
	cmd.Flags().StringVar(token, "token", os.Getenv("FEEDBACK_API_TOKEN"), "bearer token for --server (default $FEEDBACK_API_TOKEN)")
}

// buildSearchQuery joins positional arguments so unquoted multi-word queries work.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func searchLocal(ctx context.Context, g *globalOptions, q *models.SearchQuery) (*models.SearchResponse, error) {
	cfg, _, err := g.load(false)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	idx, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("%w (is the server running? use --server)", err)
	}
	defer idx.Close()
	return keyword.Lookup(ctx, idx, store, q)
}
