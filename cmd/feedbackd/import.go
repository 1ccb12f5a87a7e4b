package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/importer"
)

func newImportCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <paths...>",
		Short: "Import feedback from spreadsheets, CSV/JSONL files and letters",
		Long: `Import feedback files. Tables (.xlsx, .csv, .jsonl) need district_name, service_type
and user_feedback columns. Letters (.pdf, .docx, .txt, .md) are read as one feedback each,
with district and service taken from the <district>/<service>/<file> layout under the
directory given on the command line.

Files already imported are skipped, so an interrupted import can simply be run again.
Stop the server first, or drop files into its inbox directory instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(false)
			if err != nil {
				return err
			}
			components, err := initializeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()
			imp, ledger, err := newImporter(cfg, components, logger)
			if err != nil {
				return err
			}
			defer ledger.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runImport(ctx, imp, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runImport(ctx context.Context, imp *importer.Importer, paths []string, out, progressOut io.Writer) error {
	targets, err := imp.Collect(paths)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(out, "No importable files found")
		return nil
	}
	bar := newProgressBar(progressOut, len(targets), "[cyan]Importing[reset]")
	reports, importErr := imp.ImportAll(ctx, targets, func(*importer.FileReport) { _ = bar.Add(1) })
	_ = bar.Finish()

	var imported, rejected, skipped int
	for _, r := range reports {
		imported += r.Imported
		rejected += r.Rejected
		if r.Skipped {
			skipped++
		}
	}
	fmt.Fprintf(out, "Imported %d feedback records from %d files (%d rejected, %d files already imported)\n",
		imported, len(reports)-skipped, rejected, skipped)
	return importErr
}
