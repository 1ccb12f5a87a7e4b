package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/server"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/watcher"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var warmup bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(g, warmup)
		},
	}
	cmd.Flags().BoolVar(&warmup, "warmup", false, "load the embedding model before accepting requests")
	return cmd
}

func runServe(g *globalOptions, warmup bool) error {
	cfg, logger, err := g.load(true)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if warmup {
		start := time.Now()
		if err := components.Encoder.Warmup(ctx); err != nil {
			return fmt.Errorf("embedding model warmup failed: %w", err)
		}
		logger.Info("embedding model ready", zap.Duration("elapsed", time.Since(start)))
	}

	if cfg.Import.InboxDir != "" {
		imp, ledger, err := newImporter(cfg, components, logger)
		if err != nil {
			return err
		}
		defer ledger.Close()
		inbox := cfg.Import.InboxDir
		filter := importerFilter(cfg)
		watchSvc := watcher.NewWatcher(inbox, filter.Match,
			func(path string) {
				if _, err := imp.ImportFile(ctx, path, inbox); err != nil {
					logger.Warn("inbox import failed", zap.String("path", path), zap.Error(err))
				}
			},
			watcher.WithLogger(logger),
			watcher.WithDebounce(cfg.Import.Debounce))
		if err := watchSvc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start inbox watcher: %w", err)
		}
		defer watchSvc.Stop()
		go watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Orchestrator,
		components.Storage,
		components.Index,
		&cfg.Server,
		logger,
		server.WithKeywordIndex(components.Keyword),
		server.WithVerifier(newVerifier(cfg), cfg.Auth.RequireForSummary),
		server.WithDataPaths(dataPaths(cfg)),
	)
	if cfg.Auth.Disabled {
		logger.Warn("bearer token auth is disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigChan:
	}

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown incomplete", zap.Error(err))
	}
	if err := components.Index.Flush(); err != nil {
		logger.Error("vector index flush failed", zap.String("path", components.Index.Path()), zap.Error(err))
	}
	return nil
}
