package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/auth"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/config"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/embedding"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/generate"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/importer"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/keyword"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/retrieval"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/storage"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
)

// Components holds the long-lived services built from config.
type Components struct {
	Storage      *storage.SQLiteStorage
	Index        *vector.PersistentIndex
	Keyword      *keyword.BleveIndex
	Encoder      *embedding.Encoder
	Orchestrator *retrieval.Orchestrator
}

// Close releases everything in reverse order of creation. Safe on a partly built value.
func (c *Components) Close() {
	if c.Encoder != nil {
		_ = c.Encoder.Close()
	}
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, indexOpts ...vector.PersistentOption) (*Components, error) {
	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	var err error
	c.Storage, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	indexOpts = append([]vector.PersistentOption{vector.WithLogger(logger)}, indexOpts...)
	c.Index, err = vector.OpenPersistent(cfg.Storage.IndexPath, cfg.Embedding.Dimensions, indexOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	if cfg.Storage.BleveIndexPath == "" {
		c.Keyword, err = keyword.NewMemoryBleveIndex()
	} else {
		c.Keyword, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	load, err := embedding.NewLoader(cfg.Embedding.Provider, embedding.ONNXConfig{
		ModelPath:     cfg.Embedding.ModelPath,
		TokenizerPath: cfg.Embedding.TokenizerPath,
		LibraryPath:   cfg.Embedding.LibraryPath,
		Dimensions:    cfg.Embedding.Dimensions,
		MaxTokens:     cfg.Embedding.MaxTokens,
		OutputName:    cfg.Embedding.OutputName,
		Pooling:       cfg.Embedding.Pooling,
	})
	if err != nil {
		return nil, err
	}
	c.Encoder = embedding.NewEncoder(load, cfg.Embedding.Dimensions,
		embedding.WithCacheSize(cfg.Embedding.CacheSize),
		embedding.WithLogger(logger))

	gen, err := generate.New(generate.Config{
		Provider: cfg.Generator.Provider,
		Model:    cfg.Generator.Model,
		BaseURL:  cfg.Generator.BaseURL,
		APIKey:   cfg.Generator.APIKey,
		Timeout:  cfg.Generator.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	c.Orchestrator = retrieval.NewOrchestrator(c.Encoder, c.Index, c.Storage, gen,
		retrieval.WithLogger(logger),
		retrieval.WithKeywordIndex(c.Keyword),
		retrieval.WithTopK(cfg.Retrieval.SubmitTopK, cfg.Retrieval.SummaryTopK))

	logger.Info("components initialized",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("generator_provider", cfg.Generator.Provider),
		zap.Int("index_size", c.Index.Size()))
	ok = true
	return c, nil
}

// newImporter opens the import ledger and builds an importer that submits through c.
// The caller closes the returned ledger.
func newImporter(cfg *config.Config, c *Components, logger *zap.Logger) (*importer.Importer, *importer.Ledger, error) {
	ledger, err := importer.OpenLedger(cfg.Storage.LedgerPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open import ledger: %w", err)
	}
	imp := importer.New(c.Orchestrator, ledger,
		importer.WithLogger(logger),
		importer.WithFilter(importerFilter(cfg)))
	return imp, ledger, nil
}

func importerFilter(cfg *config.Config) *importer.Filter {
	return importer.NewFilter(cfg.Import.Include, cfg.Import.Exclude)
}

// newVerifier returns nil when auth is disabled, which lets every request through.
func newVerifier(cfg *config.Config) auth.Verifier {
	if cfg.Auth.Disabled {
		return nil
	}
	return auth.NewStaticVerifier(cfg.Auth.Tokens)
}

func dataPaths(cfg *config.Config) storage.DataPaths {
	return storage.DataPaths{
		Database:     cfg.Storage.DatabasePath,
		VectorIndex:  cfg.Storage.IndexPath,
		KeywordIndex: cfg.Storage.BleveIndexPath,
	}
}
