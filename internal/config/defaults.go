package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 2 * time.Minute
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "data/feedback.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "data/feedback.idx"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "data/keyword.bleve"
	}
	if cfg.Storage.LedgerPath == "" {
		cfg.Storage.LedgerPath = "data/import-ledger.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" && cfg.Embedding.Provider == "onnx" {
		cfg.Embedding.ModelPath = "data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.TokenizerPath == "" && cfg.Embedding.Provider == "onnx" {
		cfg.Embedding.TokenizerPath = "data/models/tokenizer.json"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Retrieval.SubmitTopK == 0 {
		cfg.Retrieval.SubmitTopK = 3
	}
	if cfg.Retrieval.SummaryTopK == 0 {
		cfg.Retrieval.SummaryTopK = 2
	}
	if cfg.Generator.Provider == "" && cfg.Generator.APIKey != "" {
		cfg.Generator.Provider = "gemini"
	}
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = 60 * time.Second
	}
	if cfg.Import.Debounce == 0 {
		cfg.Import.Debounce = 400 * time.Millisecond
	}
}
