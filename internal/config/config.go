// Package config provides configuration loading and structs for the feedback service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Generator GeneratorConfig `yaml:"generator"`
	Auth      AuthConfig      `yaml:"auth"`
	Import    ImportConfig    `yaml:"import"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig holds paths for the feedback database and indices.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	IndexPath      string `yaml:"index_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
	LedgerPath     string `yaml:"ledger_path"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider is "onnx" (the sentence-transformer model) or "hash" (offline, for development).
	Provider  string `yaml:"provider"`
	ModelPath string `yaml:"model_path"`
	// TokenizerPath is the model's Hugging Face tokenizer.json (vocabulary and normalizer).
	TokenizerPath string `yaml:"tokenizer_path"`
	LibraryPath   string `yaml:"library_path"`
	Dimensions    int    `yaml:"dimensions"`
	MaxTokens     int    `yaml:"max_tokens"`
	CacheSize     int    `yaml:"cache_size"`
	OutputName    string `yaml:"output_name"`
	Pooling       string `yaml:"pooling"`
}

// RetrievalConfig holds neighbor counts for the two flows.
type RetrievalConfig struct {
	SubmitTopK  int `yaml:"submit_top_k"`
	SummaryTopK int `yaml:"summary_top_k"`
}

// GeneratorConfig selects the generative text service.
type GeneratorConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// AuthConfig holds API token settings.
type AuthConfig struct {
	Tokens            []string `yaml:"tokens"`
	Disabled          bool     `yaml:"disabled"`
	RequireForSummary bool     `yaml:"require_for_summary"`
}

// ImportConfig holds inbox watching and file filter settings.
type ImportConfig struct {
	InboxDir string        `yaml:"inbox_dir"`
	Include  []string      `yaml:"include"`
	Exclude  []string      `yaml:"exclude"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads the config file at path, applies defaults and environment overrides, and expands
// paths. An empty path skips the file; relative paths then resolve against the working directory.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}
	if abs, err := filepath.Abs(configDir); err == nil {
		configDir = abs
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.LedgerPath = expandPath(cfg.Storage.LedgerPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.TokenizerPath = expandPath(cfg.Embedding.TokenizerPath, configDir)
	cfg.Embedding.LibraryPath = expandPath(cfg.Embedding.LibraryPath, configDir)
	cfg.Import.InboxDir = expandPath(cfg.Import.InboxDir, configDir)

	return &cfg, nil
}

// applyEnv overrides file settings from the environment.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("FEEDBACK_DB_PATH"); ok && v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v, ok := lookup("FEEDBACK_INDEX_PATH"); ok && v != "" {
		cfg.Storage.IndexPath = v
	}
	if v, ok := lookup("GENERATOR_PROVIDER"); ok && v != "" {
		cfg.Generator.Provider = v
	}
	if v, ok := lookup("GEMINI_API_KEY"); ok && v != "" {
		cfg.Generator.APIKey = v
	}
	if v, ok := lookup("FEEDBACK_API_TOKENS"); ok && v != "" {
		cfg.Auth.Tokens = nil
		for _, tok := range strings.Split(v, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				cfg.Auth.Tokens = append(cfg.Auth.Tokens, tok)
			}
		}
	}
	return nil
}

// Validate reports settings that would make the service unusable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Embedding.Dimensions < 1 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	if !c.Auth.Disabled && len(c.Auth.Tokens) == 0 {
		return fmt.Errorf("auth.tokens is empty; set FEEDBACK_API_TOKENS or auth.disabled: true")
	}
	return nil
}

// expandPath converts a path to absolute. "~/" paths are relative to the home directory; other
// relative paths are relative to configDir. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(configDir, path)
}
