// Package generate produces feedback responses and summaries with a generative text service.
package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrGeneration is the single failure kind for generative calls. Callers treat it as an
// external failure; nothing is retried here.
var ErrGeneration = errors.New("text generation failed")

// Provider names accepted in configuration.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderTemplate = "template"
)

// Generator writes replies to feedback and summaries of feedback groups.
type Generator interface {
	// GenerateResponse answers one piece of feedback, using similar past feedback as context.
	GenerateResponse(ctx context.Context, feedback string, similar []string) (string, error)
	// GenerateSummary summarizes the feedback of one district and service type.
	GenerateSummary(ctx context.Context, feedbacks []string, similar []string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// New returns the Generator for cfg.Provider.
func New(cfg Config, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	prompts, err := LoadPrompts()
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiClient(cfg.BaseURL, cfg.Model, cfg.APIKey, prompts, client)
	case ProviderOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.Model, prompts, client)
	case ProviderTemplate, "":
		logger.Warn("using offline template generator; responses are not model generated")
		return NewTemplateGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown generator provider: %s (supported: gemini, ollama, template)", cfg.Provider)
	}
}

func wrap(err error) error {
	if err == nil || errors.Is(err, ErrGeneration) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrGeneration, err)
}
