package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient generates text with a local Ollama server.
type OllamaClient struct {
	baseURL string
	model   string
	prompts *Prompts
	client  *http.Client
}

// OllamaRequest represents a request to the Ollama API
type OllamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// OllamaResponse represents a response from the Ollama API
type OllamaResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Response  string    `json:"response"`
	Done      bool      `json:"done"`
}

// NewOllamaClient creates a new Ollama client. The server is not contacted until Ping or the
// first generation.
func NewOllamaClient(baseURL, model string, prompts *Prompts, client *http.Client) (*OllamaClient, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model is not set")
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &OllamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		prompts: prompts,
		client:  client,
	}, nil
}

// GenerateResponse answers one piece of feedback.
func (c *OllamaClient) GenerateResponse(ctx context.Context, feedback string, similar []string) (string, error) {
	prompt, err := c.prompts.Response(feedback, similar)
	if err != nil {
		return "", wrap(err)
	}
	return c.generate(ctx, prompt)
}

// GenerateSummary summarizes a feedback group.
func (c *OllamaClient) GenerateSummary(ctx context.Context, feedbacks []string, similar []string) (string, error) {
	prompt, err := c.prompts.Summary(feedbacks, similar)
	if err != nil {
		return "", wrap(err)
	}
	return c.generate(ctx, prompt)
}

func (c *OllamaClient) generate(ctx context.Context, prompt string) (string, error) {
	requestBody, err := json.Marshal(OllamaRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", wrap(fmt.Errorf("failed to marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(requestBody))
	if err != nil {
		return "", wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", wrap(fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", wrap(fmt.Errorf("ollama request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var response OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", wrap(fmt.Errorf("failed to decode response: %w", err))
	}
	text := strings.TrimSpace(response.Response)
	if text == "" {
		return "", wrap(fmt.Errorf("ollama returned an empty response"))
	}
	return text, nil
}

// Ping checks that the Ollama server is reachable.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Ollama server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama server returned status %d", resp.StatusCode)
	}
	return nil
}
