package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient generates text with the Gemini generateContent REST endpoint.
type GeminiClient struct {
	baseURL string
	model   string
	apiKey  string
	prompts *Prompts
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGeminiClient creates a Gemini client. apiKey is required.
func NewGeminiClient(baseURL, model, apiKey string, prompts *Prompts, client *http.Client) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not set (GEMINI_API_KEY)")
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &GeminiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		prompts: prompts,
		client:  client,
	}, nil
}

// GenerateResponse answers one piece of feedback.
func (c *GeminiClient) GenerateResponse(ctx context.Context, feedback string, similar []string) (string, error) {
	prompt, err := c.prompts.Response(feedback, similar)
	if err != nil {
		return "", wrap(err)
	}
	return c.generate(ctx, prompt)
}

// GenerateSummary summarizes a feedback group.
func (c *GeminiClient) GenerateSummary(ctx context.Context, feedbacks []string, similar []string) (string, error) {
	prompt, err := c.prompts.Summary(feedbacks, similar)
	if err != nil {
		return "", wrap(err)
	}
	return c.generate(ctx, prompt)
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", wrap(fmt.Errorf("failed to marshal request: %w", err))
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", wrap(fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", wrap(fmt.Errorf("failed to read response: %w", err))
	}
	var out geminiResponse
	decodeErr := json.Unmarshal(data, &out)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if decodeErr == nil && out.Error != nil {
			msg = out.Error.Message
		}
		return "", wrap(fmt.Errorf("gemini request failed with status %d: %s", resp.StatusCode, msg))
	}
	if decodeErr != nil {
		return "", wrap(fmt.Errorf("failed to decode response: %w", decodeErr))
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", wrap(fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason))
	}
	if len(out.Candidates) == 0 {
		return "", wrap(fmt.Errorf("gemini returned no candidates"))
	}
	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", wrap(fmt.Errorf("gemini returned empty text (finish reason %s)", out.Candidates[0].FinishReason))
	}
	return text, nil
}
