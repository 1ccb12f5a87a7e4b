package generate

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var promptTemplates embed.FS

// Prompts renders the prompt text sent to a model.
type Prompts struct {
	response *template.Template
	summary  *template.Template
}

type responseData struct {
	Feedback string
	Similar  []string
}

type summaryData struct {
	Feedbacks []string
	Similar   []string
}

// LoadPrompts parses the embedded prompt templates.
func LoadPrompts() (*Prompts, error) {
	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}
	response, err := template.New("response.tmpl").Funcs(funcs).ParseFS(promptTemplates, "templates/response.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse response prompt: %w", err)
	}
	summary, err := template.New("summary.tmpl").Funcs(funcs).ParseFS(promptTemplates, "templates/summary.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary prompt: %w", err)
	}
	return &Prompts{response: response, summary: summary}, nil
}

// Response renders the prompt for answering one piece of feedback.
func (p *Prompts) Response(feedback string, similar []string) (string, error) {
	var buf bytes.Buffer
	if err := p.response.Execute(&buf, responseData{Feedback: feedback, Similar: similar}); err != nil {
		return "", fmt.Errorf("failed to render response prompt: %w", err)
	}
	return buf.String(), nil
}

// Summary renders the prompt for summarizing a feedback group.
func (p *Prompts) Summary(feedbacks, similar []string) (string, error) {
	var buf bytes.Buffer
	if err := p.summary.Execute(&buf, summaryData{Feedbacks: feedbacks, Similar: similar}); err != nil {
		return "", fmt.Errorf("failed to render summary prompt: %w", err)
	}
	return buf.String(), nil
}
