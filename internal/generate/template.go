package generate

import (
	"context"
	"fmt"
	"strings"
)

// TemplateGenerator produces deterministic canned text without a model. It is the default for
// development and tests.
type TemplateGenerator struct{}

// NewTemplateGenerator returns an offline generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// GenerateResponse acknowledges the feedback and reports how many similar reports exist.
func (g *TemplateGenerator) GenerateResponse(ctx context.Context, feedback string, similar []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", wrap(err)
	}
	msg := fmt.Sprintf("Thank you for your feedback: %q. It has been recorded and forwarded to the responsible department.", excerpt(feedback, 80))
	if n := len(similar); n > 0 {
		msg += fmt.Sprintf(" We have received %d similar report%s, which will be reviewed together.", n, plural(n))
	}
	return msg, nil
}

// GenerateSummary lists the feedback count and the first few items.
func (g *TemplateGenerator) GenerateSummary(ctx context.Context, feedbacks []string, similar []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", wrap(err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d feedback item%s received", len(feedbacks), plural(len(feedbacks)))
	if n := len(similar); n > 0 {
		fmt.Fprintf(&sb, ", %d related item%s found", n, plural(n))
	}
	sb.WriteString(".")
	for i, f := range feedbacks {
		if i == 3 {
			fmt.Fprintf(&sb, "\n... and %d more", len(feedbacks)-3)
			break
		}
		fmt.Fprintf(&sb, "\n- %s", excerpt(f, 120))
	}
	return sb.String(), nil
}

func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
