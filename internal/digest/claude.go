package digest

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// Use a schema to constrain the output
var (
	outputSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"overview": map[string]any{"type": "string"},
			"picks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index":  map[string]any{"type": "integer"},
						"reason": map[string]any{"type": "string"},
					},
					"required": []string{"index", "reason"},
				},
			},
		},
		"required": []string{"overview", "picks"},
	}
	outputFormat = anthropic.BetaJSONSchemaOutputFormat(outputSchema)
)

// ClaudeSummarizer calls Claude for the digest overview and picks. The
// schema constrains the response shape, but the result is still validated
// like any other untrusted input.
type ClaudeSummarizer struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewClaudeSummarizer(client anthropic.Client) *ClaudeSummarizer {
	return &ClaudeSummarizer{
		client: client,
		model:  anthropic.ModelClaudeHaiku4_5, // fast + cheap for digest work
	}
}

func (c *ClaudeSummarizer) Summarize(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := c.client.Beta.Messages.New(ctx, anthropic.BetaMessageNewParams{
		Model: c.model,
		Betas: []anthropic.AnthropicBeta{
			"structured-outputs-2025-11-13",
		},
		MaxTokens:    1024,
		OutputFormat: outputFormat,
		Messages: []anthropic.BetaMessageParam{
			anthropic.NewBetaUserMessage(anthropic.NewBetaTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error calling claude: %w", err)
	}

	var out strings.Builder
	for _, content := range resp.Content {
		out.WriteString(content.Text)
	}

	return []byte(out.String()), nil
}
