// -----------------------------------------------------------------------
// Matcher resolves a transcript snippet's product mention to a known
// Product when no GTIN is present in the snippet text, and enriches an
// aggregated product with brand/classification fields (spec.md §4.4
// "Video-processing persist", "Aggregation persist" scope=full).
// -----------------------------------------------------------------------

package llmmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
)

// Candidate is one product the matcher is allowed to resolve a mention to.
type Candidate struct {
	ID    string
	Name  string
	Brand string
}

// MatchResult is the matcher's verdict for one snippet.
type MatchResult struct {
	ProductID  string  `json:"product_id"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// Enrichment is the matcher's verdict for an aggregation "scope=full" pass.
type Enrichment struct {
	Brand          string `json:"brand"`
	Classification string `json:"classification"`
}

// Matcher wraps a Claude client for the two narrow classification tasks
// the pipeline needs; it is never used for open-ended chat.
type Matcher struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    arbor.ILogger
}

type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

func New(cfg Config, logger arbor.ILogger) *Matcher {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Matcher{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: int64(maxTokens),
		timeout:   timeout,
		logger:    logger,
	}
}

// MatchMention asks the model which candidate (if any) a transcript
// snippet is referring to, along with sentiment and a confidence score.
func (m *Matcher) MatchMention(ctx context.Context, snippetText string, candidates []Candidate) (*MatchResult, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	prompt := buildMatchPrompt(snippetText, candidates)
	raw, err := m.complete(timeoutCtx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llmmatch: match mention: %w", err)
	}

	var result MatchResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return nil, fmt.Errorf("llmmatch: parse match response: %w", err)
	}
	return &result, nil
}

// Enrich asks the model to infer brand and ingredient classification for
// a product from its raw name and ingredients text.
func (m *Matcher) Enrich(ctx context.Context, name, ingredientsRaw string) (*Enrichment, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	prompt := buildEnrichPrompt(name, ingredientsRaw)
	raw, err := m.complete(timeoutCtx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llmmatch: enrich: %w", err)
	}

	var enrichment Enrichment
	if err := json.Unmarshal([]byte(extractJSON(raw)), &enrichment); err != nil {
		return nil, fmt.Errorf("llmmatch: parse enrich response: %w", err)
	}
	return &enrichment, nil
}

func (m *Matcher) complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: "Respond with a single JSON object only, no prose."},
		},
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("empty response")
	}
	return out.String(), nil
}

func buildMatchPrompt(snippetText string, candidates []Candidate) string {
	var b strings.Builder
	b.WriteString("Transcript snippet:\n")
	b.WriteString(snippetText)
	b.WriteString("\n\nCandidate products (choose the best match, or \"\" if none apply):\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%s name=%q brand=%q\n", c.ID, c.Name, c.Brand)
	}
	b.WriteString("\nRespond with JSON: {\"product_id\": string, \"sentiment\": \"positive\"|\"neutral\"|\"negative\", \"confidence\": number between 0 and 1}")
	return b.String()
}

func buildEnrichPrompt(name, ingredientsRaw string) string {
	return fmt.Sprintf(
		"Product name: %s\nIngredients: %s\n\nRespond with JSON: {\"brand\": string, \"classification\": string}",
		name, ingredientsRaw,
	)
}

// extractJSON trims any leading/trailing prose a model adds despite the
// system instruction, keeping only the outermost {...} span.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
