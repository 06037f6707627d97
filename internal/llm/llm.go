package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/upstream/internal/models"
)

// ReviewGuidance holds the LLM-generated guidance for reviewing one
// upstream commit. The deterministic triage result never depends on it.
type ReviewGuidance struct {
	Summary       string   `json:"summary"`
	ReviewFocus   []string `json:"review_focus"`
	AdaptationTip string   `json:"adaptation_tip"`
	Questions     []string `json:"questions"`
}

// Client wraps the Anthropic API for review-guidance generation.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildPrompt constructs the system and user prompts for guidance generation.
func buildPrompt(commit *models.Commit, triage *models.TriageResult) (system string, user string) {
	system = `You help a fork maintainer review an upstream commit before integrating it. Given the commit metadata and an automated triage verdict, return a JSON object with exactly these fields:

- "summary": 1-2 sentences on what this commit does and why the fork should care
- "review_focus": array of 2-5 short strings naming the specific things the reviewer should check before integrating
- "adaptation_tip": one concrete suggestion for adapting the change to a diverged fork (empty string if none applies)
- "questions": array of 0-3 open questions the reviewer should answer before deciding

Rules:
- Ground everything in the provided metadata; do not invent file contents you were not shown
- Keep the review_focus items actionable ("verify the session token is still validated in internal/auth", not "check security")
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("Commit ")
	sb.WriteString(commit.Hash)
	sb.WriteString(" by ")
	sb.WriteString(commit.Author)
	sb.WriteString("\n\nMessage:\n")
	sb.WriteString(commit.Message)
	sb.WriteString("\n\nFiles changed:\n")
	for _, f := range commit.FilesChanged {
		sb.WriteString("- ")
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nLines: +%d -%d\n", commit.Insertions, commit.Deletions)
	if triage != nil {
		fmt.Fprintf(&sb, "\nTriage verdict: category=%s priority=%s effort=%s conflictRisk=%.2f\n",
			triage.Category, triage.Priority, triage.Effort, triage.ConflictRisk)
		if len(triage.ImpactAreas) > 0 {
			fmt.Fprintf(&sb, "Impact areas: %s\n", strings.Join(triage.ImpactAreas, ", "))
		}
		if triage.Reasoning != "" {
			fmt.Fprintf(&sb, "Triage reasoning: %s\n", triage.Reasoning)
		}
	}
	user = sb.String()
	return
}

// GenerateGuidance sends commit and triage data to the LLM and returns
// structured review guidance.
func (c *Client) GenerateGuidance(ctx context.Context, commit *models.Commit, triage *models.TriageResult) (*ReviewGuidance, error) {
	systemPrompt, userPrompt := buildPrompt(commit, triage)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	text = stripFencing(text)

	var guidance ReviewGuidance
	if err := json.Unmarshal([]byte(text), &guidance); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}

	return &guidance, nil
}

// stripFencing removes markdown code fencing if the model added it anyway.
func stripFencing(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
