package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/upstream/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	commit := &models.Commit{
		Hash:         "a1b2c3d4",
		Author:       "Jane Doe",
		Message:      "fix: validate session tokens",
		FilesChanged: []string{"src/auth.go"},
		Insertions:   12,
		Deletions:    3,
	}
	triage := &models.TriageResult{
		Category:     models.CategorySecurity,
		Priority:     models.PriorityCritical,
		Effort:       models.EffortSmall,
		ConflictRisk: 0.4,
		ImpactAreas:  []string{"auth"},
		Reasoning:    "categorized as security based on commit message",
	}

	system, user := buildPrompt(commit, triage)

	assert.Contains(t, system, "JSON object")
	assert.Contains(t, user, "a1b2c3d4")
	assert.Contains(t, user, "- src/auth.go")
	assert.Contains(t, user, "+12 -3")
	assert.Contains(t, user, "category=security priority=critical")
	assert.Contains(t, user, "Impact areas: auth")
}

func TestBuildPrompt_NoTriage(t *testing.T) {
	_, user := buildPrompt(&models.Commit{Hash: "abc", Message: "m"}, nil)
	assert.NotContains(t, user, "Triage verdict")
}

func TestStripFencing(t *testing.T) {
	fenced := "```json\n{\"summary\": \"x\"}\n```"
	assert.Equal(t, `{"summary": "x"}`, stripFencing(fenced))

	plain := `{"summary": "x"}`
	assert.Equal(t, plain, stripFencing(plain))

	assert.False(t, strings.Contains(stripFencing("```\n{}\n```"), "`"))
}
