package impact

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joescharf/upstream/internal/models"
)

// BreakingFinding is one detected breaking-change candidate.
type BreakingFinding struct {
	Type        string   `json:"type"` // api, database, config, dependencies, explicit
	File        string   `json:"file,omitempty"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// BreakingResult aggregates the breaking-change scan for one commit.
type BreakingResult struct {
	Findings          []BreakingFinding `json:"findings"`
	OverallSeverity   Severity          `json:"overallSeverity"`
	MigrationRequired bool              `json:"migrationRequired"`
	Err               string            `json:"error,omitempty"`
}

// IdentifyBreakingChanges scans each changed file's text against the
// category-tagged pattern table, plus the commit message for explicit
// breaking-change keywords. Unreadable files are skipped.
func (a *Analyzer) IdentifyBreakingChanges(commit *models.Commit, root string) *BreakingResult {
	result := &BreakingResult{OverallSeverity: SeverityNone}

	lowerMsg := strings.ToLower(commit.Message)
	for _, kw := range a.rules.BreakingMsg {
		if strings.Contains(lowerMsg, kw) {
			result.Findings = append(result.Findings, BreakingFinding{
				Type:        "explicit",
				Severity:    SeverityHigh,
				Description: "commit message declares a breaking change (" + kw + ")",
			})
			break
		}
	}

	for _, f := range commit.FilesChanged {
		// Path-level rules (e.g. migrations/) match the path itself even
		// when the file cannot be read.
		content := f
		if data, err := os.ReadFile(filepath.Join(root, f)); err == nil {
			content = f + "\n" + string(data)
		}

		for _, rule := range a.rules.Breaking {
			if rule.Pattern.MatchString(content) {
				result.Findings = append(result.Findings, BreakingFinding{
					Type:        rule.Category,
					File:        f,
					Severity:    rule.Severity,
					Description: rule.Description,
				})
			}
		}
	}

	for _, finding := range result.Findings {
		result.OverallSeverity = result.OverallSeverity.Max(finding.Severity)
		if finding.Type == "database" || finding.Type == "api" || finding.Severity == SeverityCritical {
			result.MigrationRequired = true
		}
	}
	return result
}
