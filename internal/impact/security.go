package impact

import (
	"os"
	"path/filepath"

	"github.com/joescharf/upstream/internal/models"
)

// SecurityFinding is one detected security concern.
type SecurityFinding struct {
	Category    string   `json:"category"` // injection, authentication, cryptography, data-exposure, hardcoded-secret
	File        string   `json:"file"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// SecurityResult aggregates the security scan for one commit.
type SecurityResult struct {
	Findings    []SecurityFinding `json:"findings"`
	OverallRisk Severity          `json:"overallRisk"`
	Err         string            `json:"error,omitempty"`
}

// Several minor findings with nothing serious still warrant attention.
const minorFindingsEscalation = 3

// AssessSecurityImpact scans changed files for the four fixed security
// categories plus hardcoded secrets (always critical). Overall risk is
// the max severity observed; more than minorFindingsEscalation low/medium
// findings with no high/critical ones escalate to medium.
func (a *Analyzer) AssessSecurityImpact(commit *models.Commit, root string) *SecurityResult {
	result := &SecurityResult{OverallRisk: SeverityNone}

	for _, f := range commit.FilesChanged {
		data, err := os.ReadFile(filepath.Join(root, f))
		if err != nil {
			continue
		}
		content := string(data)

		for _, rule := range a.rules.Security {
			if rule.Pattern.MatchString(content) {
				result.Findings = append(result.Findings, SecurityFinding{
					Category:    rule.Category,
					File:        f,
					Severity:    rule.Severity,
					Description: rule.Description,
				})
			}
		}
		for _, rule := range a.rules.Secrets {
			if rule.Pattern.MatchString(content) {
				result.Findings = append(result.Findings, SecurityFinding{
					Category:    rule.Category,
					File:        f,
					Severity:    SeverityCritical,
					Description: rule.Description,
				})
			}
		}
	}

	minor := 0
	for _, finding := range result.Findings {
		result.OverallRisk = result.OverallRisk.Max(finding.Severity)
		if finding.Severity == SeverityLow || finding.Severity == SeverityMedium {
			minor++
		}
	}
	if !result.OverallRisk.AtLeast(SeverityHigh) && minor > minorFindingsEscalation {
		result.OverallRisk = result.OverallRisk.Max(SeverityMedium)
	}
	return result
}
