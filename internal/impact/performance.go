package impact

import (
	"os"
	"path/filepath"

	"github.com/joescharf/upstream/internal/models"
)

// PerformanceFinding is one detected performance-sensitive construct.
type PerformanceFinding struct {
	Category    string   `json:"category"` // loops, database-queries, memory, async
	File        string   `json:"file"`
	Impact      Severity `json:"impact"`
	Description string   `json:"description"`
}

// PerformanceResult aggregates the performance scan for one commit.
type PerformanceResult struct {
	Findings                []PerformanceFinding `json:"findings"`
	ComplexityIncrease      int                  `json:"complexityIncrease"` // 0-3, from changed-line thresholds
	Verdict                 string               `json:"verdict"`            // neutral or negative
	RequiresPerformanceTest bool                 `json:"requiresPerformanceTest"`
	Err                     string               `json:"error,omitempty"`
}

// Changed-line thresholds driving the complexity-increase score.
const (
	complexityLines3 = 500
	complexityLines2 = 200
	complexityLines1 = 50
)

// PredictPerformanceImpact scans changed files for performance-sensitive
// constructs and derives a complexity-increase score purely from the
// commit's total changed-line count. A single high-impact finding or a
// complexity score of 3 turns the verdict negative and requires a
// performance test.
func (a *Analyzer) PredictPerformanceImpact(commit *models.Commit, root string) *PerformanceResult {
	result := &PerformanceResult{Verdict: "neutral"}

	for _, f := range commit.FilesChanged {
		data, err := os.ReadFile(filepath.Join(root, f))
		if err != nil {
			continue
		}
		content := string(data)

		for _, rule := range a.rules.Performance {
			if rule.Pattern.MatchString(content) {
				result.Findings = append(result.Findings, PerformanceFinding{
					Category:    rule.Category,
					File:        f,
					Impact:      rule.Severity,
					Description: rule.Description,
				})
			}
		}
	}

	lines := commit.TotalLines()
	switch {
	case lines > complexityLines3:
		result.ComplexityIncrease = 3
	case lines > complexityLines2:
		result.ComplexityIncrease = 2
	case lines > complexityLines1:
		result.ComplexityIncrease = 1
	}

	for _, finding := range result.Findings {
		if finding.Impact == SeverityHigh {
			result.RequiresPerformanceTest = true
		}
	}
	if result.ComplexityIncrease == 3 {
		result.RequiresPerformanceTest = true
	}
	if result.RequiresPerformanceTest {
		result.Verdict = "negative"
	}
	return result
}
