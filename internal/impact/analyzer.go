// Package impact estimates the blast radius of an upstream commit with
// shallow, text-level scans: an approximate file-level dependency graph
// plus independent pattern passes for breaking changes, security issues,
// and performance hotspots. No parsing, no execution; unreadable files
// are skipped and partial results are expected.
package impact

// Severity grades a finding. Ordered none < low < medium < high < critical.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Max returns the higher of two severities.
func (s Severity) Max(other Severity) Severity {
	if severityRank[other] > severityRank[s] {
		return other
	}
	return s
}

// AtLeast reports whether s is at or above the given severity.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// Analyzer runs the impact scans. It holds only immutable rule tables and
// is safe to share.
type Analyzer struct {
	rules *scanRules
}

// NewAnalyzer returns an Analyzer with the built-in rule tables.
func NewAnalyzer() *Analyzer {
	return &Analyzer{rules: defaultScanRules()}
}
