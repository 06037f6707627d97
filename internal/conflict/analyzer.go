package conflict

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/joescharf/upstream/internal/models"
)

// Type classifies what a conflict block is fighting over.
type Type string

const (
	TypeImport     Type = "import"
	TypeCode       Type = "code"
	TypeDependency Type = "dependency"
	TypeConfig     Type = "config"
	TypeUnknown    Type = "unknown"
)

// Conflict is one three-way-merge marker block extracted from a file.
type Conflict struct {
	File     string   `json:"file"`
	Type     Type     `json:"type"`
	Head     []string `json:"head"`     // our side
	Incoming []string `json:"incoming"` // upstream side
	Line     int      `json:"line"`     // 1-based line of the opening marker
}

// Resolution is a suggested handling for one conflict.
type Resolution struct {
	File         string   `json:"file"`
	Type         Type     `json:"type"`
	Strategy     string   `json:"strategy"` // merge-imports, merge-versions, signature-review, manual-review, pattern
	Merged       []string `json:"merged,omitempty"`
	Confidence   float64  `json:"confidence"`
	ManualReview bool     `json:"manualReview"`
	Description  string   `json:"description"`
}

// Analysis is the full conflict report for one commit.
type Analysis struct {
	HasConflicts   bool         `json:"hasConflicts"`
	Conflicts      []Conflict   `json:"conflicts"`
	Resolutions    []Resolution `json:"resolutions"`
	Recommendation string       `json:"recommendation"` // automated, semi-automated, manual
	EstimatedTime  string       `json:"estimatedResolutionTime"`
	Err            string       `json:"error,omitempty"`
}

// Recommendation thresholds over the fraction of auto-resolvable conflicts.
const (
	autoConfidenceThreshold = 0.7
	automatedFraction       = 0.8
	semiAutomatedFraction   = 0.5
)

// Analyzer detects merge conflicts and suggests resolutions, consulting
// the learned adaptation patterns loaded once at construction.
type Analyzer struct {
	patterns []*models.AdaptationPattern
}

// NewAnalyzer loads all adaptation patterns from the store. A nil store
// yields an analyzer with no pattern matching.
func NewAnalyzer(ctx context.Context, ps PatternStore) (*Analyzer, error) {
	a := &Analyzer{}
	if ps != nil {
		patterns, err := ps.ListPatterns(ctx)
		if err != nil {
			return nil, err
		}
		a.patterns = patterns
	}
	return a, nil
}

// AnalyzeConflicts scans the commit's changed files in the working tree
// for merge markers, classifies each block, and attaches resolution
// suggestions. Unreadable files are skipped.
func (a *Analyzer) AnalyzeConflicts(commit *models.Commit, root string) *Analysis {
	analysis := &Analysis{Recommendation: "automated", EstimatedTime: "0 minutes"}

	for _, f := range commit.FilesChanged {
		data, err := os.ReadFile(filepath.Join(root, f))
		if err != nil {
			continue
		}
		for _, c := range extractConflicts(f, string(data)) {
			analysis.Conflicts = append(analysis.Conflicts, c)
		}
	}

	if len(analysis.Conflicts) == 0 {
		return analysis
	}
	analysis.HasConflicts = true

	auto := 0
	for _, c := range analysis.Conflicts {
		res := resolve(c)
		if res.ManualReview {
			// Fall back to a recorded adaptation pattern if one fits.
			if match := a.matchPattern(c); match != nil {
				res = *match
			}
		}
		if res.Confidence > autoConfidenceThreshold && !res.ManualReview {
			auto++
		}
		analysis.Resolutions = append(analysis.Resolutions, res)
	}

	fraction := float64(auto) / float64(len(analysis.Conflicts))
	switch {
	case fraction > automatedFraction:
		analysis.Recommendation = "automated"
	case fraction > semiAutomatedFraction:
		analysis.Recommendation = "semi-automated"
	default:
		analysis.Recommendation = "manual"
	}

	analysis.EstimatedTime = formatMinutes(estimateMinutes(analysis.Conflicts, analysis.Resolutions))
	return analysis
}

// extractConflicts pulls all marker blocks out of one file's content.
func extractConflicts(file, content string) []Conflict {
	var conflicts []Conflict
	lines := strings.Split(content, "\n")

	i := 0
	for i < len(lines) {
		if !strings.HasPrefix(lines[i], "<<<<<<<") {
			i++
			continue
		}
		c := Conflict{File: file, Line: i + 1}
		i++

		for i < len(lines) && !strings.HasPrefix(lines[i], "=======") {
			c.Head = append(c.Head, lines[i])
			i++
		}
		if i >= len(lines) {
			break // unterminated block; not a real conflict
		}
		i++ // skip =======

		closed := false
		for i < len(lines) {
			if strings.HasPrefix(lines[i], ">>>>>>>") {
				closed = true
				i++
				break
			}
			c.Incoming = append(c.Incoming, lines[i])
			i++
		}
		if !closed {
			break
		}

		c.Type = classify(file, c)
		conflicts = append(conflicts, c)
	}
	return conflicts
}

// classify types a block by simple substring tests on its content, with
// the file kind as a tiebreaker for manifests and config files.
func classify(file string, c Conflict) Type {
	body := strings.Join(append(append([]string{}, c.Head...), c.Incoming...), "\n")

	base := strings.ToLower(filepath.Base(file))
	switch {
	case base == "package.json" || base == "go.mod" || base == "cargo.toml" || base == "requirements.txt":
		return TypeDependency
	case strings.Contains(body, "\"dependencies\"") || strings.Contains(body, "\"devDependencies\""):
		return TypeDependency
	case strings.Contains(body, "import ") || strings.Contains(body, "require("):
		return TypeImport
	}

	ext := strings.ToLower(filepath.Ext(file))
	if ext == ".yaml" || ext == ".yml" || ext == ".toml" || ext == ".ini" || ext == ".env" {
		return TypeConfig
	}

	if strings.Contains(body, "function ") || strings.Contains(body, "func ") ||
		strings.Contains(body, "const ") || strings.Contains(body, "let ") ||
		strings.Contains(body, "def ") {
		return TypeCode
	}
	return TypeUnknown
}

// FileType returns the extension-derived file kind used for pattern matching.
func (c Conflict) FileType() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(c.File)), ".")
}
