package conflict

import (
	"context"
	"fmt"
	"strings"

	"github.com/joescharf/upstream/internal/models"
)

// PatternStore is the persistence surface the analyzer needs for learned
// adaptation patterns. store.SQLiteStore satisfies it.
type PatternStore interface {
	ListPatterns(ctx context.Context) ([]*models.AdaptationPattern, error)
	AppendPattern(ctx context.Context, p *models.AdaptationPattern) error
}

// Pattern-match suggestion confidence depends on whether the recorded
// integration was judged successful.
const (
	confidencePatternSuccess = 0.8
	confidencePatternUnknown = 0.6
)

// matchPattern searches the loaded adaptation patterns for one whose
// pattern type or recorded file type matches the conflict. First match
// wins; patterns are stored oldest-first.
func (a *Analyzer) matchPattern(c Conflict) *Resolution {
	for _, p := range a.patterns {
		if !patternApplies(p, c) {
			continue
		}
		confidence := confidencePatternUnknown
		if p.Success {
			confidence = confidencePatternSuccess
		}
		return &Resolution{
			File: c.File, Type: c.Type,
			Strategy:     "pattern",
			Merged:       strings.Split(p.TargetPattern, "\n"),
			Confidence:   confidence,
			ManualReview: true,
			Description:  fmt.Sprintf("prior adaptation from commit %s may apply", shortHash(p.CommitHash)),
		}
	}
	return nil
}

func patternApplies(p *models.AdaptationPattern, c Conflict) bool {
	if string(p.Type) == string(c.Type) {
		return true
	}
	if p.FileType != "" && p.FileType == c.FileType() {
		return true
	}
	return false
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
