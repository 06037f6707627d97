package conflict

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/upstream/internal/models"
)

// fakePatternStore serves canned patterns without a database.
type fakePatternStore struct {
	patterns []*models.AdaptationPattern
}

func (f *fakePatternStore) ListPatterns(ctx context.Context) ([]*models.AdaptationPattern, error) {
	return f.patterns, nil
}

func (f *fakePatternStore) AppendPattern(ctx context.Context, p *models.AdaptationPattern) error {
	f.patterns = append(f.patterns, p)
	return nil
}

func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func newAnalyzer(t *testing.T, patterns ...*models.AdaptationPattern) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(context.Background(), &fakePatternStore{patterns: patterns})
	require.NoError(t, err)
	return a
}

const importConflict = `<<<<<<< HEAD
import { a } from './a'
import { b } from './b'
=======
import { a } from './a'
import { c } from './c'
>>>>>>> upstream/main
`

func TestAnalyzeConflicts_MergeImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/mod.js", importConflict)

	a := newAnalyzer(t)
	commit := &models.Commit{FilesChanged: []string{"src/mod.js"}}
	result := a.AnalyzeConflicts(commit, root)

	require.True(t, result.HasConflicts)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, TypeImport, result.Conflicts[0].Type)

	require.Len(t, result.Resolutions, 1)
	res := result.Resolutions[0]
	assert.Equal(t, "merge-imports", res.Strategy)
	assert.Equal(t, 0.9, res.Confidence)
	assert.False(t, res.ManualReview)
	assert.Equal(t, []string{
		"import { a } from './a'",
		"import { b } from './b'",
		"import { c } from './c'",
	}, res.Merged)

	assert.Equal(t, "automated", result.Recommendation)
	assert.Equal(t, "0 minutes", result.EstimatedTime)
}

func TestAnalyzeConflicts_TwoImportBlocks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", importConflict+"\nconst x = 1\n"+importConflict)

	a := newAnalyzer(t)
	result := a.AnalyzeConflicts(&models.Commit{FilesChanged: []string{"a.js"}}, root)

	require.Len(t, result.Conflicts, 2)
	for _, res := range result.Resolutions {
		assert.Equal(t, "merge-imports", res.Strategy)
		assert.Equal(t, 0.9, res.Confidence)
		assert.False(t, res.ManualReview)
	}
}

func TestAnalyzeConflicts_DependencyVersions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `<<<<<<< HEAD
  "left-pad": "^1.2.0",
  "lodash": "4.17.20",
=======
  "lodash": "4.17.21",
  "express": "^4.18.0",
>>>>>>> upstream/main
`)

	a := newAnalyzer(t)
	result := a.AnalyzeConflicts(&models.Commit{FilesChanged: []string{"package.json"}}, root)

	require.Len(t, result.Resolutions, 1)
	res := result.Resolutions[0]
	assert.Equal(t, TypeDependency, result.Conflicts[0].Type)
	assert.Equal(t, "merge-versions", res.Strategy)
	assert.Equal(t, 0.8, res.Confidence)
	assert.Contains(t, res.Merged, `"lodash": "4.17.21",`)
	assert.Contains(t, res.Merged, `"left-pad": "^1.2.0",`)
	assert.Contains(t, res.Merged, `"express": "^4.18.0",`)
}

func TestAnalyzeConflicts_SignatureChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "svc.js", `<<<<<<< HEAD
function fetchUser(id) {
=======
function fetchUser(id, options) {
>>>>>>> upstream/main
`)

	a := newAnalyzer(t)
	result := a.AnalyzeConflicts(&models.Commit{FilesChanged: []string{"svc.js"}}, root)

	require.Len(t, result.Resolutions, 1)
	res := result.Resolutions[0]
	assert.Equal(t, "signature-review", res.Strategy)
	assert.Equal(t, 0.7, res.Confidence)
	assert.True(t, res.ManualReview)
	assert.Contains(t, res.Description, "fetchUser")
	assert.Equal(t, "manual", result.Recommendation)
	assert.Equal(t, "30 minutes", result.EstimatedTime)
}

func TestAnalyzeConflicts_PatternMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.ini", `<<<<<<< HEAD
timeout = 30
=======
timeout = 60
>>>>>>> upstream/main
`)

	pattern := &models.AdaptationPattern{
		CommitHash:    "abcdef1234567",
		Type:          models.PatternTypeConfig,
		TargetPattern: "timeout = 60",
		FileType:      "ini",
		Success:       true,
	}
	a := newAnalyzer(t, pattern)
	result := a.AnalyzeConflicts(&models.Commit{FilesChanged: []string{"app.ini"}}, root)

	require.Len(t, result.Resolutions, 1)
	res := result.Resolutions[0]
	assert.Equal(t, "pattern", res.Strategy)
	assert.Equal(t, 0.8, res.Confidence)
	assert.Contains(t, res.Description, "abcdef1")
}

func TestAnalyzeConflicts_PatternUnsuccessfulLowerConfidence(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.ini", `<<<<<<< HEAD
a = 1
=======
a = 2
>>>>>>> upstream/main
`)

	pattern := &models.AdaptationPattern{
		CommitHash: "1234567890",
		FileType:   "ini",
		Success:    false,
	}
	a := newAnalyzer(t, pattern)
	result := a.AnalyzeConflicts(&models.Commit{FilesChanged: []string{"app.ini"}}, root)

	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, 0.6, result.Resolutions[0].Confidence)
}

func TestAnalyzeConflicts_NoMarkers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "clean.js", "const x = 1\n")

	a := newAnalyzer(t)
	result := a.AnalyzeConflicts(&models.Commit{FilesChanged: []string{"clean.js"}}, root)

	assert.False(t, result.HasConflicts)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, "0 minutes", result.EstimatedTime)
}

func TestAnalyzeConflicts_SkipsUnreadableFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "present.js", importConflict)

	a := newAnalyzer(t)
	commit := &models.Commit{FilesChanged: []string{"missing.js", "present.js"}}
	result := a.AnalyzeConflicts(commit, root)

	assert.True(t, result.HasConflicts)
	assert.Len(t, result.Conflicts, 1)
}

func TestEstimateMinutes_Monotonic(t *testing.T) {
	base := []Conflict{{File: "a.go", Type: TypeCode}}
	resBase := []Resolution{{Strategy: "manual-review"}}

	more := append(base, Conflict{File: "b.go", Type: TypeCode})
	resMore := append(resBase, Resolution{Strategy: "manual-review"})

	assert.GreaterOrEqual(t, estimateMinutes(more, resMore), estimateMinutes(base, resBase))
	assert.GreaterOrEqual(t, estimateMinutes(base, resBase), 0)
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "45 minutes", formatMinutes(45))
	assert.Equal(t, "1 hours", formatMinutes(60))
	assert.Equal(t, "2 hours", formatMinutes(61))
	assert.Equal(t, "0 minutes", formatMinutes(0))
}

func TestExtractConflicts_UnterminatedBlockIgnored(t *testing.T) {
	conflicts := extractConflicts("x.js", "<<<<<<< HEAD\nfoo\nbar\n")
	assert.Empty(t, conflicts)
}
