package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/upstream/internal/models"
)

func TestIdentifyBreakingChanges_ExplicitKeyword(t *testing.T) {
	a := NewAnalyzer()
	commit := &models.Commit{Message: "feat!: BREAKING change to the export API"}

	result := a.IdentifyBreakingChanges(commit, t.TempDir())
	assert.NotEmpty(t, result.Findings)
	assert.Equal(t, "explicit", result.Findings[0].Type)
	assert.True(t, result.OverallSeverity.AtLeast(SeverityHigh))
}

func TestIdentifyBreakingChanges_SchemaChange(t *testing.T) {
	root := writeTree(t, map[string]string{
		"migrations/002_add_users.sql": "ALTER TABLE users ADD COLUMN email TEXT;\n",
	})
	a := NewAnalyzer()
	commit := &models.Commit{
		Message:      "add email column",
		FilesChanged: []string{"migrations/002_add_users.sql"},
	}

	result := a.IdentifyBreakingChanges(commit, root)
	assert.Equal(t, SeverityCritical, result.OverallSeverity)
	assert.True(t, result.MigrationRequired)
}

func TestIdentifyBreakingChanges_UnreadableFileStillMatchesPath(t *testing.T) {
	a := NewAnalyzer()
	commit := &models.Commit{
		Message:      "tweak migration",
		FilesChanged: []string{"migrations/001_init.sql"},
	}

	// Root contains no such file; the path-level migration rule still fires.
	result := a.IdentifyBreakingChanges(commit, t.TempDir())
	assert.True(t, result.MigrationRequired)
	assert.True(t, result.OverallSeverity.AtLeast(SeverityHigh))
}

func TestIdentifyBreakingChanges_Clean(t *testing.T) {
	root := writeTree(t, map[string]string{
		"notes.txt": "just some notes\n",
	})
	a := NewAnalyzer()
	commit := &models.Commit{Message: "update notes", FilesChanged: []string{"notes.txt"}}

	result := a.IdentifyBreakingChanges(commit, root)
	assert.Empty(t, result.Findings)
	assert.Equal(t, SeverityNone, result.OverallSeverity)
	assert.False(t, result.MigrationRequired)
}

func TestAssessSecurityImpact_HardcodedSecret(t *testing.T) {
	root := writeTree(t, map[string]string{
		"config.js": `const password = "supersecret123"` + "\n",
	})
	a := NewAnalyzer()
	commit := &models.Commit{FilesChanged: []string{"config.js"}}

	result := a.AssessSecurityImpact(commit, root)
	assert.Equal(t, SeverityCritical, result.OverallRisk)

	found := false
	for _, f := range result.Findings {
		if f.Category == "hardcoded-secret" {
			found = true
		}
	}
	assert.True(t, found, "should flag the hardcoded password")
}

func TestAssessSecurityImpact_MinorFindingsEscalate(t *testing.T) {
	files := map[string]string{
		"a.js": "session.validate()\n",
		"b.js": "jwt.sign(payload)\n",
		"c.js": "oauth.redirect()\n",
		"d.js": "bcrypt.hash(pw)\n",
	}
	root := writeTree(t, files)
	a := NewAnalyzer()
	commit := &models.Commit{FilesChanged: []string{"a.js", "b.js", "c.js", "d.js"}}

	result := a.AssessSecurityImpact(commit, root)
	// Four medium findings, nothing high: escalates to medium overall.
	assert.Equal(t, SeverityMedium, result.OverallRisk)
}

func TestAssessSecurityImpact_SkipsUnreadable(t *testing.T) {
	a := NewAnalyzer()
	commit := &models.Commit{FilesChanged: []string{"gone.js"}}

	result := a.AssessSecurityImpact(commit, t.TempDir())
	assert.Empty(t, result.Findings)
	assert.Equal(t, SeverityNone, result.OverallRisk)
}

func TestPredictPerformanceImpact_LargeCommit(t *testing.T) {
	a := NewAnalyzer()
	commit := &models.Commit{Insertions: 400, Deletions: 200}

	result := a.PredictPerformanceImpact(commit, t.TempDir())
	assert.Equal(t, 3, result.ComplexityIncrease)
	assert.True(t, result.RequiresPerformanceTest)
	assert.Equal(t, "negative", result.Verdict)
}

func TestPredictPerformanceImpact_HighImpactFinding(t *testing.T) {
	root := writeTree(t, map[string]string{
		"repo.js": "const rows = db.query('SELECT * FROM users')\n",
	})
	a := NewAnalyzer()
	commit := &models.Commit{FilesChanged: []string{"repo.js"}, Insertions: 10}

	result := a.PredictPerformanceImpact(commit, root)
	assert.True(t, result.RequiresPerformanceTest)
	assert.Equal(t, "negative", result.Verdict)
	assert.Zero(t, result.ComplexityIncrease)
}

func TestPredictPerformanceImpact_Neutral(t *testing.T) {
	root := writeTree(t, map[string]string{
		"small.js": "const x = 1\n",
	})
	a := NewAnalyzer()
	commit := &models.Commit{FilesChanged: []string{"small.js"}, Insertions: 5}

	result := a.PredictPerformanceImpact(commit, root)
	assert.Equal(t, "neutral", result.Verdict)
	assert.False(t, result.RequiresPerformanceTest)
	assert.Zero(t, result.ComplexityIncrease)
}

func TestSeverity_MaxAndAtLeast(t *testing.T) {
	assert.Equal(t, SeverityCritical, SeverityLow.Max(SeverityCritical))
	assert.Equal(t, SeverityHigh, SeverityHigh.Max(SeverityMedium))
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
}
