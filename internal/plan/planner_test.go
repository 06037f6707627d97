package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/upstream/internal/conflict"
	"github.com/joescharf/upstream/internal/impact"
	"github.com/joescharf/upstream/internal/models"
)

func TestCreateMigrationPlan_Baseline(t *testing.T) {
	commit := &models.Commit{Hash: "abc1234"}
	p := CreateMigrationPlan(commit, Inputs{})

	require.Len(t, p.Phases, 4)
	assert.Equal(t, "preparation", p.Phases[0].Name)
	assert.Equal(t, "integration", p.Phases[1].Name)
	assert.Equal(t, "testing", p.Phases[2].Name)
	assert.Equal(t, "deployment", p.Phases[3].Name)

	// 1 + 2 + 2 + 1
	assert.Equal(t, 6, p.TotalHours)
	assert.Equal(t, models.EffortSmall, p.EffortBucket)
	assert.Equal(t, "low", p.RiskLevel)
	assert.Empty(t, p.Risks)
	assert.Empty(t, p.Prerequisites)
	assert.NotEmpty(t, p.Rollback)
}

func TestCreateMigrationPlan_ConflictsEscalateIntegration(t *testing.T) {
	commit := &models.Commit{Hash: "abc1234"}
	p := CreateMigrationPlan(commit, Inputs{
		Conflicts: &conflict.Analysis{
			HasConflicts: true,
			Conflicts:    make([]conflict.Conflict, 2),
		},
	})

	integration := p.Phases[1]
	assert.Equal(t, 4, integration.EstimatedHours)
	assert.Contains(t, integration.Tasks, "resolve merge conflicts per suggested strategies")
	assert.Len(t, p.Risks, 1)
}

func TestCreateMigrationPlan_BreakingAndConflicts(t *testing.T) {
	commit := &models.Commit{Hash: "abc1234"}
	p := CreateMigrationPlan(commit, Inputs{
		Conflicts: &conflict.Analysis{
			HasConflicts: true,
			Conflicts:    make([]conflict.Conflict, 3),
		},
		Breaking: &impact.BreakingResult{
			Findings:        []impact.BreakingFinding{{Type: "api", Severity: impact.SeverityHigh}},
			OverallSeverity: impact.SeverityHigh,
		},
	})

	// Two escalations: 2 -> 4 -> 8
	assert.Equal(t, 8, p.Phases[1].EstimatedHours)
	// 3 conflicts + 2 breaking-high = 5 -> high
	assert.Equal(t, "high", p.RiskLevel)
}

func TestCreateMigrationPlan_MigrationRequired(t *testing.T) {
	commit := &models.Commit{Hash: "abc1234"}
	p := CreateMigrationPlan(commit, Inputs{
		Breaking: &impact.BreakingResult{
			Findings:          []impact.BreakingFinding{{Type: "database", Severity: impact.SeverityCritical}},
			OverallSeverity:   impact.SeverityCritical,
			MigrationRequired: true,
		},
	})

	deployment := p.Phases[3]
	assert.Equal(t, "apply database migration", deployment.Tasks[0])
	assert.Contains(t, p.Prerequisites, "backup completed")

	foundCritical := false
	for _, r := range p.Risks {
		if r.Level == "critical" {
			foundCritical = true
		}
	}
	assert.True(t, foundCritical)
}

func TestCreateMigrationPlan_SecurityAndPerformanceTasks(t *testing.T) {
	commit := &models.Commit{Hash: "abc1234"}
	p := CreateMigrationPlan(commit, Inputs{
		Security: &impact.SecurityResult{
			Findings:    []impact.SecurityFinding{{Category: "authentication", Severity: impact.SeverityMedium}},
			OverallRisk: impact.SeverityMedium,
		},
		Performance: &impact.PerformanceResult{RequiresPerformanceTest: true, Verdict: "negative"},
	})

	testing_ := p.Phases[2]
	assert.Contains(t, testing_.Tasks, "run security test suite")
	assert.Contains(t, testing_.Tasks, "benchmark hot paths before and after")
	assert.Equal(t, 4, testing_.EstimatedHours)
}

func TestCreateMigrationPlan_VeryHighComplexity(t *testing.T) {
	commit := &models.Commit{Hash: "abc1234"}
	p := CreateMigrationPlan(commit, Inputs{
		Dependency: &impact.DependencyImpact{Complexity: impact.ComplexityVeryHigh},
		Security:   &impact.SecurityResult{Findings: []impact.SecurityFinding{{Severity: impact.SeverityLow}}, OverallRisk: impact.SeverityLow},
	})

	// +2 complexity +1 security = 3 -> medium
	assert.Equal(t, "medium", p.RiskLevel)
	assert.Contains(t, p.Phases[0].Tasks, "review dependent files for ripple effects")
}

func TestEffortBucketThresholds(t *testing.T) {
	assert.Equal(t, models.EffortSmall, effortBucket(8))
	assert.Equal(t, models.EffortMedium, effortBucket(9))
	assert.Equal(t, models.EffortMedium, effortBucket(16))
	assert.Equal(t, models.EffortLarge, effortBucket(32))
	assert.Equal(t, models.EffortXL, effortBucket(33))
}
