package plan

import (
	"github.com/joescharf/upstream/internal/conflict"
	"github.com/joescharf/upstream/internal/impact"
	"github.com/joescharf/upstream/internal/models"
)

// Phase is one stage of a migration plan.
type Phase struct {
	Name           string   `json:"name"`
	Tasks          []string `json:"tasks"`
	EstimatedHours int      `json:"estimatedHours"`
}

// Risk is one identified plan-level risk.
type Risk struct {
	Level       string `json:"level"` // low, medium, high, critical
	Description string `json:"description"`
}

// Plan is the composed migration plan for integrating one upstream commit.
type Plan struct {
	CommitHash    string        `json:"commitHash"`
	Phases        []Phase       `json:"phases"`
	Prerequisites []string      `json:"prerequisites"`
	Rollback      []string      `json:"rollback"`
	Risks         []Risk        `json:"risks"`
	TotalHours    int           `json:"totalHours"`
	EffortBucket  models.Effort `json:"effortBucket"`
	RiskLevel     string        `json:"riskLevel"` // low, medium, high
}

// Inputs collects the analyses a plan is composed from. Any field may be
// nil; the planner only reads what is present.
type Inputs struct {
	Triage      *models.TriageResult
	Dependency  *impact.DependencyImpact
	Breaking    *impact.BreakingResult
	Security    *impact.SecurityResult
	Performance *impact.PerformanceResult
	Conflicts   *conflict.Analysis
}

// Baseline phase hours and the integration escalation brackets.
var (
	integrationBrackets = []int{2, 4, 8, 16}

	baselinePreparation = 1
	baselineTesting     = 2
	baselineDeployment  = 1
)

// Effort bucket thresholds over total plan hours.
const (
	hoursSmall  = 8
	hoursMedium = 16
	hoursLarge  = 32
)

// Additive plan-risk weights and thresholds.
const (
	riskBreakingHigh       = 2
	riskBreakingCritical   = 3
	riskSecurity           = 1
	riskSecurityCritical   = 3
	riskVeryHighComplexity = 2

	riskScoreHigh   = 5
	riskScoreMedium = 3
)

// CreateMigrationPlan composes the four-phase plan from the analyses. It
// is a pure rules-to-plan transform: no new detection happens here.
func CreateMigrationPlan(commit *models.Commit, in Inputs) *Plan {
	p := &Plan{
		CommitHash: commit.Hash,
		Rollback: []string{
			"revert the integration commit",
			"restore the previous branch state",
			"re-run the regression suite",
		},
	}

	prep := Phase{
		Name:           "preparation",
		Tasks:          []string{"review upstream commit and triage notes", "create integration branch"},
		EstimatedHours: baselinePreparation,
	}
	integration := Phase{
		Name:  "integration",
		Tasks: []string{"cherry-pick or merge the upstream commit"},
	}
	testing := Phase{
		Name:           "testing",
		Tasks:          []string{"run unit tests", "run integration tests"},
		EstimatedHours: baselineTesting,
	}
	deployment := Phase{
		Name:           "deployment",
		Tasks:          []string{"merge to fork branch", "tag and release"},
		EstimatedHours: baselineDeployment,
	}

	bracket := 0
	score := 0

	if in.Dependency != nil && in.Dependency.Complexity != impact.ComplexityMinimal {
		prep.Tasks = append(prep.Tasks,
			"review dependent files for ripple effects",
			"walk the critical-path files with their owners")
		prep.EstimatedHours++
		if in.Dependency.Complexity == impact.ComplexityVeryHigh {
			score += riskVeryHighComplexity
		}
	}

	if in.Conflicts != nil && in.Conflicts.HasConflicts {
		integration.Tasks = append(integration.Tasks,
			"resolve merge conflicts per suggested strategies",
			"verify resolved files compile")
		bracket++
		score += len(in.Conflicts.Conflicts)
		p.Risks = append(p.Risks, Risk{
			Level:       "medium",
			Description: "merge conflicts require manual resolution",
		})
	}

	if in.Breaking != nil && len(in.Breaking.Findings) > 0 {
		integration.Tasks = append(integration.Tasks,
			"adapt call sites to the changed API surface",
			"update local overrides affected by the break")
		bracket++
		switch {
		case in.Breaking.OverallSeverity == impact.SeverityCritical:
			score += riskBreakingCritical
		case in.Breaking.OverallSeverity.AtLeast(impact.SeverityHigh):
			score += riskBreakingHigh
		}
		p.Risks = append(p.Risks, Risk{
			Level:       string(in.Breaking.OverallSeverity),
			Description: "breaking changes detected upstream",
		})
	}

	if in.Security != nil && len(in.Security.Findings) > 0 {
		testing.Tasks = append(testing.Tasks, "run security test suite", "re-scan for exposed secrets")
		testing.EstimatedHours++
		if in.Security.OverallRisk == impact.SeverityCritical {
			score += riskSecurityCritical
		} else {
			score += riskSecurity
		}
	}

	if in.Performance != nil && in.Performance.RequiresPerformanceTest {
		testing.Tasks = append(testing.Tasks, "benchmark hot paths before and after")
		testing.EstimatedHours++
	}

	if in.Breaking != nil && in.Breaking.MigrationRequired {
		deployment.Tasks = append([]string{"apply database migration"}, deployment.Tasks...)
		deployment.EstimatedHours++
		p.Prerequisites = append(p.Prerequisites, "backup completed")
		p.Risks = append(p.Risks, Risk{
			Level:       "critical",
			Description: "schema or API migration must complete before rollout",
		})
	}

	if bracket >= len(integrationBrackets) {
		bracket = len(integrationBrackets) - 1
	}
	integration.EstimatedHours = integrationBrackets[bracket]

	p.Phases = []Phase{prep, integration, testing, deployment}
	for _, phase := range p.Phases {
		p.TotalHours += phase.EstimatedHours
	}
	p.EffortBucket = effortBucket(p.TotalHours)
	p.RiskLevel = riskLevel(score)
	return p
}

func effortBucket(hours int) models.Effort {
	switch {
	case hours <= hoursSmall:
		return models.EffortSmall
	case hours <= hoursMedium:
		return models.EffortMedium
	case hours <= hoursLarge:
		return models.EffortLarge
	default:
		return models.EffortXL
	}
}

func riskLevel(score int) string {
	switch {
	case score >= riskScoreHigh:
		return "high"
	case score >= riskScoreMedium:
		return "medium"
	default:
		return "low"
	}
}
