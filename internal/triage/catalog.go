package triage

import (
	"regexp"

	"github.com/joescharf/upstream/internal/models"
)

// categoryRule maps a commit-message keyword list to a category with a
// base priority and base confidence. Confidence grows with extra keyword
// hits, capped at maxConfidence.
type categoryRule struct {
	Category       models.Category
	Keywords       []string
	BasePriority   models.Priority
	BaseConfidence float64
}

// Catalog holds the static rule tables the engine classifies against.
// Built once and never mutated, so it is safe to share across callers.
type Catalog struct {
	Categories     []categoryRule
	ImpactAreas    map[string][]*regexp.Regexp
	SecurityFiles  []*regexp.Regexp
	ContestedFiles []*regexp.Regexp
	Efforts        []effortBucket
}

// effortBucket is one rung of the effort ladder: the smallest bucket
// whose ceilings are not exceeded wins.
type effortBucket struct {
	Effort   models.Effort
	MaxFiles int
	MaxLines int
}

// Tunable classification thresholds. Hand-tuned, kept as named constants
// so they can move without touching the algorithm.
const (
	maxConfidence      = 0.9
	confidencePerMatch = 0.1
	defaultConfidence  = 0.3

	riskBase          = 0.1
	riskCoreArea      = 0.3
	riskAPIArea       = 0.2
	riskDatabaseArea  = 0.25
	riskPerFile       = 0.02
	riskPerFileCap    = 0.3
	riskContestedFile = 0.15

	highRiskThreshold = 0.7
)

// DefaultCatalog returns the built-in rule tables.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Categories: []categoryRule{
			{
				Category:       models.CategorySecurity,
				Keywords:       []string{"security", "vulnerability", "cve", "exploit", "xss", "injection", "csrf", "auth bypass", "sanitize", "escape"},
				BasePriority:   models.PriorityCritical,
				BaseConfidence: 0.8,
			},
			{
				Category:       models.CategoryBugfix,
				Keywords:       []string{"fix", "bug", "issue", "error", "crash", "regression", "broken", "fault", "defect", "patch"},
				BasePriority:   models.PriorityHigh,
				BaseConfidence: 0.7,
			},
			{
				Category:       models.CategoryFeature,
				Keywords:       []string{"feat", "add", "new", "implement", "introduce", "support"},
				BasePriority:   models.PriorityMedium,
				BaseConfidence: 0.6,
			},
			{
				Category:       models.CategoryRefactor,
				Keywords:       []string{"refactor", "restructure", "reorganize", "cleanup", "clean up", "simplify", "rework"},
				BasePriority:   models.PriorityMedium,
				BaseConfidence: 0.6,
			},
			{
				Category:       models.CategoryDocs,
				Keywords:       []string{"doc", "docs", "documentation", "readme", "comment", "changelog"},
				BasePriority:   models.PriorityLow,
				BaseConfidence: 0.7,
			},
			{
				Category:       models.CategoryTest,
				Keywords:       []string{"test", "spec", "coverage", "e2e", "unit test"},
				BasePriority:   models.PriorityLow,
				BaseConfidence: 0.7,
			},
			{
				Category:       models.CategoryChore,
				Keywords:       []string{"chore", "bump", "upgrade", "dependency", "deps", "ci", "lint", "format"},
				BasePriority:   models.PriorityLow,
				BaseConfidence: 0.6,
			},
		},
		ImpactAreas: map[string][]*regexp.Regexp{
			"core": {
				regexp.MustCompile(`(?i)(^|/)(core|lib|src/main|internal)(/|$)`),
				regexp.MustCompile(`(?i)(^|/)(index|main|app)\.[a-z]+$`),
			},
			"api": {
				regexp.MustCompile(`(?i)(^|/)(api|routes?|controllers?|handlers?|endpoints?)(/|$)`),
				regexp.MustCompile(`(?i)\.proto$`),
			},
			"ui": {
				regexp.MustCompile(`(?i)(^|/)(ui|components?|views?|pages?|frontend)(/|$)`),
				regexp.MustCompile(`(?i)\.(jsx|tsx|vue|svelte|css|scss)$`),
			},
			"database": {
				regexp.MustCompile(`(?i)(^|/)(db|database|migrations?|models?|schemas?)(/|$)`),
				regexp.MustCompile(`(?i)\.sql$`),
			},
			"auth": {
				regexp.MustCompile(`(?i)(^|/)(auth|login|permissions?|security|session)(/|$)`),
				regexp.MustCompile(`(?i)(auth|login|password|token|session|permission)[^/]*\.[a-z]+$`),
			},
			"config": {
				regexp.MustCompile(`(?i)(^|/)(config|settings|env)(/|$)`),
				regexp.MustCompile(`(?i)(^|/)\.?(env|config|settings)[^/]*\.[a-z]+$`),
				regexp.MustCompile(`(?i)\.(ya?ml|toml|ini)$`),
			},
			"build": {
				regexp.MustCompile(`(?i)(^|/)(build|scripts?|ci|\.github)(/|$)`),
				regexp.MustCompile(`(?i)(^|/)(makefile|dockerfile|package\.json|go\.mod|cargo\.toml|webpack[^/]*|vite[^/]*)$`),
			},
			"test": {
				regexp.MustCompile(`(?i)(^|/)(tests?|__tests__|spec)(/|$)`),
				regexp.MustCompile(`(?i)(_test|\.test|\.spec)\.[a-z]+$`),
			},
			"docs": {
				regexp.MustCompile(`(?i)(^|/)(docs?)(/|$)`),
				regexp.MustCompile(`(?i)\.(md|rst|txt)$`),
			},
		},
		SecurityFiles: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(^|/)(auth|security|permissions?|login|session)s?(/|[^/]*\.[a-z]+$)`),
			regexp.MustCompile(`(?i)(password|token|crypt|acl)[^/]*\.[a-z]+$`),
		},
		ContestedFiles: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(^|/)package\.json$`),
			regexp.MustCompile(`(?i)(^|/)go\.mod$`),
			regexp.MustCompile(`(?i)(^|/)readme\.md$`),
			regexp.MustCompile(`(?i)(^|/)(config|settings)\.[a-z]+$`),
			regexp.MustCompile(`(?i)(^|/)index\.[a-z]+$`),
		},
		Efforts: []effortBucket{
			{Effort: models.EffortTrivial, MaxFiles: 2, MaxLines: 10},
			{Effort: models.EffortSmall, MaxFiles: 5, MaxLines: 50},
			{Effort: models.EffortMedium, MaxFiles: 15, MaxLines: 200},
			{Effort: models.EffortLarge, MaxFiles: 30, MaxLines: 500},
		},
	}
}

// impactAreaOrder fixes the rendering order of impact areas; membership is
// a set, but reports and reasoning strings should be stable.
var impactAreaOrder = []string{"core", "api", "ui", "database", "auth", "config", "build", "test", "docs"}
