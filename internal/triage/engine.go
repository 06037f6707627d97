package triage

import (
	"fmt"
	"strings"

	"github.com/joescharf/upstream/internal/models"
)

// Engine classifies upstream commits against an immutable rule catalog.
// Classification is pure: same commit in, same result out.
type Engine struct {
	catalog *Catalog
}

// NewEngine returns an Engine using the given catalog, or the default
// catalog if nil.
func NewEngine(catalog *Catalog) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{catalog: catalog}
}

// Classify produces the triage verdict for one commit. It reads only the
// commit's own fields and never fails: ambiguous input degrades to a
// low-confidence chore/low default instead of an error.
func (e *Engine) Classify(commit *models.Commit) *models.TriageResult {
	category, basePriority, confidence := e.classifyMessage(commit.Message)

	priority := basePriority

	// Changes to auth/security files escalate even when the message
	// doesn't mention security.
	if category != models.CategorySecurity && e.touchesSecurityFiles(commit.FilesChanged) {
		priority = priority.Escalate()
	}

	areas := e.impactAreas(commit.FilesChanged)
	effort := e.estimateEffort(len(commit.FilesChanged), commit.TotalLines())
	risk := e.conflictRisk(commit.FilesChanged, areas)

	if contains(areas, "core") || contains(areas, "auth") {
		priority = priority.Escalate()
	}
	if risk > highRiskThreshold {
		priority = priority.Escalate()
	}
	if effort == models.EffortTrivial && priority != models.PriorityCritical {
		priority = priority.DeEscalate()
	}

	return &models.TriageResult{
		CommitID:     commit.ID,
		Priority:     priority,
		Category:     category,
		ImpactAreas:  areas,
		ConflictRisk: risk,
		Effort:       effort,
		Reasoning:    buildReasoning(category, areas, effort, risk, basePriority, priority),
		Confidence:   confidence,
	}
}

// classifyMessage picks the highest-confidence category for the message.
// Confidence = base + 0.1 per extra keyword hit, capped at 0.9. Defaults
// to chore/low/0.3 when nothing matches.
func (e *Engine) classifyMessage(message string) (models.Category, models.Priority, float64) {
	lower := strings.ToLower(message)

	bestCategory := models.CategoryChore
	bestPriority := models.PriorityLow
	bestConfidence := 0.0

	for _, rule := range e.catalog.Categories {
		matches := 0
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		confidence := rule.BaseConfidence + confidencePerMatch*float64(matches-1)
		if confidence > maxConfidence {
			confidence = maxConfidence
		}
		if confidence > bestConfidence {
			bestCategory = rule.Category
			bestPriority = rule.BasePriority
			bestConfidence = confidence
		}
	}

	if bestConfidence == 0 {
		return models.CategoryChore, models.PriorityLow, defaultConfidence
	}
	return bestCategory, bestPriority, bestConfidence
}

func (e *Engine) touchesSecurityFiles(files []string) bool {
	for _, f := range files {
		for _, re := range e.catalog.SecurityFiles {
			if re.MatchString(f) {
				return true
			}
		}
	}
	return false
}

// impactAreas returns the union of areas matched by any changed file, in
// the catalog's fixed rendering order.
func (e *Engine) impactAreas(files []string) []string {
	matched := map[string]bool{}
	for _, f := range files {
		for area, patterns := range e.catalog.ImpactAreas {
			if matched[area] {
				continue
			}
			for _, re := range patterns {
				if re.MatchString(f) {
					matched[area] = true
					break
				}
			}
		}
	}

	var areas []string
	for _, area := range impactAreaOrder {
		if matched[area] {
			areas = append(areas, area)
		}
	}
	return areas
}

// estimateEffort picks the smallest bucket whose file and line ceilings
// are both respected; anything beyond the ladder is xl.
func (e *Engine) estimateEffort(fileCount, lineCount int) models.Effort {
	for _, bucket := range e.catalog.Efforts {
		if fileCount <= bucket.MaxFiles && lineCount <= bucket.MaxLines {
			return bucket.Effort
		}
	}
	return models.EffortXL
}

// conflictRisk sums the additive risk factors and clamps to [0,1].
func (e *Engine) conflictRisk(files []string, areas []string) float64 {
	risk := riskBase

	if contains(areas, "core") {
		risk += riskCoreArea
	}
	if contains(areas, "api") {
		risk += riskAPIArea
	}
	if contains(areas, "database") {
		risk += riskDatabaseArea
	}

	fileRisk := riskPerFile * float64(len(files))
	if fileRisk > riskPerFileCap {
		fileRisk = riskPerFileCap
	}
	risk += fileRisk

	for _, f := range files {
		if e.isContested(f) {
			risk += riskContestedFile
			break
		}
	}

	if risk > 1.0 {
		risk = 1.0
	}
	return risk
}

func (e *Engine) isContested(file string) bool {
	for _, re := range e.catalog.ContestedFiles {
		if re.MatchString(file) {
			return true
		}
	}
	return false
}

// buildReasoning renders the human-readable decision trace.
func buildReasoning(category models.Category, areas []string, effort models.Effort, risk float64, basePriority, finalPriority models.Priority) string {
	parts := []string{fmt.Sprintf("categorized as %s based on commit message", category)}
	if len(areas) > 0 {
		parts = append(parts, "impact areas: "+strings.Join(areas, ", "))
	}
	parts = append(parts, fmt.Sprintf("estimated effort: %s", effort))
	if risk > 0.5 {
		parts = append(parts, fmt.Sprintf("conflict risk: %.0f%%", risk*100))
	}
	if finalPriority != basePriority {
		parts = append(parts, fmt.Sprintf("priority adjusted from %s to %s", basePriority, finalPriority))
	}
	return strings.Join(parts, "; ")
}

func contains(items []string, target string) bool {
	for _, s := range items {
		if s == target {
			return true
		}
	}
	return false
}
