package models

import "time"

// Priority is the urgency assigned to an upstream commit.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// priorityLadder orders priorities for escalation. Escalating past
// critical or de-escalating past low saturates.
var priorityLadder = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Escalate moves the priority one step up the ladder, saturating at critical.
func (p Priority) Escalate() Priority {
	for i, lvl := range priorityLadder {
		if lvl == p && i < len(priorityLadder)-1 {
			return priorityLadder[i+1]
		}
	}
	return p
}

// DeEscalate moves the priority one step down the ladder, saturating at low.
func (p Priority) DeEscalate() Priority {
	for i, lvl := range priorityLadder {
		if lvl == p && i > 0 {
			return priorityLadder[i-1]
		}
	}
	return p
}

// Rank returns the position on the ladder (low=0 .. critical=3), used for
// sorting work lists.
func (p Priority) Rank() int {
	for i, lvl := range priorityLadder {
		if lvl == p {
			return i
		}
	}
	return -1
}

// Category is the kind of change a commit makes.
type Category string

const (
	CategorySecurity Category = "security"
	CategoryBugfix   Category = "bugfix"
	CategoryFeature  Category = "feature"
	CategoryRefactor Category = "refactor"
	CategoryDocs     Category = "docs"
	CategoryTest     Category = "test"
	CategoryChore    Category = "chore"
)

// Effort is the estimated integration size of a commit.
type Effort string

const (
	EffortTrivial Effort = "trivial"
	EffortSmall   Effort = "small"
	EffortMedium  Effort = "medium"
	EffortLarge   Effort = "large"
	EffortXL      Effort = "xl"
)

// EffortPoints maps effort buckets to planning points.
var EffortPoints = map[Effort]int{
	EffortTrivial: 1,
	EffortSmall:   3,
	EffortMedium:  8,
	EffortLarge:   20,
	EffortXL:      40,
}

// TriageResult is the classifier's verdict for exactly one commit.
// Re-running triage replaces the previous result.
type TriageResult struct {
	ID           string
	CommitID     string
	Priority     Priority
	Category     Category
	ImpactAreas  []string // drawn from the fixed area vocabulary
	ConflictRisk float64  // [0,1]
	Effort       Effort
	Reasoning    string
	Confidence   float64 // [0,1]
	CreatedAt    time.Time
}
