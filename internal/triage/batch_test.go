package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/upstream/internal/models"
)

func tr(priority models.Priority, effort models.Effort) *models.TriageResult {
	return &models.TriageResult{Priority: priority, Effort: effort}
}

func TestPartitionBuckets(t *testing.T) {
	results := []*models.TriageResult{
		tr(models.PriorityCritical, models.EffortMedium),
		tr(models.PriorityHigh, models.EffortSmall),
		tr(models.PriorityHigh, models.EffortSmall),
		tr(models.PriorityHigh, models.EffortLarge),
		tr(models.PriorityHigh, models.EffortSmall),
		tr(models.PriorityMedium, models.EffortSmall),
		tr(models.PriorityLow, models.EffortTrivial),
	}

	b := PartitionBuckets(results)

	// 1 critical + top 3 high
	assert.Len(t, b.Immediate, 4)
	// 4th high + 1 medium
	assert.Len(t, b.NextSprint, 2)
	assert.Len(t, b.Backlog, 1)

	// 8 + 3 + 3 + 20 + 3 + 3 + 1
	assert.Equal(t, 41, b.TotalPoints)
}

func TestPartitionBuckets_ManyMediums(t *testing.T) {
	var results []*models.TriageResult
	for i := 0; i < 8; i++ {
		results = append(results, tr(models.PriorityMedium, models.EffortSmall))
	}

	b := PartitionBuckets(results)
	assert.Empty(t, b.Immediate)
	assert.Len(t, b.NextSprint, 5)
	assert.Len(t, b.Backlog, 3)
	assert.Equal(t, 24, b.TotalPoints)
}

func TestPartitionBuckets_Empty(t *testing.T) {
	b := PartitionBuckets(nil)
	assert.Empty(t, b.Immediate)
	assert.Empty(t, b.NextSprint)
	assert.Empty(t, b.Backlog)
	assert.Zero(t, b.TotalPoints)
}

func TestClassifyBatch_Independent(t *testing.T) {
	e := newTestEngine()
	commits := []*models.Commit{
		{Hash: "a", Message: "fix: crash on startup", FilesChanged: []string{"main.go"}, Insertions: 4},
		{Hash: "b", Message: "docs: typo", FilesChanged: []string{"README.md"}, Insertions: 1},
	}

	batch := e.ClassifyBatch(commits)
	assert.Len(t, batch, 2)

	// Same as classifying individually: no cross-commit state.
	solo := e.Classify(commits[0])
	assert.Equal(t, solo.Priority, batch[0].Priority)
	assert.Equal(t, solo.Reasoning, batch[0].Reasoning)
}
