package triage

import (
	"sort"

	"github.com/joescharf/upstream/internal/models"
)

// Buckets is the deterministic sprint partition of a batch of triaged
// commits: all criticals plus the top highs go to Immediate, the rest of
// the highs plus the top mediums to NextSprint, everything else to Backlog.
type Buckets struct {
	Immediate   []*models.TriageResult
	NextSprint  []*models.TriageResult
	Backlog     []*models.TriageResult
	TotalPoints int
}

// Bucket partition sizes.
const (
	immediateHighLimit    = 3
	nextSprintMediumLimit = 5
)

// ClassifyBatch triages each commit independently (classification is
// stateless, so order does not matter).
func (e *Engine) ClassifyBatch(commits []*models.Commit) []*models.TriageResult {
	results := make([]*models.TriageResult, len(commits))
	for i, c := range commits {
		results[i] = e.Classify(c)
	}
	return results
}

// PartitionBuckets splits triage results into sprint buckets and totals
// the effort points. Results within a priority keep their input order, so
// "top N" means the first N as given (callers pass commits newest-first).
func PartitionBuckets(results []*models.TriageResult) *Buckets {
	b := &Buckets{}

	var highs, mediums, rest []*models.TriageResult
	for _, r := range results {
		b.TotalPoints += models.EffortPoints[r.Effort]
		switch r.Priority {
		case models.PriorityCritical:
			b.Immediate = append(b.Immediate, r)
		case models.PriorityHigh:
			highs = append(highs, r)
		case models.PriorityMedium:
			mediums = append(mediums, r)
		default:
			rest = append(rest, r)
		}
	}

	if len(highs) > immediateHighLimit {
		b.Immediate = append(b.Immediate, highs[:immediateHighLimit]...)
		b.NextSprint = append(b.NextSprint, highs[immediateHighLimit:]...)
	} else {
		b.Immediate = append(b.Immediate, highs...)
	}

	if len(mediums) > nextSprintMediumLimit {
		b.NextSprint = append(b.NextSprint, mediums[:nextSprintMediumLimit]...)
		b.Backlog = append(b.Backlog, mediums[nextSprintMediumLimit:]...)
	} else {
		b.NextSprint = append(b.NextSprint, mediums...)
	}

	b.Backlog = append(b.Backlog, rest...)

	// Low before chore-default ordering inside the backlog is not
	// meaningful; sort by priority rank for stable rendering.
	sort.SliceStable(b.Backlog, func(i, j int) bool {
		return b.Backlog[i].Priority.Rank() > b.Backlog[j].Priority.Rank()
	})

	return b
}
