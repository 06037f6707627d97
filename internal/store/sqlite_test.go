package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/upstream/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestRepo(t *testing.T, s *SQLiteStore) *models.Repository {
	t.Helper()
	r := &models.Repository{
		Name:           "my-fork",
		Path:           "/tmp/my-fork",
		UpstreamRemote: "upstream",
		UpstreamBranch: "main",
		ForkBranch:     "fork-main",
	}
	require.NoError(t, s.CreateRepository(context.Background(), r))
	return r
}

func newTestCommit(t *testing.T, s *SQLiteStore, repoID, hash string) *models.Commit {
	t.Helper()
	c := &models.Commit{
		RepositoryID: repoID,
		Hash:         hash,
		Author:       "Jane Doe",
		AuthorEmail:  "jane@example.com",
		CommitDate:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Message:      "fix: handle nil session",
		FilesChanged: []string{"src/session.go"},
		Insertions:   10,
		Deletions:    2,
	}
	require.NoError(t, s.UpsertCommit(context.Background(), c))
	return c
}

func TestRepositoryCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newTestRepo(t, s)
	assert.NotEmpty(t, r.ID)

	got, err := s.GetRepository(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "my-fork", got.Name)
	assert.Nil(t, got.LastSyncAt)

	byName, err := s.GetRepositoryByName(ctx, "my-fork")
	require.NoError(t, err)
	assert.Equal(t, r.ID, byName.ID)

	byPath, err := s.GetRepositoryByPath(ctx, "/tmp/my-fork")
	require.NoError(t, err)
	assert.Equal(t, r.ID, byPath.ID)

	now := time.Now().UTC()
	r.Description = "tracking upstream"
	r.LastSyncAt = &now
	require.NoError(t, s.UpdateRepository(ctx, r))

	got, err = s.GetRepository(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "tracking upstream", got.Description)
	require.NotNil(t, got.LastSyncAt)

	repos, err := s.ListRepositories(ctx)
	require.NoError(t, err)
	assert.Len(t, repos, 1)

	require.NoError(t, s.DeleteRepository(ctx, r.ID))
	_, err = s.GetRepository(ctx, r.ID)
	assert.ErrorContains(t, err, "not found")
}

func TestRepositoryNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetRepositoryByName(ctx, "nope")
	assert.ErrorContains(t, err, "repository not found")

	err = s.DeleteRepository(ctx, "nope")
	assert.ErrorContains(t, err, "repository not found")

	err = s.UpdateRepository(ctx, &models.Repository{ID: "nope"})
	assert.ErrorContains(t, err, "repository not found")
}

func TestUpsertCommit_StableID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := newTestRepo(t, s)

	c := newTestCommit(t, s, r.ID, "a1b2c3d4e5f6")
	firstID := c.ID

	// Re-import with refreshed metadata keeps the row id.
	again := &models.Commit{
		RepositoryID: r.ID,
		Hash:         "a1b2c3d4e5f6",
		Author:       "Jane Doe",
		AuthorEmail:  "jane@example.com",
		CommitDate:   c.CommitDate,
		Message:      "fix: handle nil session (amended)",
		FilesChanged: []string{"src/session.go", "src/session_test.go"},
		Insertions:   15,
		Deletions:    2,
	}
	require.NoError(t, s.UpsertCommit(ctx, again))
	assert.Equal(t, firstID, again.ID)

	got, err := s.GetCommit(ctx, r.ID, "a1b2c3d4e5f6")
	require.NoError(t, err)
	assert.Equal(t, "fix: handle nil session (amended)", got.Message)
	assert.Equal(t, []string{"src/session.go", "src/session_test.go"}, got.FilesChanged)
}

func TestGetCommit_AbbreviatedHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := newTestRepo(t, s)
	c := newTestCommit(t, s, r.ID, "a1b2c3d4e5f6a7b8")

	got, err := s.GetCommit(ctx, r.ID, "a1b2c3d")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = s.GetCommit(ctx, r.ID, "ffffff")
	assert.ErrorContains(t, err, "commit not found")
}

func TestTriageResult_Overwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := newTestRepo(t, s)
	c := newTestCommit(t, s, r.ID, "a1b2c3d4")

	tr := &models.TriageResult{
		CommitID:     c.ID,
		Priority:     models.PriorityHigh,
		Category:     models.CategoryBugfix,
		ImpactAreas:  []string{"core", "api"},
		ConflictRisk: 0.4,
		Effort:       models.EffortSmall,
		Reasoning:    "categorized as bugfix based on commit message",
		Confidence:   0.7,
	}
	require.NoError(t, s.PutTriageResult(ctx, tr))

	got, err := s.GetTriageResult(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"core", "api"}, got.ImpactAreas)

	// Re-triage replaces in place; still exactly one result.
	tr2 := &models.TriageResult{
		CommitID:   c.ID,
		Priority:   models.PriorityCritical,
		Category:   models.CategorySecurity,
		Effort:     models.EffortMedium,
		Confidence: 0.9,
	}
	require.NoError(t, s.PutTriageResult(ctx, tr2))

	got, err = s.GetTriageResult(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityCritical, got.Priority)
	assert.Equal(t, models.CategorySecurity, got.Category)
}

func TestCommitStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := newTestRepo(t, s)
	c := newTestCommit(t, s, r.ID, "a1b2c3d4")

	_, err := s.GetCommitStatus(ctx, c.ID)
	assert.ErrorContains(t, err, "no status")

	cs := &models.CommitStatus{
		CommitID:  c.ID,
		Status:    models.StatusReviewed,
		Reasoning: "looks safe to integrate",
		Reviewer:  "jane",
	}
	require.NoError(t, s.PutCommitStatus(ctx, cs))

	got, err := s.GetCommitStatus(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, got.Status)
	assert.False(t, got.ReviewedAt.IsZero())

	// Any status can be overwritten by a later decision.
	cs.Status = models.StatusIntegrated
	cs.ActualEffort = models.EffortSmall
	require.NoError(t, s.PutCommitStatus(ctx, cs))

	got, err = s.GetCommitStatus(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIntegrated, got.Status)
	assert.Equal(t, models.EffortSmall, got.ActualEffort)
}

func TestPutCommitStatus_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	err := s.PutCommitStatus(context.Background(), &models.CommitStatus{
		CommitID: "x",
		Status:   "approved",
	})
	assert.ErrorContains(t, err, "invalid status")

	// Pending is implicit and never written.
	err = s.PutCommitStatus(context.Background(), &models.CommitStatus{
		CommitID: "x",
		Status:   models.StatusPending,
	})
	assert.ErrorContains(t, err, "invalid status")
}

func TestBulkUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := newTestRepo(t, s)

	c1 := newTestCommit(t, s, r.ID, "aaaa1111")
	c2 := newTestCommit(t, s, r.ID, "bbbb2222")

	n, err := s.BulkUpdateStatus(ctx, []string{c1.ID, c2.ID}, models.StatusSkipped, "jane")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := s.GetCommitStatus(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, got.Status)
	assert.Equal(t, "jane", got.Reviewer)

	n, err = s.BulkUpdateStatus(ctx, nil, models.StatusSkipped, "jane")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListCommits_FiltersAndOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := newTestRepo(t, s)

	low := newTestCommit(t, s, r.ID, "aaaa1111")
	critical := newTestCommit(t, s, r.ID, "bbbb2222")
	untriaged := newTestCommit(t, s, r.ID, "cccc3333")

	require.NoError(t, s.PutTriageResult(ctx, &models.TriageResult{
		CommitID: low.ID, Priority: models.PriorityLow, Category: models.CategoryDocs, Effort: models.EffortTrivial,
	}))
	require.NoError(t, s.PutTriageResult(ctx, &models.TriageResult{
		CommitID: critical.ID, Priority: models.PriorityCritical, Category: models.CategorySecurity, Effort: models.EffortSmall,
	}))
	require.NoError(t, s.PutCommitStatus(ctx, &models.CommitStatus{
		CommitID: low.ID, Status: models.StatusIntegrated,
	}))

	all, err := s.ListCommits(ctx, CommitListFilter{RepositoryID: r.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Priority ordering: critical first, untriaged last.
	assert.Equal(t, critical.ID, all[0].Commit.ID)
	assert.Equal(t, untriaged.ID, all[2].Commit.ID)
	require.NotNil(t, all[0].Triage)
	assert.Nil(t, all[2].Triage)

	// Pending means no status row.
	pending, err := s.ListCommits(ctx, CommitListFilter{RepositoryID: r.ID, Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, cwt := range pending {
		assert.Nil(t, cwt.Status)
	}

	integrated, err := s.ListCommits(ctx, CommitListFilter{RepositoryID: r.ID, Status: models.StatusIntegrated})
	require.NoError(t, err)
	require.Len(t, integrated, 1)
	assert.Equal(t, low.ID, integrated[0].Commit.ID)

	bySec, err := s.ListCommits(ctx, CommitListFilter{Category: models.CategorySecurity})
	require.NoError(t, err)
	require.Len(t, bySec, 1)
	assert.Equal(t, critical.ID, bySec[0].Commit.ID)

	limited, err := s.ListCommits(ctx, CommitListFilter{RepositoryID: r.ID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPatterns_AppendOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1 := &models.AdaptationPattern{
		CommitHash:    "aaaa1111",
		Type:          models.PatternTypeImport,
		SourcePattern: `import { x } from "lib"`,
		TargetPattern: `import { x } from "./vendor/lib"`,
		FileType:      "js",
		Success:       true,
		Effort:        models.EffortTrivial,
	}
	require.NoError(t, s.AppendPattern(ctx, p1))
	require.NoError(t, s.AppendPattern(ctx, &models.AdaptationPattern{
		CommitHash: "bbbb2222",
		Type:       models.PatternTypeConfig,
		Success:    false,
	}))

	patterns, err := s.ListPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, models.PatternTypeImport, patterns[0].Type)
	assert.True(t, patterns[0].Success)
	assert.False(t, patterns[1].Success)
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}
