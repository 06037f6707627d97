package store

import (
	"context"

	"github.com/joescharf/upstream/internal/models"
)

// CommitListFilter specifies filters for listing commits.
type CommitListFilter struct {
	RepositoryID string
	Status       models.Status // "pending" matches commits with no status row
	Priority     models.Priority
	Category     models.Category
	Limit        int
}

// CommitWithTriage bundles a commit with its triage result and status for
// work-list queries. Triage and Status may be nil.
type CommitWithTriage struct {
	Commit *models.Commit
	Triage *models.TriageResult
	Status *models.CommitStatus
}

// Store defines the persistence interface for upstream.
type Store interface {
	// Repositories
	CreateRepository(ctx context.Context, r *models.Repository) error
	GetRepository(ctx context.Context, id string) (*models.Repository, error)
	GetRepositoryByName(ctx context.Context, name string) (*models.Repository, error)
	GetRepositoryByPath(ctx context.Context, path string) (*models.Repository, error)
	ListRepositories(ctx context.Context) ([]*models.Repository, error)
	UpdateRepository(ctx context.Context, r *models.Repository) error
	DeleteRepository(ctx context.Context, id string) error

	// Commits
	UpsertCommit(ctx context.Context, c *models.Commit) error
	GetCommit(ctx context.Context, repositoryID, hash string) (*models.Commit, error)
	ListCommits(ctx context.Context, filter CommitListFilter) ([]*CommitWithTriage, error)

	// Triage results (one per commit, overwrite on re-triage)
	PutTriageResult(ctx context.Context, tr *models.TriageResult) error
	GetTriageResult(ctx context.Context, commitID string) (*models.TriageResult, error)

	// Commit status (one mutable row per commit)
	PutCommitStatus(ctx context.Context, cs *models.CommitStatus) error
	GetCommitStatus(ctx context.Context, commitID string) (*models.CommitStatus, error)
	BulkUpdateStatus(ctx context.Context, commitIDs []string, status models.Status, reviewer string) (int64, error)

	// Adaptation patterns (append-only)
	AppendPattern(ctx context.Context, p *models.AdaptationPattern) error
	ListPatterns(ctx context.Context) ([]*models.AdaptationPattern, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
