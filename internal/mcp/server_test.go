package mcp

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/upstream/internal/models"
	"github.com/joescharf/upstream/internal/store"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockStore implements store.Store for testing.
type mockStore struct {
	repos    []*models.Repository
	commits  []*models.Commit
	triages  map[string]*models.TriageResult
	statuses map[string]*models.CommitStatus
	patterns []*models.AdaptationPattern

	// Optional error injection.
	listReposErr   error
	listCommitsErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		triages:  map[string]*models.TriageResult{},
		statuses: map[string]*models.CommitStatus{},
	}
}

func (m *mockStore) CreateRepository(_ context.Context, r *models.Repository) error {
	if r.ID == "" {
		r.ID = fmt.Sprintf("repo-%d", len(m.repos)+1)
	}
	m.repos = append(m.repos, r)
	return nil
}
func (m *mockStore) GetRepository(_ context.Context, id string) (*models.Repository, error) {
	for _, r := range m.repos {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("repository not found: %s", id)
}
func (m *mockStore) GetRepositoryByName(_ context.Context, name string) (*models.Repository, error) {
	for _, r := range m.repos {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("repository not found: %s", name)
}
func (m *mockStore) GetRepositoryByPath(_ context.Context, path string) (*models.Repository, error) {
	for _, r := range m.repos {
		if r.Path == path {
			return r, nil
		}
	}
	return nil, fmt.Errorf("repository not found at path: %s", path)
}
func (m *mockStore) ListRepositories(_ context.Context) ([]*models.Repository, error) {
	if m.listReposErr != nil {
		return nil, m.listReposErr
	}
	return m.repos, nil
}
func (m *mockStore) UpdateRepository(_ context.Context, _ *models.Repository) error { return nil }
func (m *mockStore) DeleteRepository(_ context.Context, _ string) error             { return nil }

func (m *mockStore) UpsertCommit(_ context.Context, c *models.Commit) error {
	if c.ID == "" {
		c.ID = fmt.Sprintf("commit-%d", len(m.commits)+1)
	}
	m.commits = append(m.commits, c)
	return nil
}
func (m *mockStore) GetCommit(_ context.Context, repoID, hash string) (*models.Commit, error) {
	for _, c := range m.commits {
		if c.RepositoryID == repoID && strings.HasPrefix(c.Hash, hash) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("commit not found: %s", hash)
}
func (m *mockStore) ListCommits(_ context.Context, filter store.CommitListFilter) ([]*store.CommitWithTriage, error) {
	if m.listCommitsErr != nil {
		return nil, m.listCommitsErr
	}
	var out []*store.CommitWithTriage
	for _, c := range m.commits {
		if filter.RepositoryID != "" && c.RepositoryID != filter.RepositoryID {
			continue
		}
		cwt := &store.CommitWithTriage{
			Commit: c,
			Triage: m.triages[c.ID],
			Status: m.statuses[c.ID],
		}
		if filter.Status == models.StatusPending && cwt.Status != nil {
			continue
		}
		if filter.Status != "" && filter.Status != models.StatusPending &&
			(cwt.Status == nil || cwt.Status.Status != filter.Status) {
			continue
		}
		if filter.Priority != "" && (cwt.Triage == nil || cwt.Triage.Priority != filter.Priority) {
			continue
		}
		out = append(out, cwt)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) PutTriageResult(_ context.Context, tr *models.TriageResult) error {
	m.triages[tr.CommitID] = tr
	return nil
}
func (m *mockStore) GetTriageResult(_ context.Context, commitID string) (*models.TriageResult, error) {
	if tr, ok := m.triages[commitID]; ok {
		return tr, nil
	}
	return nil, fmt.Errorf("no triage result for commit: %s", commitID)
}

func (m *mockStore) PutCommitStatus(_ context.Context, cs *models.CommitStatus) error {
	if !models.ValidStatus(cs.Status) {
		return fmt.Errorf("invalid status: %s", cs.Status)
	}
	cs.UpdatedAt = time.Now().UTC()
	m.statuses[cs.CommitID] = cs
	return nil
}
func (m *mockStore) GetCommitStatus(_ context.Context, commitID string) (*models.CommitStatus, error) {
	if cs, ok := m.statuses[commitID]; ok {
		return cs, nil
	}
	return nil, fmt.Errorf("no status for commit: %s", commitID)
}
func (m *mockStore) BulkUpdateStatus(_ context.Context, ids []string, status models.Status, reviewer string) (int64, error) {
	for _, id := range ids {
		m.statuses[id] = &models.CommitStatus{CommitID: id, Status: status, Reviewer: reviewer}
	}
	return int64(len(ids)), nil
}

func (m *mockStore) AppendPattern(_ context.Context, p *models.AdaptationPattern) error {
	m.patterns = append(m.patterns, p)
	return nil
}
func (m *mockStore) ListPatterns(_ context.Context) ([]*models.AdaptationPattern, error) {
	return m.patterns, nil
}
func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T) (*Server, *mockStore) {
	t.Helper()
	ms := newMockStore()
	return NewServer(ms), ms
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func seedRepo(t *testing.T, ms *mockStore, name string) *models.Repository {
	t.Helper()
	r := &models.Repository{
		ID:             fmt.Sprintf("repo-%s", name),
		Name:           name,
		Path:           "/tmp/" + name,
		UpstreamRemote: "upstream",
		UpstreamBranch: "main",
		ForkBranch:     "fork-main",
	}
	ms.repos = append(ms.repos, r)
	return r
}

func seedCommit(t *testing.T, ms *mockStore, repoID, hash string, priority models.Priority, effort models.Effort) *models.Commit {
	t.Helper()
	c := &models.Commit{
		ID:           fmt.Sprintf("commit-%s", hash),
		RepositoryID: repoID,
		Hash:         hash,
		Author:       "Jane Doe",
		Message:      "subject for " + hash,
		CommitDate:   time.Now(),
	}
	ms.commits = append(ms.commits, c)
	if priority != "" {
		ms.triages[c.ID] = &models.TriageResult{
			CommitID:  c.ID,
			Priority:  priority,
			Category:  models.CategoryBugfix,
			Effort:    effort,
			Reasoning: "categorized as bugfix based on commit message",
		}
	}
	return c
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NotNil(t, srv.MCPServer())
}

func TestHandleListRepos(t *testing.T) {
	srv, ms := newTestServer(t)
	ctx := context.Background()

	seedRepo(t, ms, "alpha")
	seedRepo(t, ms, "beta")

	result, err := srv.handleListRepos(ctx, callToolReq("upstream_list_repos", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "alpha")
	assert.Contains(t, text, "beta")
}

func TestHandleListRepos_StoreError(t *testing.T) {
	srv, ms := newTestServer(t)
	ms.listReposErr = fmt.Errorf("db connection failed")

	result, err := srv.handleListRepos(context.Background(), callToolReq("upstream_list_repos", nil))
	require.NoError(t, err, "handler should not return Go error; should wrap in result")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "db connection failed")
}

func TestHandleListCommits_FilterByRepo(t *testing.T) {
	srv, ms := newTestServer(t)
	ctx := context.Background()

	a := seedRepo(t, ms, "alpha")
	b := seedRepo(t, ms, "beta")
	seedCommit(t, ms, a.ID, "aaaa1111", models.PriorityHigh, models.EffortSmall)
	seedCommit(t, ms, b.ID, "bbbb2222", models.PriorityLow, models.EffortTrivial)

	result, err := srv.handleListCommits(ctx, callToolReq("upstream_list_commits", map[string]any{"repo": "alpha"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "aaaa1111")
	assert.NotContains(t, text, "bbbb2222")
	assert.Contains(t, text, `"status":"pending"`)
}

func TestHandleListCommits_UnknownRepo(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleListCommits(context.Background(), callToolReq("upstream_list_commits", map[string]any{"repo": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetTriage(t *testing.T) {
	srv, ms := newTestServer(t)
	ctx := context.Background()

	r := seedRepo(t, ms, "alpha")
	seedCommit(t, ms, r.ID, "aaaa1111bbbb", models.PriorityCritical, models.EffortMedium)

	// Abbreviated hash resolves.
	result, err := srv.handleGetTriage(ctx, callToolReq("upstream_get_triage", map[string]any{
		"repo": "alpha", "hash": "aaaa",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "critical")
	assert.Contains(t, text, "reasoning")
}

func TestHandleGetTriage_NotTriaged(t *testing.T) {
	srv, ms := newTestServer(t)
	r := seedRepo(t, ms, "alpha")
	seedCommit(t, ms, r.ID, "aaaa1111", "", "")

	result, err := srv.handleGetTriage(context.Background(), callToolReq("upstream_get_triage", map[string]any{
		"repo": "alpha", "hash": "aaaa1111",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "run upstream triage first")
}

func TestHandleSetStatus(t *testing.T) {
	srv, ms := newTestServer(t)
	ctx := context.Background()

	r := seedRepo(t, ms, "alpha")
	c := seedCommit(t, ms, r.ID, "aaaa1111", models.PriorityHigh, models.EffortSmall)

	result, err := srv.handleSetStatus(ctx, callToolReq("upstream_set_status", map[string]any{
		"repo": "alpha", "hash": "aaaa1111", "status": "integrated",
		"reviewer": "jane", "notes": "renamed helper during merge",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	cs := ms.statuses[c.ID]
	require.NotNil(t, cs)
	assert.Equal(t, models.StatusIntegrated, cs.Status)
	assert.Equal(t, "jane", cs.Reviewer)
}

func TestHandleSetStatus_InvalidStatus(t *testing.T) {
	srv, ms := newTestServer(t)
	r := seedRepo(t, ms, "alpha")
	seedCommit(t, ms, r.ID, "aaaa1111", models.PriorityHigh, models.EffortSmall)

	result, err := srv.handleSetStatus(context.Background(), callToolReq("upstream_set_status", map[string]any{
		"repo": "alpha", "hash": "aaaa1111", "status": "approved",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid status")
}

func TestHandleBuckets(t *testing.T) {
	srv, ms := newTestServer(t)
	ctx := context.Background()

	r := seedRepo(t, ms, "alpha")
	seedCommit(t, ms, r.ID, "crit0001", models.PriorityCritical, models.EffortMedium)
	seedCommit(t, ms, r.ID, "high0001", models.PriorityHigh, models.EffortSmall)
	seedCommit(t, ms, r.ID, "low00001", models.PriorityLow, models.EffortTrivial)
	// Integrated commits are excluded from the pending partition.
	done := seedCommit(t, ms, r.ID, "done0001", models.PriorityHigh, models.EffortSmall)
	ms.statuses[done.ID] = &models.CommitStatus{CommitID: done.ID, Status: models.StatusIntegrated}

	result, err := srv.handleBuckets(ctx, callToolReq("upstream_buckets", map[string]any{"repo": "alpha"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "crit0001")
	assert.Contains(t, text, "high0001")
	assert.Contains(t, text, "low00001")
	assert.NotContains(t, text, "done0001")
	// medium(8) + small(3) + trivial(1)
	assert.Contains(t, text, `"total_points":12`)
}

func TestHandleBuckets_MissingRepo(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleBuckets(context.Background(), callToolReq("upstream_buckets", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
