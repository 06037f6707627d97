package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/upstream/internal/models"
	"github.com/joescharf/upstream/internal/store"
	"github.com/joescharf/upstream/internal/triage"
)

// Server wraps the upstream data layer and exposes it as MCP tools.
type Server struct {
	store store.Store
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store) *Server {
	return &Server{store: s}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("upstream", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listReposTool())
	srv.AddTool(s.listCommitsTool())
	srv.AddTool(s.getTriageTool())
	srv.AddTool(s.setStatusTool())
	srv.AddTool(s.bucketsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// upstream_list_repos
func (s *Server) listReposTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("upstream_list_repos",
		mcp.WithDescription("List all tracked fork repositories. Returns a JSON array with id, name, path, upstream remote/branch, fork branch, and last sync time."),
	)
	return tool, s.handleListRepos
}

func (s *Server) handleListRepos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list repositories: %v", err)), nil
	}

	type repoOut struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Path           string `json:"path"`
		UpstreamRemote string `json:"upstream_remote"`
		UpstreamBranch string `json:"upstream_branch"`
		ForkBranch     string `json:"fork_branch"`
		LastSyncAt     string `json:"last_sync_at,omitempty"`
	}

	out := make([]repoOut, len(repos))
	for i, r := range repos {
		out[i] = repoOut{
			ID:             r.ID,
			Name:           r.Name,
			Path:           r.Path,
			UpstreamRemote: r.UpstreamRemote,
			UpstreamBranch: r.UpstreamBranch,
			ForkBranch:     r.ForkBranch,
		}
		if r.LastSyncAt != nil {
			out[i].LastSyncAt = r.LastSyncAt.Format(time.RFC3339)
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal repositories: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// upstream_list_commits
func (s *Server) listCommitsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("upstream_list_commits",
		mcp.WithDescription("List ingested upstream commits with their triage verdicts and review status, ordered by priority. A commit with no status row is pending. Each entry has hash, subject, author, priority, category, conflict_risk, effort, and status."),
		mcp.WithString("repo", mcp.Description("Repository name to filter by")),
		mcp.WithString("status", mcp.Description("Status filter: pending, reviewed, integrated, skipped, conflict, deferred")),
		mcp.WithString("priority", mcp.Description("Priority filter: low, medium, high, critical")),
		mcp.WithString("category", mcp.Description("Category filter: security, bugfix, feature, refactor, docs, test, chore")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of commits to return")),
	)
	return tool, s.handleListCommits
}

func (s *Server) handleListCommits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.CommitListFilter{}

	repoName := request.GetString("repo", "")
	if repoName != "" {
		r, err := s.resolveRepo(ctx, repoName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("repository not found: %s", repoName)), nil
		}
		filter.RepositoryID = r.ID
	}
	if status := request.GetString("status", ""); status != "" {
		filter.Status = models.Status(status)
	}
	if priority := request.GetString("priority", ""); priority != "" {
		filter.Priority = models.Priority(priority)
	}
	if category := request.GetString("category", ""); category != "" {
		filter.Category = models.Category(category)
	}
	filter.Limit = request.GetInt("limit", 0)

	commits, err := s.store.ListCommits(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list commits: %v", err)), nil
	}

	type commitOut struct {
		Hash         string   `json:"hash"`
		Subject      string   `json:"subject"`
		Author       string   `json:"author"`
		CommitDate   string   `json:"commit_date"`
		Files        int      `json:"files"`
		Lines        int      `json:"lines"`
		Priority     string   `json:"priority,omitempty"`
		Category     string   `json:"category,omitempty"`
		ImpactAreas  []string `json:"impact_areas,omitempty"`
		ConflictRisk float64  `json:"conflict_risk,omitempty"`
		Effort       string   `json:"effort,omitempty"`
		Status       string   `json:"status"`
	}

	out := make([]commitOut, len(commits))
	for i, cwt := range commits {
		c := cwt.Commit
		out[i] = commitOut{
			Hash:       c.Hash,
			Subject:    c.Subject(),
			Author:     c.Author,
			CommitDate: c.CommitDate.Format(time.RFC3339),
			Files:      len(c.FilesChanged),
			Lines:      c.TotalLines(),
			Status:     string(models.StatusPending),
		}
		if cwt.Triage != nil {
			out[i].Priority = string(cwt.Triage.Priority)
			out[i].Category = string(cwt.Triage.Category)
			out[i].ImpactAreas = cwt.Triage.ImpactAreas
			out[i].ConflictRisk = cwt.Triage.ConflictRisk
			out[i].Effort = string(cwt.Triage.Effort)
		}
		if cwt.Status != nil {
			out[i].Status = string(cwt.Status.Status)
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal commits: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// upstream_get_triage
func (s *Server) getTriageTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("upstream_get_triage",
		mcp.WithDescription("Get the full triage verdict for one commit, including the reasoning string. Accepts abbreviated hashes."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("hash", mcp.Required(), mcp.Description("Commit hash (full or abbreviated)")),
	)
	return tool, s.handleGetTriage
}

func (s *Server) handleGetTriage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoName, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	hash, err := request.RequireString("hash")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: hash"), nil
	}

	r, err := s.resolveRepo(ctx, repoName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repository not found: %s", repoName)), nil
	}
	commit, err := s.store.GetCommit(ctx, r.ID, hash)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("commit not found: %s", hash)), nil
	}
	tr, err := s.store.GetTriageResult(ctx, commit.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("no triage result for commit %s; run upstream triage first", hash)), nil
	}

	result := map[string]any{
		"hash":          commit.Hash,
		"subject":       commit.Subject(),
		"priority":      string(tr.Priority),
		"category":      string(tr.Category),
		"impact_areas":  tr.ImpactAreas,
		"conflict_risk": tr.ConflictRisk,
		"effort":        string(tr.Effort),
		"confidence":    tr.Confidence,
		"reasoning":     tr.Reasoning,
		"triaged_at":    tr.CreatedAt.Format(time.RFC3339),
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal triage result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// upstream_set_status
func (s *Server) setStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("upstream_set_status",
		mcp.WithDescription("Record the review decision for a commit. Status must be one of: reviewed, integrated, skipped, conflict, deferred. Any existing decision is overwritten."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("hash", mcp.Required(), mcp.Description("Commit hash (full or abbreviated)")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status: reviewed, integrated, skipped, conflict, deferred")),
		mcp.WithString("reasoning", mcp.Description("Why this decision was made")),
		mcp.WithString("reviewer", mcp.Description("Who made the decision")),
		mcp.WithString("notes", mcp.Description("Adaptation notes from the integration")),
		mcp.WithString("actual_effort", mcp.Description("Actual integration effort: trivial, small, medium, large, xl")),
	)
	return tool, s.handleSetStatus
}

func (s *Server) handleSetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoName, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	hash, err := request.RequireString("hash")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: hash"), nil
	}
	statusStr, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}
	status := models.Status(statusStr)
	if !models.ValidStatus(status) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid status: %s (must be reviewed, integrated, skipped, conflict, or deferred)", statusStr)), nil
	}

	r, err := s.resolveRepo(ctx, repoName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repository not found: %s", repoName)), nil
	}
	commit, err := s.store.GetCommit(ctx, r.ID, hash)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("commit not found: %s", hash)), nil
	}

	cs := &models.CommitStatus{
		CommitID:     commit.ID,
		Status:       status,
		Reasoning:    request.GetString("reasoning", ""),
		Reviewer:     request.GetString("reviewer", ""),
		Notes:        request.GetString("notes", ""),
		ActualEffort: models.Effort(request.GetString("actual_effort", "")),
	}
	if err := s.store.PutCommitStatus(ctx, cs); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set status: %v", err)), nil
	}

	result := map[string]any{
		"hash":       commit.Hash,
		"status":     string(cs.Status),
		"updated_at": cs.UpdatedAt.Format(time.RFC3339),
	}
	data, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(data)), nil
}

// upstream_buckets
func (s *Server) bucketsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("upstream_buckets",
		mcp.WithDescription("Partition a repository's pending triaged commits into sprint buckets (immediate, next_sprint, backlog) with total effort points."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
	)
	return tool, s.handleBuckets
}

func (s *Server) handleBuckets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoName, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	r, err := s.resolveRepo(ctx, repoName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repository not found: %s", repoName)), nil
	}

	commits, err := s.store.ListCommits(ctx, store.CommitListFilter{
		RepositoryID: r.ID,
		Status:       models.StatusPending,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list commits: %v", err)), nil
	}

	hashByCommitID := make(map[string]string, len(commits))
	var results []*models.TriageResult
	for _, cwt := range commits {
		if cwt.Triage == nil {
			continue
		}
		hashByCommitID[cwt.Commit.ID] = cwt.Commit.Hash
		results = append(results, cwt.Triage)
	}

	buckets := triage.PartitionBuckets(results)

	render := func(trs []*models.TriageResult) []map[string]any {
		out := make([]map[string]any, len(trs))
		for i, tr := range trs {
			out[i] = map[string]any{
				"hash":     hashByCommitID[tr.CommitID],
				"priority": string(tr.Priority),
				"category": string(tr.Category),
				"effort":   string(tr.Effort),
				"points":   models.EffortPoints[tr.Effort],
			}
		}
		return out
	}

	result := map[string]any{
		"repository":   r.Name,
		"immediate":    render(buckets.Immediate),
		"next_sprint":  render(buckets.NextSprint),
		"backlog":      render(buckets.Backlog),
		"total_points": buckets.TotalPoints,
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal buckets: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// resolveRepo tries to find a repository by name first, then by ID.
func (s *Server) resolveRepo(ctx context.Context, name string) (*models.Repository, error) {
	if r, err := s.store.GetRepositoryByName(ctx, name); err == nil {
		return r, nil
	}
	if r, err := s.store.GetRepository(ctx, name); err == nil {
		return r, nil
	}
	return nil, fmt.Errorf("repository not found: %s", name)
}
