package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/upstream/internal/models"
	"github.com/joescharf/upstream/internal/output"
	"github.com/joescharf/upstream/internal/store"
)

var (
	commitListRepo     string
	commitListStatus   string
	commitListPriority string
	commitListCategory string
	commitListLimit    int

	commitStatusRepo     string
	commitStatusReason   string
	commitStatusReviewer string
	commitStatusNotes    string
	commitStatusEffort   string

	commitShowRepo string
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Inspect ingested commits and record decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitListRun()
	},
}

var commitListCmd = &cobra.Command{
	Use:     "list [repo]",
	Aliases: []string{"ls"},
	Short:   "List commits ordered by priority",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			commitListRepo = args[0]
		}
		return commitListRun()
	},
}

var commitShowCmd = &cobra.Command{
	Use:   "show <hash>",
	Short: "Show one commit with its triage verdict and status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitShowRun(args[0])
	},
}

var commitStatusCmd = &cobra.Command{
	Use:   "status <hash> <status>",
	Short: "Record the review decision for a commit",
	Long: `Record the human decision for a commit. Status must be one of:
reviewed, integrated, skipped, conflict, deferred. Any previous decision
is overwritten; a commit with no decision is pending.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitStatusRun(args[0], args[1])
	},
}

func init() {
	commitListCmd.Flags().StringVar(&commitListStatus, "status", "", "Filter by status (pending, reviewed, integrated, skipped, conflict, deferred)")
	commitListCmd.Flags().StringVar(&commitListPriority, "priority", "", "Filter by priority (low, medium, high, critical)")
	commitListCmd.Flags().StringVar(&commitListCategory, "category", "", "Filter by category (security, bugfix, feature, refactor, docs, test, chore)")
	commitListCmd.Flags().IntVar(&commitListLimit, "limit", 0, "Maximum commits to list")

	commitShowCmd.Flags().StringVar(&commitShowRepo, "repo", "", "Repository name (default: repository at cwd)")

	commitStatusCmd.Flags().StringVar(&commitStatusRepo, "repo", "", "Repository name (default: repository at cwd)")
	commitStatusCmd.Flags().StringVar(&commitStatusReason, "reason", "", "Why this decision was made")
	commitStatusCmd.Flags().StringVar(&commitStatusReviewer, "reviewer", "", "Who made the decision")
	commitStatusCmd.Flags().StringVar(&commitStatusNotes, "notes", "", "Adaptation notes from the integration")
	commitStatusCmd.Flags().StringVar(&commitStatusEffort, "actual-effort", "", "Actual integration effort (trivial, small, medium, large, xl)")

	commitCmd.AddCommand(commitListCmd)
	commitCmd.AddCommand(commitShowCmd)
	commitCmd.AddCommand(commitStatusCmd)
	rootCmd.AddCommand(commitCmd)
}

func commitListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.CommitListFilter{
		Status:   models.Status(commitListStatus),
		Priority: models.Priority(commitListPriority),
		Category: models.Category(commitListCategory),
		Limit:    commitListLimit,
	}
	if commitListRepo != "" {
		r, err := s.GetRepositoryByName(ctx, commitListRepo)
		if err != nil {
			return err
		}
		filter.RepositoryID = r.ID
	}

	commits, err := s.ListCommits(ctx, filter)
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		ui.Info("No commits match. Run 'upstream sync' to ingest upstream changes.")
		return nil
	}

	table := ui.Table([]string{"Hash", "Subject", "Priority", "Category", "Risk", "Effort", "Status"})
	for _, cwt := range commits {
		priority, category, risk, effort := "-", "-", "-", "-"
		if cwt.Triage != nil {
			priority = output.PriorityColor(string(cwt.Triage.Priority))
			category = string(cwt.Triage.Category)
			risk = output.RiskColor(cwt.Triage.ConflictRisk)
			effort = string(cwt.Triage.Effort)
		}
		status := string(models.StatusPending)
		if cwt.Status != nil {
			status = string(cwt.Status.Status)
		}
		table.Append([]string{
			shortHash(cwt.Commit.Hash),
			truncate(cwt.Commit.Subject(), 60),
			priority,
			category,
			risk,
			effort,
			output.StatusColor(status),
		})
	}
	table.Render()
	return nil
}

func commitShowRun(hash string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := resolveRepo(ctx, s, commitShowRepo)
	if err != nil {
		return err
	}
	c, err := resolveCommit(ctx, s, r, hash)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s %s\n", output.Cyan(shortHash(c.Hash)), c.Subject())
	fmt.Fprintf(ui.Out, "  Author:  %s <%s>\n", c.Author, c.AuthorEmail)
	fmt.Fprintf(ui.Out, "  Date:    %s\n", c.CommitDate.Format("2006-01-02 15:04"))
	fmt.Fprintf(ui.Out, "  Changes: %d files, +%d -%d\n", len(c.FilesChanged), c.Insertions, c.Deletions)
	if body := commitBody(c.Message); body != "" {
		fmt.Fprintf(ui.Out, "\n%s\n", indent(body, "  "))
	}

	if tr, err := s.GetTriageResult(ctx, c.ID); err == nil {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "  Priority:  %s\n", output.PriorityColor(string(tr.Priority)))
		fmt.Fprintf(ui.Out, "  Category:  %s\n", tr.Category)
		if len(tr.ImpactAreas) > 0 {
			fmt.Fprintf(ui.Out, "  Areas:     %s\n", strings.Join(tr.ImpactAreas, ", "))
		}
		fmt.Fprintf(ui.Out, "  Risk:      %s\n", output.RiskColor(tr.ConflictRisk))
		fmt.Fprintf(ui.Out, "  Effort:    %s (%d points)\n", tr.Effort, models.EffortPoints[tr.Effort])
		fmt.Fprintf(ui.Out, "  Verdict:   %s\n", tr.Reasoning)
	} else {
		ui.Info("Not triaged yet; run 'upstream triage %s'", shortHash(c.Hash))
	}

	if cs, err := s.GetCommitStatus(ctx, c.ID); err == nil {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "  Status:    %s", output.StatusColor(string(cs.Status)))
		if cs.Reviewer != "" {
			fmt.Fprintf(ui.Out, " (by %s, %s)", cs.Reviewer, timeAgo(cs.ReviewedAt))
		}
		fmt.Fprintln(ui.Out)
		if cs.Reasoning != "" {
			fmt.Fprintf(ui.Out, "  Reason:    %s\n", cs.Reasoning)
		}
		if cs.Notes != "" {
			fmt.Fprintf(ui.Out, "  Notes:     %s\n", cs.Notes)
		}
		if cs.ActualEffort != "" {
			fmt.Fprintf(ui.Out, "  Actual:    %s\n", cs.ActualEffort)
		}
	}
	return nil
}

func commitStatusRun(hash, statusStr string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	status := models.Status(statusStr)
	if !models.ValidStatus(status) {
		return fmt.Errorf("invalid status: %s (use reviewed, integrated, skipped, conflict, or deferred)", statusStr)
	}

	r, err := resolveRepo(ctx, s, commitStatusRepo)
	if err != nil {
		return err
	}
	c, err := resolveCommit(ctx, s, r, hash)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would mark %s as %s", shortHash(c.Hash), status)
		return nil
	}

	cs := &models.CommitStatus{
		CommitID:     c.ID,
		Status:       status,
		Reasoning:    commitStatusReason,
		Reviewer:     commitStatusReviewer,
		Notes:        commitStatusNotes,
		ActualEffort: models.Effort(commitStatusEffort),
	}
	if err := s.PutCommitStatus(ctx, cs); err != nil {
		return err
	}

	ui.Success("%s marked %s", shortHash(c.Hash), output.StatusColor(string(status)))
	return nil
}

func commitBody(message string) string {
	_, body, found := strings.Cut(message, "\n")
	if !found {
		return ""
	}
	return strings.TrimSpace(body)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
