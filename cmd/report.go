package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/upstream/internal/models"
	"github.com/joescharf/upstream/internal/output"
	"github.com/joescharf/upstream/internal/store"
)

var (
	reportFormat string
	exportType   string
	exportRepo   string
)

var reportCmd = &cobra.Command{
	Use:   "report [repo]",
	Short: "Show the divergence dashboard",
	Long: `Show per-repository divergence: commit counts by status, priority, and
category, plus the pending work list ordered by priority with total
effort points.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return reportRun(name)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data as JSON, CSV, or Markdown",
	Long:  "Export repositories, commits, or adaptation patterns in various formats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&reportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&exportType, "type", "commits", "Data type: repos, commits, patterns")
	exportCmd.Flags().StringVar(&exportRepo, "repo", "", "Restrict commit export to one repository")
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
}

func reportRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	var repos []*models.Repository
	if name != "" {
		r, err := s.GetRepositoryByName(ctx, name)
		if err != nil {
			return err
		}
		repos = []*models.Repository{r}
	} else {
		repos, err = s.ListRepositories(ctx)
		if err != nil {
			return err
		}
	}
	if len(repos) == 0 {
		ui.Info("No repositories tracked.")
		return nil
	}

	for _, r := range repos {
		commits, err := s.ListCommits(ctx, store.CommitListFilter{RepositoryID: r.ID})
		if err != nil {
			return err
		}

		statusCounts := map[models.Status]int{}
		priorityCounts := map[models.Priority]int{}
		categoryCounts := map[models.Category]int{}
		pendingPoints := 0
		var pending []*store.CommitWithTriage

		for _, cwt := range commits {
			status := models.StatusPending
			if cwt.Status != nil {
				status = cwt.Status.Status
			}
			statusCounts[status]++
			if cwt.Triage != nil {
				priorityCounts[cwt.Triage.Priority]++
				categoryCounts[cwt.Triage.Category]++
			}
			if status == models.StatusPending {
				pending = append(pending, cwt)
				if cwt.Triage != nil {
					pendingPoints += models.EffortPoints[cwt.Triage.Effort]
				}
			}
		}

		fmt.Fprintf(ui.Out, "%s  (%s..%s/%s)\n", output.Cyan(r.Name), r.ForkBranch, r.UpstreamRemote, r.UpstreamBranch)
		fmt.Fprintf(ui.Out, "  Commits:    %d total, %d pending (%d points outstanding)\n",
			len(commits), len(pending), pendingPoints)
		fmt.Fprintf(ui.Out, "  Status:     %s\n", formatCounts(statusCounts))
		fmt.Fprintf(ui.Out, "  Priority:   %s\n", formatPriorityCounts(priorityCounts))
		fmt.Fprintf(ui.Out, "  Category:   %s\n", formatCategoryCounts(categoryCounts))

		if len(pending) > 0 {
			fmt.Fprintf(ui.Out, "\n  Pending work (priority order):\n")
			for i, cwt := range pending {
				if i >= 10 {
					fmt.Fprintf(ui.Out, "    … and %d more\n", len(pending)-i)
					break
				}
				priority := "-"
				if cwt.Triage != nil {
					priority = output.PriorityColor(string(cwt.Triage.Priority))
				}
				fmt.Fprintf(ui.Out, "    %s  %s  %s\n",
					shortHash(cwt.Commit.Hash), priority, truncate(cwt.Commit.Subject(), 60))
			}
		}
		fmt.Fprintln(ui.Out)
	}
	return nil
}

func formatCounts(counts map[models.Status]int) string {
	var parts []string
	for _, st := range []models.Status{models.StatusPending, models.StatusReviewed, models.StatusIntegrated, models.StatusSkipped, models.StatusConflict, models.StatusDeferred} {
		if counts[st] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[st], st))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func formatPriorityCounts(counts map[models.Priority]int) string {
	var parts []string
	for _, p := range []models.Priority{models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		if counts[p] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[p], p))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func formatCategoryCounts(counts map[models.Category]int) string {
	var parts []string
	for _, c := range []models.Category{models.CategorySecurity, models.CategoryBugfix, models.CategoryFeature, models.CategoryRefactor, models.CategoryDocs, models.CategoryTest, models.CategoryChore} {
		if counts[c] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[c], c))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func exportRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch exportType {
	case "repos":
		return exportRepos(ctx, s)
	case "commits":
		return exportCommits(ctx, s)
	case "patterns":
		return exportPatterns(ctx, s)
	default:
		return fmt.Errorf("unknown export type: %s (use: repos, commits, patterns)", exportType)
	}
}

func exportRepos(ctx context.Context, s store.Store) error {
	repos, err := s.ListRepositories(ctx)
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(repos)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"ID", "Name", "Path", "UpstreamRemote", "UpstreamBranch", "ForkBranch", "Created"})
		for _, r := range repos {
			w.Write([]string{r.ID, r.Name, r.Path, r.UpstreamRemote, r.UpstreamBranch, r.ForkBranch, r.CreatedAt.Format("2006-01-02")})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Repositories")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Name | Path | Upstream | Fork Branch |")
		fmt.Fprintln(ui.Out, "|------|------|----------|-------------|")
		for _, r := range repos {
			fmt.Fprintf(ui.Out, "| %s | %s | %s/%s | %s |\n", r.Name, r.Path, r.UpstreamRemote, r.UpstreamBranch, r.ForkBranch)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func exportCommits(ctx context.Context, s store.Store) error {
	filter := store.CommitListFilter{}
	if exportRepo != "" {
		r, err := s.GetRepositoryByName(ctx, exportRepo)
		if err != nil {
			return err
		}
		filter.RepositoryID = r.ID
	}
	commits, err := s.ListCommits(ctx, filter)
	if err != nil {
		return err
	}

	type row struct {
		Hash         string   `json:"hash"`
		Subject      string   `json:"subject"`
		Author       string   `json:"author"`
		Date         string   `json:"date"`
		Priority     string   `json:"priority,omitempty"`
		Category     string   `json:"category,omitempty"`
		ImpactAreas  []string `json:"impactAreas,omitempty"`
		ConflictRisk float64  `json:"conflictRisk,omitempty"`
		Effort       string   `json:"effort,omitempty"`
		Status       string   `json:"status"`
	}

	rows := make([]row, len(commits))
	for i, cwt := range commits {
		rows[i] = row{
			Hash:    cwt.Commit.Hash,
			Subject: cwt.Commit.Subject(),
			Author:  cwt.Commit.Author,
			Date:    cwt.Commit.CommitDate.Format("2006-01-02"),
			Status:  string(models.StatusPending),
		}
		if cwt.Triage != nil {
			rows[i].Priority = string(cwt.Triage.Priority)
			rows[i].Category = string(cwt.Triage.Category)
			rows[i].ImpactAreas = cwt.Triage.ImpactAreas
			rows[i].ConflictRisk = cwt.Triage.ConflictRisk
			rows[i].Effort = string(cwt.Triage.Effort)
		}
		if cwt.Status != nil {
			rows[i].Status = string(cwt.Status.Status)
		}
	}

	switch reportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"Hash", "Subject", "Author", "Date", "Priority", "Category", "Risk", "Effort", "Status"})
		for _, r := range rows {
			w.Write([]string{r.Hash, r.Subject, r.Author, r.Date, r.Priority, r.Category,
				fmt.Sprintf("%.2f", r.ConflictRisk), r.Effort, r.Status})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Commits")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Hash | Subject | Priority | Category | Effort | Status |")
		fmt.Fprintln(ui.Out, "|------|---------|----------|----------|--------|--------|")
		for _, r := range rows {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s | %s | %s |\n",
				shortHash(r.Hash), r.Subject, r.Priority, r.Category, r.Effort, r.Status)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func exportPatterns(ctx context.Context, s store.Store) error {
	patterns, err := s.ListPatterns(ctx)
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(patterns)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"ID", "CommitHash", "Type", "FileType", "Success", "Effort", "Created"})
		for _, p := range patterns {
			w.Write([]string{p.ID, p.CommitHash, string(p.Type), p.FileType,
				fmt.Sprintf("%t", p.Success), string(p.Effort), p.CreatedAt.Format("2006-01-02")})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Adaptation Patterns")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Commit | Type | File Type | Worked |")
		fmt.Fprintln(ui.Out, "|--------|------|-----------|--------|")
		for _, p := range patterns {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %t |\n", shortHash(p.CommitHash), p.Type, p.FileType, p.Success)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}
