package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/upstream/internal/git"
	"github.com/joescharf/upstream/internal/models"
	"github.com/joescharf/upstream/internal/output"
	"github.com/joescharf/upstream/internal/store"
)

var (
	repoAddName     string
	repoAddRemote   string
	repoAddUpstream string
	repoAddFork     string
	repoAddDesc     string
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage tracked fork repositories",
	Long:  "Add, list, show, and remove the fork repositories upstream tracks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoListRun()
	},
}

var repoAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Track a fork repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoAddRun(args[0])
	},
}

var repoListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tracked repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoListRun()
	},
}

var repoShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one repository's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoShowRun(args[0])
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Stop tracking a repository",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoRemoveRun(args[0])
	},
}

func init() {
	repoAddCmd.Flags().StringVar(&repoAddName, "name", "", "Repository name (default: directory basename)")
	repoAddCmd.Flags().StringVar(&repoAddRemote, "remote", "upstream", "Git remote pointing at the upstream repository")
	repoAddCmd.Flags().StringVar(&repoAddUpstream, "upstream-branch", "main", "Upstream branch to compare against")
	repoAddCmd.Flags().StringVar(&repoAddFork, "fork-branch", "", "Fork branch receiving integrations (default: current branch)")
	repoAddCmd.Flags().StringVar(&repoAddDesc, "description", "", "Repository description")

	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoShowCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	rootCmd.AddCommand(repoCmd)
}

func repoAddRun(path string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	gc := git.NewClient()
	root, err := gc.RepoRoot(path)
	if err != nil {
		return fmt.Errorf("not a git repository: %s", path)
	}

	name := repoAddName
	if name == "" {
		name = filepath.Base(root)
	}

	forkBranch := repoAddFork
	if forkBranch == "" {
		forkBranch, err = gc.CurrentBranch(root)
		if err != nil {
			return fmt.Errorf("detect fork branch: %w", err)
		}
	}

	r := &models.Repository{
		Name:           name,
		Path:           root,
		UpstreamRemote: repoAddRemote,
		UpstreamBranch: repoAddUpstream,
		ForkBranch:     forkBranch,
		Description:    repoAddDesc,
	}

	if dryRun {
		ui.DryRunMsg("Would track %s at %s (%s/%s vs %s)", name, root, repoAddRemote, repoAddUpstream, forkBranch)
		return nil
	}

	if err := s.CreateRepository(ctx, r); err != nil {
		return err
	}

	ui.Success("Tracking %s (%s..%s/%s)", output.Cyan(name), forkBranch, repoAddRemote, repoAddUpstream)
	ui.Info("Run 'upstream sync %s' to ingest upstream commits", name)
	return nil
}

func repoListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	repos, err := s.ListRepositories(ctx)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		ui.Info("No repositories tracked. Use 'upstream repo add <path>' to get started.")
		return nil
	}

	table := ui.Table([]string{"Name", "Upstream", "Fork Branch", "Pending", "Last Sync"})
	for _, r := range repos {
		pending, _ := s.ListCommits(ctx, store.CommitListFilter{
			RepositoryID: r.ID,
			Status:       models.StatusPending,
		})
		lastSync := "never"
		if r.LastSyncAt != nil {
			lastSync = timeAgo(*r.LastSyncAt)
		}
		table.Append([]string{
			output.Cyan(r.Name),
			r.UpstreamRemote + "/" + r.UpstreamBranch,
			r.ForkBranch,
			fmt.Sprintf("%d", len(pending)),
			lastSync,
		})
	}
	table.Render()
	return nil
}

func repoShowRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := s.GetRepositoryByName(ctx, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(r.Name))
	fmt.Fprintf(ui.Out, "  Path:       %s\n", r.Path)
	fmt.Fprintf(ui.Out, "  Upstream:   %s/%s\n", r.UpstreamRemote, r.UpstreamBranch)
	fmt.Fprintf(ui.Out, "  Fork:       %s\n", r.ForkBranch)
	if r.Description != "" {
		fmt.Fprintf(ui.Out, "  About:      %s\n", r.Description)
	}
	if r.LastSyncAt != nil {
		fmt.Fprintf(ui.Out, "  Last sync:  %s\n", timeAgo(*r.LastSyncAt))
	} else {
		fmt.Fprintf(ui.Out, "  Last sync:  never\n")
	}

	commits, err := s.ListCommits(ctx, store.CommitListFilter{RepositoryID: r.ID})
	if err != nil {
		return err
	}

	counts := map[models.Status]int{}
	for _, cwt := range commits {
		status := models.StatusPending
		if cwt.Status != nil {
			status = cwt.Status.Status
		}
		counts[status]++
	}
	fmt.Fprintf(ui.Out, "  Commits:    %d total", len(commits))
	for _, st := range []models.Status{models.StatusPending, models.StatusReviewed, models.StatusIntegrated, models.StatusSkipped, models.StatusConflict, models.StatusDeferred} {
		if counts[st] > 0 {
			fmt.Fprintf(ui.Out, ", %d %s", counts[st], st)
		}
	}
	fmt.Fprintln(ui.Out)
	return nil
}

func repoRemoveRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := s.GetRepositoryByName(ctx, name)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove %s and its ingested commits", name)
		return nil
	}

	if err := s.DeleteRepository(ctx, r.ID); err != nil {
		return err
	}
	ui.Success("Removed %s", name)
	return nil
}

// timeAgo formats a past time as a rough human duration.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
