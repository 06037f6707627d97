package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/upstream/internal/models"
	"github.com/joescharf/upstream/internal/output"
	"github.com/joescharf/upstream/internal/store"
	"github.com/joescharf/upstream/internal/triage"
)

var (
	triageRepo string
	triageAll  bool

	bucketsRepo string
)

var triageCmd = &cobra.Command{
	Use:   "triage [hash]",
	Short: "Classify upstream commits",
	Long: `Run the triage classifier over one commit, or over every pending
commit with --all. Classification is deterministic; re-triage replaces
the stored verdict.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if triageAll {
			return triageAllRun()
		}
		if len(args) != 1 {
			return fmt.Errorf("specify a commit hash or --all")
		}
		return triageOneRun(args[0])
	},
}

var triageBucketsCmd = &cobra.Command{
	Use:   "buckets [repo]",
	Short: "Partition pending commits into sprint buckets",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			bucketsRepo = args[0]
		}
		return bucketsRun()
	},
}

func init() {
	triageCmd.Flags().StringVar(&triageRepo, "repo", "", "Repository name (default: repository at cwd)")
	triageCmd.Flags().BoolVar(&triageAll, "all", false, "Triage every pending commit")
	triageCmd.AddCommand(triageBucketsCmd)
	rootCmd.AddCommand(triageCmd)
}

func triageOneRun(hash string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := resolveRepo(ctx, s, triageRepo)
	if err != nil {
		return err
	}
	c, err := resolveCommit(ctx, s, r, hash)
	if err != nil {
		return err
	}

	engine := triage.NewEngine(nil)
	tr := engine.Classify(c)
	tr.CommitID = c.ID

	if dryRun {
		ui.DryRunMsg("Would store verdict for %s: %s", shortHash(c.Hash), tr.Reasoning)
		return nil
	}
	if err := s.PutTriageResult(ctx, tr); err != nil {
		return err
	}

	ui.Success("%s triaged: %s / %s", shortHash(c.Hash),
		output.PriorityColor(string(tr.Priority)), tr.Category)
	fmt.Fprintf(ui.Out, "  %s\n", tr.Reasoning)
	return nil
}

func triageAllRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := resolveRepo(ctx, s, triageRepo)
	if err != nil {
		return err
	}

	pending, err := s.ListCommits(ctx, store.CommitListFilter{
		RepositoryID: r.ID,
		Status:       models.StatusPending,
	})
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		ui.Info("Nothing pending in %s", r.Name)
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would triage %d pending commits", len(pending))
		return nil
	}

	engine := triage.NewEngine(nil)
	for _, cwt := range pending {
		tr := engine.Classify(cwt.Commit)
		tr.CommitID = cwt.Commit.ID
		if err := s.PutTriageResult(ctx, tr); err != nil {
			ui.Warning("triage %s: %v", shortHash(cwt.Commit.Hash), err)
			continue
		}
		ui.VerboseLog("%s -> %s/%s", shortHash(cwt.Commit.Hash), tr.Category, tr.Priority)
	}

	ui.Success("Triaged %d commits in %s", len(pending), r.Name)
	return nil
}

func bucketsRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := resolveRepo(ctx, s, bucketsRepo)
	if err != nil {
		return err
	}

	pending, err := s.ListCommits(ctx, store.CommitListFilter{
		RepositoryID: r.ID,
		Status:       models.StatusPending,
	})
	if err != nil {
		return err
	}

	hashByCommitID := make(map[string]string, len(pending))
	var results []*models.TriageResult
	for _, cwt := range pending {
		if cwt.Triage == nil {
			continue
		}
		hashByCommitID[cwt.Commit.ID] = cwt.Commit.Hash
		results = append(results, cwt.Triage)
	}
	if len(results) == 0 {
		ui.Info("No triaged pending commits in %s", r.Name)
		return nil
	}

	b := triage.PartitionBuckets(results)

	printBucket := func(title string, trs []*models.TriageResult) {
		if len(trs) == 0 {
			return
		}
		points := 0
		for _, tr := range trs {
			points += models.EffortPoints[tr.Effort]
		}
		fmt.Fprintf(ui.Out, "%s (%d commits, %d points)\n", output.Cyan(title), len(trs), points)
		for _, tr := range trs {
			fmt.Fprintf(ui.Out, "  %s  %s/%s  %s\n",
				shortHash(hashByCommitID[tr.CommitID]),
				output.PriorityColor(string(tr.Priority)), tr.Category, tr.Effort)
		}
		fmt.Fprintln(ui.Out)
	}

	printBucket("Immediate", b.Immediate)
	printBucket("Next sprint", b.NextSprint)
	printBucket("Backlog", b.Backlog)
	fmt.Fprintf(ui.Out, "Total: %d points across %d commits\n", b.TotalPoints, len(results))
	return nil
}
