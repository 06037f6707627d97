package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/upstream/internal/conflict"
	"github.com/joescharf/upstream/internal/git"
	"github.com/joescharf/upstream/internal/output"
)

var (
	conflictsRepo  string
	conflictsProbe bool
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts <hash>",
	Short: "Detect merge conflicts and suggest resolutions",
	Long: `Scan the files a commit touches for merge-conflict markers, classify
each conflict block, and suggest typed resolutions. Learned adaptation
patterns are matched against conflicts that have no automatic strategy.

With --probe, a no-commit merge of the commit is attempted first so the
working tree actually contains the conflict markers; the merge is always
aborted and the previous branch restored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return conflictsRun(args[0])
	},
}

func init() {
	conflictsCmd.Flags().StringVar(&conflictsRepo, "repo", "", "Repository name (default: repository at cwd)")
	conflictsCmd.Flags().BoolVar(&conflictsProbe, "probe", false, "Probe-merge the commit to materialize conflicts first")
	rootCmd.AddCommand(conflictsCmd)
}

func conflictsRun(hash string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := resolveRepo(ctx, s, conflictsRepo)
	if err != nil {
		return err
	}
	c, err := resolveCommit(ctx, s, r, hash)
	if err != nil {
		return err
	}

	if conflictsProbe {
		if dryRun {
			ui.DryRunMsg("Would probe-merge %s in %s", shortHash(c.Hash), r.Path)
			return nil
		}
		gc := git.NewClient()
		ui.VerboseLog("probe-merging %s", shortHash(c.Hash))
		conflicted, err := gc.ProbeMerge(r.Path, c.Hash)
		if err != nil {
			return fmt.Errorf("probe merge: %w", err)
		}
		if len(conflicted) == 0 {
			ui.Success("%s merges cleanly", shortHash(c.Hash))
			return nil
		}
		ui.Warning("%d files conflicted during probe: %s", len(conflicted), strings.Join(conflicted, ", "))
	}

	analyzer, err := conflict.NewAnalyzer(ctx, s)
	if err != nil {
		return fmt.Errorf("load adaptation patterns: %w", err)
	}

	analysis := analyzer.AnalyzeConflicts(c, r.Path)
	if analysis.Err != "" {
		ui.Warning("analysis failed: %s", analysis.Err)
	}
	if !analysis.HasConflicts {
		ui.Success("No conflict markers in the files %s touches", shortHash(c.Hash))
		return nil
	}

	fmt.Fprintf(ui.Out, "%s: %d conflicts\n\n", output.Cyan(shortHash(c.Hash)), len(analysis.Conflicts))

	for i, res := range analysis.Resolutions {
		conf := analysis.Conflicts[i]
		fmt.Fprintf(ui.Out, "  %s:%d [%s]\n", conf.File, conf.Line, conf.Type)
		fmt.Fprintf(ui.Out, "    Strategy:   %s (confidence %.0f%%)\n", res.Strategy, res.Confidence*100)
		fmt.Fprintf(ui.Out, "    %s\n", res.Description)
		if res.ManualReview {
			fmt.Fprintf(ui.Out, "    %s\n", output.Yellow("manual review required"))
		}
		if len(res.Merged) > 0 && verbose {
			fmt.Fprintf(ui.Out, "    Merged:\n%s\n", indent(strings.Join(res.Merged, "\n"), "      "))
		}
		fmt.Fprintln(ui.Out)
	}

	fmt.Fprintf(ui.Out, "Recommendation: %s\n", recommendationColor(analysis.Recommendation))
	fmt.Fprintf(ui.Out, "Estimated resolution time: %s\n", analysis.EstimatedTime)
	return nil
}

func recommendationColor(rec string) string {
	switch rec {
	case "automated":
		return output.Green(rec)
	case "semi-automated":
		return output.Yellow(rec)
	default:
		return output.Red(rec)
	}
}
