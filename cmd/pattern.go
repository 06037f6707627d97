package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/upstream/internal/models"
	"github.com/joescharf/upstream/internal/output"
)

var (
	patternType     string
	patternSource   string
	patternTarget   string
	patternFileType string
	patternContext  string
	patternFailed   bool
	patternEffort   string
	patternNotes    string
)

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Record and list learned adaptation patterns",
	Long: `Adaptation patterns capture how a conflict was actually resolved so
future, similar conflicts can suggest the same transformation. Patterns
are append-only history; whether one worked is your judgment, recorded
at learn time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return patternListRun()
	},
}

var patternLearnCmd = &cobra.Command{
	Use:   "learn <hash>",
	Short: "Record how a commit's conflict was adapted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return patternLearnRun(args[0])
	},
}

var patternListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List learned patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return patternListRun()
	},
}

func init() {
	patternLearnCmd.Flags().StringVar(&patternType, "type", "code", "Pattern type: import, code, dependency, config, other")
	patternLearnCmd.Flags().StringVar(&patternSource, "source", "", "Upstream-side pattern text")
	patternLearnCmd.Flags().StringVar(&patternTarget, "target", "", "Fork-side replacement text")
	patternLearnCmd.Flags().StringVar(&patternFileType, "file-type", "", "File extension or kind the pattern applies to")
	patternLearnCmd.Flags().StringVar(&patternContext, "context", "", "Free-form context for the adaptation")
	patternLearnCmd.Flags().BoolVar(&patternFailed, "failed", false, "Record the adaptation as unsuccessful")
	patternLearnCmd.Flags().StringVar(&patternEffort, "effort", "", "Effort the adaptation took (trivial, small, medium, large, xl)")
	patternLearnCmd.Flags().StringVar(&patternNotes, "notes", "", "Notes for the next person hitting this conflict")

	patternCmd.AddCommand(patternLearnCmd)
	patternCmd.AddCommand(patternListCmd)
	rootCmd.AddCommand(patternCmd)
}

func patternLearnRun(hash string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p := &models.AdaptationPattern{
		CommitHash:    hash,
		Type:          models.PatternType(patternType),
		SourcePattern: patternSource,
		TargetPattern: patternTarget,
		FileType:      patternFileType,
		Context:       patternContext,
		Success:       !patternFailed,
		Effort:        models.Effort(patternEffort),
		Notes:         patternNotes,
	}

	if dryRun {
		ui.DryRunMsg("Would record %s pattern for %s", p.Type, shortHash(hash))
		return nil
	}

	if err := s.AppendPattern(ctx, p); err != nil {
		return err
	}
	ui.Success("Recorded %s pattern for %s", p.Type, shortHash(hash))
	return nil
}

func patternListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	patterns, err := s.ListPatterns(ctx)
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		ui.Info("No patterns learned yet. Use 'upstream pattern learn <hash>' after resolving a conflict.")
		return nil
	}

	table := ui.Table([]string{"Commit", "Type", "File Type", "Outcome", "Effort", "Recorded"})
	for _, p := range patterns {
		outcome := output.Green("worked")
		if !p.Success {
			outcome = output.Red("failed")
		}
		effort := string(p.Effort)
		if effort == "" {
			effort = "-"
		}
		fileType := p.FileType
		if fileType == "" {
			fileType = "-"
		}
		table.Append([]string{
			shortHash(p.CommitHash),
			string(p.Type),
			fileType,
			outcome,
			effort,
			p.CreatedAt.Format("2006-01-02"),
		})
	}
	table.Render()
	fmt.Fprintf(ui.Out, "\n%d patterns\n", len(patterns))
	return nil
}
