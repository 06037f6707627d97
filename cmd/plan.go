package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/upstream/internal/conflict"
	"github.com/joescharf/upstream/internal/impact"
	"github.com/joescharf/upstream/internal/output"
	"github.com/joescharf/upstream/internal/plan"
)

var (
	planRepo string
	planJSON bool
)

var planCmd = &cobra.Command{
	Use:   "plan <hash>",
	Short: "Compose a migration plan for integrating a commit",
	Long: `Compose a four-phase migration plan (preparation, integration, testing,
deployment) from the commit's triage verdict, impact analyses, and
conflict report. The plan is derived on demand and never persisted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return planRun(args[0])
	},
}

func init() {
	planCmd.Flags().StringVar(&planRepo, "repo", "", "Repository name (default: repository at cwd)")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Emit the plan as JSON")
	rootCmd.AddCommand(planCmd)
}

func planRun(hash string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := resolveRepo(ctx, s, planRepo)
	if err != nil {
		return err
	}
	c, err := resolveCommit(ctx, s, r, hash)
	if err != nil {
		return err
	}

	in := plan.Inputs{}
	if tr, err := s.GetTriageResult(ctx, c.ID); err == nil {
		in.Triage = tr
	}

	analyzer := impact.NewAnalyzer()
	in.Dependency = analyzer.AnalyzeDependencyChain(c, r.Path)
	in.Breaking = analyzer.IdentifyBreakingChanges(c, r.Path)
	in.Security = analyzer.AssessSecurityImpact(c, r.Path)
	in.Performance = analyzer.PredictPerformanceImpact(c, r.Path)

	if ca, err := conflict.NewAnalyzer(ctx, s); err == nil {
		in.Conflicts = ca.AnalyzeConflicts(c, r.Path)
	}

	p := plan.CreateMigrationPlan(c, in)

	if planJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	fmt.Fprintf(ui.Out, "Migration plan for %s %s\n\n", output.Cyan(shortHash(c.Hash)), c.Subject())

	for _, phase := range p.Phases {
		fmt.Fprintf(ui.Out, "%s (%dh)\n", output.Cyan(phase.Name), phase.EstimatedHours)
		for _, task := range phase.Tasks {
			fmt.Fprintf(ui.Out, "  - %s\n", task)
		}
		fmt.Fprintln(ui.Out)
	}

	if len(p.Prerequisites) > 0 {
		fmt.Fprintf(ui.Out, "Prerequisites:\n")
		for _, pre := range p.Prerequisites {
			fmt.Fprintf(ui.Out, "  - %s\n", pre)
		}
		fmt.Fprintln(ui.Out)
	}

	if len(p.Risks) > 0 {
		fmt.Fprintf(ui.Out, "Risks:\n")
		for _, risk := range p.Risks {
			fmt.Fprintf(ui.Out, "  - [%s] %s\n", output.PriorityColor(risk.Level), risk.Description)
		}
		fmt.Fprintln(ui.Out)
	}

	fmt.Fprintf(ui.Out, "Rollback:\n")
	for _, step := range p.Rollback {
		fmt.Fprintf(ui.Out, "  - %s\n", step)
	}
	fmt.Fprintln(ui.Out)

	fmt.Fprintf(ui.Out, "Total: %dh (%s effort), risk %s\n",
		p.TotalHours, p.EffortBucket, output.PriorityColor(p.RiskLevel))
	return nil
}
