package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/upstream/internal/impact"
	"github.com/joescharf/upstream/internal/output"
)

var (
	analyzeRepo        string
	analyzeDeps        bool
	analyzeBreaking    bool
	analyzeSecurity    bool
	analyzePerformance bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <hash>",
	Short: "Run impact analyses for a commit",
	Long: `Analyze a commit's ripple effects on the fork's source tree:
reverse-dependency impact, breaking-change candidates, security findings,
and performance risk. All analyses run by default; flags select a subset.
A failed sub-analysis reports its error and does not block the others.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyzeRun(args[0])
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeRepo, "repo", "", "Repository name (default: repository at cwd)")
	analyzeCmd.Flags().BoolVar(&analyzeDeps, "deps", false, "Dependency/impact analysis only")
	analyzeCmd.Flags().BoolVar(&analyzeBreaking, "breaking", false, "Breaking-change scan only")
	analyzeCmd.Flags().BoolVar(&analyzeSecurity, "security", false, "Security scan only")
	analyzeCmd.Flags().BoolVar(&analyzePerformance, "performance", false, "Performance scan only")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeRun(hash string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := resolveRepo(ctx, s, analyzeRepo)
	if err != nil {
		return err
	}
	c, err := resolveCommit(ctx, s, r, hash)
	if err != nil {
		return err
	}

	// No selection flags means everything.
	all := !analyzeDeps && !analyzeBreaking && !analyzeSecurity && !analyzePerformance
	analyzer := impact.NewAnalyzer()

	fmt.Fprintf(ui.Out, "%s %s\n\n", output.Cyan(shortHash(c.Hash)), c.Subject())

	if all || analyzeDeps {
		printDependencyImpact(analyzer.AnalyzeDependencyChain(c, r.Path))
	}
	if all || analyzeBreaking {
		printBreaking(analyzer.IdentifyBreakingChanges(c, r.Path))
	}
	if all || analyzeSecurity {
		printSecurity(analyzer.AssessSecurityImpact(c, r.Path))
	}
	if all || analyzePerformance {
		printPerformance(analyzer.PredictPerformanceImpact(c, r.Path))
	}
	return nil
}

func printDependencyImpact(di *impact.DependencyImpact) {
	fmt.Fprintf(ui.Out, "%s\n", output.Cyan("Dependency impact"))
	if di.Err != "" {
		ui.Warning("analysis failed: %s", di.Err)
		fmt.Fprintln(ui.Out)
		return
	}
	fmt.Fprintf(ui.Out, "  Direct dependents: %d\n", len(di.DirectDependents))
	fmt.Fprintf(ui.Out, "  Affected files:    %d (radius %d)\n", len(di.AffectedFiles), di.ImpactRadius)
	fmt.Fprintf(ui.Out, "  Complexity:        %s\n", di.Complexity)
	if len(di.CriticalPaths) > 0 {
		fmt.Fprintf(ui.Out, "  Critical paths:    %s\n", strings.Join(di.CriticalPaths, ", "))
	}
	fmt.Fprintln(ui.Out)
}

func printBreaking(br *impact.BreakingResult) {
	fmt.Fprintf(ui.Out, "%s\n", output.Cyan("Breaking changes"))
	if br.Err != "" {
		ui.Warning("analysis failed: %s", br.Err)
		fmt.Fprintln(ui.Out)
		return
	}
	if len(br.Findings) == 0 {
		fmt.Fprintf(ui.Out, "  none detected\n\n")
		return
	}
	for _, f := range br.Findings {
		loc := f.File
		if loc == "" {
			loc = "commit message"
		}
		fmt.Fprintf(ui.Out, "  [%s] %s: %s (%s)\n", severityColor(f.Severity), f.Type, f.Description, loc)
	}
	fmt.Fprintf(ui.Out, "  Overall: %s", severityColor(br.OverallSeverity))
	if br.MigrationRequired {
		fmt.Fprintf(ui.Out, ", migration required")
	}
	fmt.Fprintf(ui.Out, "\n\n")
}

func printSecurity(sr *impact.SecurityResult) {
	fmt.Fprintf(ui.Out, "%s\n", output.Cyan("Security"))
	if sr.Err != "" {
		ui.Warning("analysis failed: %s", sr.Err)
		fmt.Fprintln(ui.Out)
		return
	}
	if len(sr.Findings) == 0 {
		fmt.Fprintf(ui.Out, "  no findings\n\n")
		return
	}
	for _, f := range sr.Findings {
		fmt.Fprintf(ui.Out, "  [%s] %s: %s (%s)\n", severityColor(f.Severity), f.Category, f.Description, f.File)
	}
	fmt.Fprintf(ui.Out, "  Overall risk: %s\n\n", severityColor(sr.OverallRisk))
}

func printPerformance(pr *impact.PerformanceResult) {
	fmt.Fprintf(ui.Out, "%s\n", output.Cyan("Performance"))
	if pr.Err != "" {
		ui.Warning("analysis failed: %s", pr.Err)
		fmt.Fprintln(ui.Out)
		return
	}
	for _, f := range pr.Findings {
		fmt.Fprintf(ui.Out, "  [%s] %s: %s (%s)\n", severityColor(f.Impact), f.Category, f.Description, f.File)
	}
	fmt.Fprintf(ui.Out, "  Verdict: %s (complexity increase %d/3)\n", pr.Verdict, pr.ComplexityIncrease)
	if pr.RequiresPerformanceTest {
		fmt.Fprintf(ui.Out, "  Performance testing required before integration\n")
	}
	fmt.Fprintln(ui.Out)
}

func severityColor(s impact.Severity) string {
	switch s {
	case impact.SeverityCritical:
		return output.Red(string(s))
	case impact.SeverityHigh:
		return output.Yellow(string(s))
	case impact.SeverityMedium:
		return output.Cyan(string(s))
	default:
		return output.Green(string(s))
	}
}
