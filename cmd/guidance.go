package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/upstream/internal/llm"
	"github.com/joescharf/upstream/internal/output"
)

var guidanceRepo string

var guidanceCmd = &cobra.Command{
	Use:   "guidance <hash>",
	Short: "Generate LLM review guidance for a triaged commit",
	Long: `Ask an LLM for review guidance on one upstream commit: a summary,
specific things to check, and an adaptation tip for the fork. Requires an
Anthropic API key (config anthropic.api_key or ANTHROPIC_API_KEY).

Triage itself never uses the LLM; this is advisory output on top of the
deterministic verdict.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return guidanceRun(args[0])
	},
}

func init() {
	guidanceCmd.Flags().StringVar(&guidanceRepo, "repo", "", "Repository name (default: repository at cwd)")
	rootCmd.AddCommand(guidanceCmd)
}

// newLLMClient creates an LLM client from config/env, or returns nil if no API key is configured.
func newLLMClient() *llm.Client {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	return llm.NewClient(apiKey, viper.GetString("anthropic.model"))
}

func guidanceRun(hash string) error {
	client := newLLMClient()
	if client == nil {
		return fmt.Errorf("no Anthropic API key configured; set anthropic.api_key or ANTHROPIC_API_KEY")
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := resolveRepo(ctx, s, guidanceRepo)
	if err != nil {
		return err
	}
	c, err := resolveCommit(ctx, s, r, hash)
	if err != nil {
		return err
	}

	// Triage is optional context; guidance works without it.
	tr, _ := s.GetTriageResult(ctx, c.ID)

	ui.VerboseLog("requesting guidance for %s", shortHash(c.Hash))
	g, err := client.GenerateGuidance(ctx, c, tr)
	if err != nil {
		return fmt.Errorf("generate guidance: %w", err)
	}

	fmt.Fprintf(ui.Out, "%s %s\n\n", output.Cyan(shortHash(c.Hash)), c.Subject())
	fmt.Fprintf(ui.Out, "%s\n\n", g.Summary)

	if len(g.ReviewFocus) > 0 {
		fmt.Fprintf(ui.Out, "%s\n", output.Cyan("Review focus"))
		for _, item := range g.ReviewFocus {
			fmt.Fprintf(ui.Out, "  - %s\n", item)
		}
		fmt.Fprintln(ui.Out)
	}

	if g.AdaptationTip != "" {
		fmt.Fprintf(ui.Out, "%s\n  %s\n\n", output.Cyan("Adaptation tip"), g.AdaptationTip)
	}

	if len(g.Questions) > 0 {
		fmt.Fprintf(ui.Out, "%s\n", output.Cyan("Open questions"))
		for _, q := range g.Questions {
			fmt.Fprintf(ui.Out, "  - %s\n", q)
		}
	}
	return nil
}
