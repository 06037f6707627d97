package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joescharf/upstream/internal/workflow"
)

var (
	workflowCron   string
	workflowRepoN  string
	workflowNotify bool
	workflowOut    string
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Generate CI workflow definitions",
}

var workflowInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a GitHub Actions workflow that runs upstream sync on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return workflowInitRun()
	},
}

func init() {
	workflowInitCmd.Flags().StringVar(&workflowCron, "cron", "", "Schedule (default: daily at 06:00 UTC)")
	workflowInitCmd.Flags().StringVar(&workflowRepoN, "repo", "", "Repository name passed to upstream sync")
	workflowInitCmd.Flags().BoolVar(&workflowNotify, "notify", true, "Run sync with --notify")
	workflowInitCmd.Flags().StringVar(&workflowOut, "output", ".github/workflows/upstream-sync.yml", "Output path")

	workflowCmd.AddCommand(workflowInitCmd)
	rootCmd.AddCommand(workflowCmd)
}

func workflowInitRun() error {
	data, err := workflow.Generate(workflow.Options{
		Cron:   workflowCron,
		Repo:   workflowRepoN,
		Notify: workflowNotify,
	})
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would write %s", workflowOut)
		fmt.Fprint(ui.Out, string(data))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(workflowOut), 0755); err != nil {
		return fmt.Errorf("create workflow directory: %w", err)
	}
	if err := os.WriteFile(workflowOut, data, 0644); err != nil {
		return fmt.Errorf("write workflow: %w", err)
	}

	ui.Success("Wrote %s", workflowOut)
	ui.Info("Set the UPSTREAM_WEBHOOK_URLS secret if sync should notify")
	return nil
}
