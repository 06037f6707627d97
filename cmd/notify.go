package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/upstream/internal/notify"
)

var notifyRepo string

var notifyCmd = &cobra.Command{
	Use:   "notify <hash>",
	Short: "Send a webhook summary of a triaged commit",
	Long: `POST a JSON summary of a triaged commit to every configured webhook
URL (config key webhook.urls or UPSTREAM_WEBHOOK_URLS).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return notifyRun(args[0])
	},
}

func init() {
	notifyCmd.Flags().StringVar(&notifyRepo, "repo", "", "Repository name (default: repository at cwd)")
	rootCmd.AddCommand(notifyCmd)
}

func notifyRun(hash string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	urls := viper.GetStringSlice("webhook.urls")
	if len(urls) == 0 {
		return fmt.Errorf("no webhook URLs configured; set webhook.urls in the config file")
	}

	r, err := resolveRepo(ctx, s, notifyRepo)
	if err != nil {
		return err
	}
	c, err := resolveCommit(ctx, s, r, hash)
	if err != nil {
		return err
	}
	tr, err := s.GetTriageResult(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("commit is not triaged; run 'upstream triage %s' first", shortHash(c.Hash))
	}

	if dryRun {
		ui.DryRunMsg("Would notify %d webhook(s) about %s", len(urls), shortHash(c.Hash))
		return nil
	}

	notifier := notify.NewNotifier(urls, nil)
	failed := 0
	for _, res := range notifier.Send(ctx, notify.NewPayload(r, c, tr)) {
		if res.Err != nil {
			ui.Warning("%s: %v", res.URL, res.Err)
			failed++
		} else {
			ui.VerboseLog("%s -> %d", res.URL, res.StatusCode)
		}
	}
	if failed > 0 {
		return fmt.Errorf("delivered %d of %d notifications", len(urls)-failed, len(urls))
	}

	ui.Success("Notified %d webhook(s) about %s", len(urls), shortHash(c.Hash))
	return nil
}
