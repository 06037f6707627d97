package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/upstream/internal/git"
	"github.com/joescharf/upstream/internal/models"
	"github.com/joescharf/upstream/internal/notify"
	"github.com/joescharf/upstream/internal/store"
	"github.com/joescharf/upstream/internal/triage"
)

var syncNotify bool

var syncCmd = &cobra.Command{
	Use:   "sync [repo]",
	Short: "Fetch upstream and triage new commits",
	Long: `Fetch the upstream remote, ingest the commits on the upstream branch
that are not on the fork branch, and triage each one. Re-syncing is safe:
commits are keyed by hash and re-triage overwrites the previous verdict.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return syncRun(name)
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncNotify, "notify", false, "Send webhook notifications for newly triaged commits")
	rootCmd.AddCommand(syncCmd)
}

func syncRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := resolveRepo(ctx, s, name)
	if err != nil {
		return err
	}

	gc := git.NewClient()
	ui.VerboseLog("fetching %s in %s", r.UpstreamRemote, r.Path)
	if err := gc.Fetch(r.Path, r.UpstreamRemote); err != nil {
		return fmt.Errorf("fetch %s: %w", r.UpstreamRemote, err)
	}

	upstreamRef := r.UpstreamRemote + "/" + r.UpstreamBranch
	hashes, err := gc.RevList(r.Path, r.ForkBranch, upstreamRef)
	if err != nil {
		return fmt.Errorf("list divergent commits: %w", err)
	}

	if len(hashes) == 0 {
		ui.Success("%s is up to date with %s", r.Name, upstreamRef)
		return touchLastSync(ctx, s, r)
	}

	if dryRun {
		ui.DryRunMsg("Would ingest and triage %d commits from %s", len(hashes), upstreamRef)
		return nil
	}

	engine := triage.NewEngine(nil)
	notifier := newNotifier()
	ingested := 0

	for _, hash := range hashes {
		info, err := gc.CommitInfo(r.Path, hash)
		if err != nil {
			ui.Warning("skipping %s: %v", shortHash(hash), err)
			continue
		}

		commit := &models.Commit{
			RepositoryID: r.ID,
			Hash:         info.Hash,
			Author:       info.Author,
			AuthorEmail:  info.AuthorEmail,
			CommitDate:   info.Date,
			Message:      info.Message,
			FilesChanged: info.FilesChanged,
			Insertions:   info.Insertions,
			Deletions:    info.Deletions,
		}
		if err := s.UpsertCommit(ctx, commit); err != nil {
			ui.Warning("skipping %s: %v", shortHash(hash), err)
			continue
		}

		tr := engine.Classify(commit)
		tr.CommitID = commit.ID
		if err := s.PutTriageResult(ctx, tr); err != nil {
			ui.Warning("triage %s: %v", shortHash(hash), err)
			continue
		}
		ingested++

		ui.VerboseLog("%s %s [%s/%s]", shortHash(commit.Hash), commit.Subject(),
			tr.Category, tr.Priority)

		if syncNotify || viper.GetBool("sync.notify") {
			if notifier != nil {
				for _, res := range notifier.Send(ctx, notify.NewPayload(r, commit, tr)) {
					if res.Err != nil {
						ui.Warning("notify %s: %v", res.URL, res.Err)
					}
				}
			}
		}
	}

	ui.Success("Ingested %d of %d commits from %s", ingested, len(hashes), upstreamRef)
	ui.Info("Run 'upstream commit list %s' to see the work list", r.Name)
	return touchLastSync(ctx, s, r)
}

func touchLastSync(ctx context.Context, s store.Store, r *models.Repository) error {
	now := time.Now().UTC()
	r.LastSyncAt = &now
	return s.UpdateRepository(ctx, r)
}

// newNotifier builds a webhook notifier from config, or nil when no URLs
// are configured.
func newNotifier() *notify.Notifier {
	urls := viper.GetStringSlice("webhook.urls")
	if len(urls) == 0 {
		return nil
	}
	return notify.NewNotifier(urls, nil)
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
