// Package workflow generates GitHub Actions workflow definitions that run
// scheduled upstream syncs.
package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Options controls the generated workflow.
type Options struct {
	Name      string // workflow name, defaults to "upstream-sync"
	Cron      string // schedule, defaults to daily at 06:00 UTC
	Repo      string // tracked repository name passed to upstream sync
	Notify    bool   // pass --notify so triaged commits hit the webhooks
	GoVersion string
}

const (
	defaultName      = "upstream-sync"
	defaultCron      = "0 6 * * *"
	defaultGoVersion = "1.26"
)

type workflow struct {
	Name string         `yaml:"name"`
	On   triggers       `yaml:"on"`
	Jobs map[string]job `yaml:"jobs"`
}

type triggers struct {
	Schedule         []schedule `yaml:"schedule"`
	WorkflowDispatch struct{}   `yaml:"workflow_dispatch"`
}

type schedule struct {
	Cron string `yaml:"cron"`
}

type job struct {
	RunsOn string `yaml:"runs-on"`
	Steps  []step `yaml:"steps"`
}

type step struct {
	Name string            `yaml:"name,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

// Generate renders the workflow YAML for the given options.
func Generate(opts Options) ([]byte, error) {
	if opts.Name == "" {
		opts.Name = defaultName
	}
	if opts.Cron == "" {
		opts.Cron = defaultCron
	}
	if opts.GoVersion == "" {
		opts.GoVersion = defaultGoVersion
	}

	syncCmd := "upstream sync"
	if opts.Repo != "" {
		syncCmd += " " + opts.Repo
	}
	if opts.Notify {
		syncCmd += " --notify"
	}

	wf := workflow{
		Name: opts.Name,
		On: triggers{
			Schedule: []schedule{{Cron: opts.Cron}},
		},
		Jobs: map[string]job{
			"sync": {
				RunsOn: "ubuntu-latest",
				Steps: []step{
					{
						Name: "Checkout",
						Uses: "actions/checkout@v4",
						With: map[string]string{"fetch-depth": "0"},
					},
					{
						Name: "Set up Go",
						Uses: "actions/setup-go@v5",
						With: map[string]string{"go-version": opts.GoVersion},
					},
					{
						Name: "Install upstream",
						Run:  "go install github.com/joescharf/upstream@latest",
					},
					{
						Name: "Sync and triage",
						Run:  syncCmd,
						Env: map[string]string{
							"UPSTREAM_WEBHOOK_URLS": "${{ secrets.UPSTREAM_WEBHOOK_URLS }}",
						},
					},
				},
			},
		},
	}

	data, err := yaml.Marshal(&wf)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow: %w", err)
	}
	return data, nil
}
