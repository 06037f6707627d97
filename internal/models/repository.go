package models

import "time"

// Repository represents a tracked fork and the upstream it diverges from.
type Repository struct {
	ID             string
	Name           string
	Path           string
	UpstreamRemote string // git remote name, e.g. "upstream"
	UpstreamBranch string // branch to compare against, e.g. "main"
	ForkBranch     string // local branch receiving integrations
	Description    string
	LastSyncAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
