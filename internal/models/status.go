package models

import "time"

// Status is the human decision recorded for a commit. A commit with no
// status row is implicitly pending. No status is terminal; any can be
// overwritten by a later decision (e.g. conflict -> integrated).
type Status string

const (
	StatusPending    Status = "pending"
	StatusReviewed   Status = "reviewed"
	StatusIntegrated Status = "integrated"
	StatusSkipped    Status = "skipped"
	StatusConflict   Status = "conflict"
	StatusDeferred   Status = "deferred"
)

// ValidStatus reports whether s is an explicit, persistable status.
// Pending is implicit and never written.
func ValidStatus(s Status) bool {
	switch s {
	case StatusReviewed, StatusIntegrated, StatusSkipped, StatusConflict, StatusDeferred:
		return true
	}
	return false
}

// CommitStatus is the decision lifecycle layered on top of a commit.
type CommitStatus struct {
	CommitID     string
	Status       Status
	Reasoning    string
	Reviewer     string
	ReviewedAt   time.Time
	Notes        string // adaptation notes from the integration
	ActualEffort Effort // actual integration effort, if recorded
	UpdatedAt    time.Time
}
