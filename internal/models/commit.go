package models

import "time"

// Commit is one upstream change under evaluation. (repository_id, hash)
// is unique; commits are append-only and survive re-triage.
type Commit struct {
	ID           string
	RepositoryID string
	Hash         string
	Author       string
	AuthorEmail  string
	CommitDate   time.Time
	Message      string
	FilesChanged []string
	Insertions   int
	Deletions    int
	CreatedAt    time.Time
}

// Subject returns the first line of the commit message.
func (c *Commit) Subject() string {
	for i := 0; i < len(c.Message); i++ {
		if c.Message[i] == '\n' {
			return c.Message[:i]
		}
	}
	return c.Message
}

// TotalLines is the combined insertion and deletion count.
func (c *Commit) TotalLines() int {
	return c.Insertions + c.Deletions
}
