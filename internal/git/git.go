package git

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommitInfo holds the normalized metadata for one upstream commit as
// parsed from git show.
type CommitInfo struct {
	Hash         string
	Author       string
	AuthorEmail  string
	Date         time.Time
	Message      string
	FilesChanged []string
	Insertions   int
	Deletions    int
}

// Client defines the interface for git operations on arbitrary repos.
// All methods take a path parameter since upstream tracks multiple repos.
type Client interface {
	RepoRoot(path string) (string, error)
	CurrentBranch(path string) (string, error)
	Fetch(path, remote string) error
	RevList(path, exclude, include string) ([]string, error)
	CommitInfo(path, hash string) (*CommitInfo, error)
	ProbeMerge(path, hash string) ([]string, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) RepoRoot(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--show-toplevel")
}

func (c *RealClient) CurrentBranch(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--abbrev-ref", "HEAD")
}

// Fetch updates the named remote.
func (c *RealClient) Fetch(path, remote string) error {
	_, err := gitCmd(path, "fetch", remote)
	return err
}

// RevList returns the hashes reachable from include but not exclude,
// oldest first (the natural ingestion order).
func (c *RealClient) RevList(path, exclude, include string) ([]string, error) {
	out, err := gitCmd(path, "rev-list", "--reverse", exclude+".."+include)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var hashes []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			hashes = append(hashes, line)
		}
	}
	return hashes, nil
}

// Field and record separators for the git show format string. Unit
// separator keeps multi-line commit messages intact.
const (
	showFormat = "%H%x1f%an%x1f%ae%x1f%aI%x1f%B%x1e"
	fieldSep   = "\x1f"
	recordSep  = "\x1e"
)

// CommitInfo fetches one commit's metadata and numstat.
func (c *RealClient) CommitInfo(path, hash string) (*CommitInfo, error) {
	out, err := gitCmd(path, "show", "--numstat", "--format="+showFormat, hash)
	if err != nil {
		return nil, fmt.Errorf("commit not found: %s: %w", hash, err)
	}
	info, err := ParseCommitShow(out)
	if err != nil {
		return nil, fmt.Errorf("parse commit %s: %w", hash, err)
	}
	return info, nil
}

// ParseCommitShow parses `git show --numstat` output in showFormat.
func ParseCommitShow(out string) (*CommitInfo, error) {
	head, tail, found := strings.Cut(out, recordSep)
	if !found {
		return nil, fmt.Errorf("malformed git show output")
	}

	fields := strings.Split(head, fieldSep)
	if len(fields) != 5 {
		return nil, fmt.Errorf("expected 5 header fields, got %d", len(fields))
	}

	info := &CommitInfo{
		Hash:        fields[0],
		Author:      fields[1],
		AuthorEmail: fields[2],
		Message:     strings.TrimSpace(fields[4]),
	}
	if fields[3] != "" {
		date, err := time.Parse(time.RFC3339, fields[3])
		if err != nil {
			return nil, fmt.Errorf("parse commit date: %w", err)
		}
		info.Date = date
	}

	// Numstat lines: "<insertions>\t<deletions>\t<path>". Binary files
	// report "-" and count as 0.
	for _, line := range strings.Split(tail, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "\t", 3)
		if len(parts) != 3 {
			continue
		}
		info.FilesChanged = append(info.FilesChanged, parts[2])
		if n, err := strconv.Atoi(parts[0]); err == nil {
			info.Insertions += n
		}
		if n, err := strconv.Atoi(parts[1]); err == nil {
			info.Deletions += n
		}
	}
	return info, nil
}

// ProbeMerge attempts a no-commit merge of hash to discover conflicted
// files, then restores the working tree. The abort and checkout always
// run, and their failures are propagated rather than swallowed: a repo
// left mid-merge is worse than a failed probe.
func (c *RealClient) ProbeMerge(path, hash string) (conflicted []string, err error) {
	branch, err := c.CurrentBranch(path)
	if err != nil {
		return nil, err
	}

	defer func() {
		// git exits nonzero for "no merge to abort"; only surface the
		// abort failure when a merge is actually still in progress.
		if _, abortErr := gitCmd(path, "merge", "--abort"); abortErr != nil && mergeInProgress(path) {
			if err == nil {
				err = fmt.Errorf("abort probe merge: %w", abortErr)
			}
			return
		}
		if _, coErr := gitCmd(path, "checkout", branch); coErr != nil && err == nil {
			err = fmt.Errorf("restore branch %s: %w", branch, coErr)
		}
	}()

	if _, mergeErr := gitCmd(path, "merge", "--no-commit", "--no-ff", hash); mergeErr == nil {
		// Clean merge; nothing conflicted.
		return nil, nil
	}

	out, diffErr := gitCmd(path, "diff", "--name-only", "--diff-filter=U")
	if diffErr != nil {
		return nil, fmt.Errorf("list conflicted files: %w", diffErr)
	}
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			conflicted = append(conflicted, line)
		}
	}
	return conflicted, nil
}

func mergeInProgress(path string) bool {
	_, err := gitCmd(path, "rev-parse", "-q", "--verify", "MERGE_HEAD")
	return err == nil
}
