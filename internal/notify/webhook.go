package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joescharf/upstream/internal/models"
)

// Payload is the JSON body posted to each configured webhook URL when a
// triaged commit is announced.
type Payload struct {
	Event        string    `json:"event"`
	Repository   string    `json:"repository"`
	Hash         string    `json:"hash"`
	Subject      string    `json:"subject"`
	Author       string    `json:"author"`
	CommitDate   time.Time `json:"commitDate"`
	Priority     string    `json:"priority"`
	Category     string    `json:"category"`
	ImpactAreas  []string  `json:"impactAreas"`
	ConflictRisk float64   `json:"conflictRisk"`
	Effort       string    `json:"effort"`
	Reasoning    string    `json:"reasoning"`
}

// NewPayload builds the notification body for one triaged commit.
func NewPayload(repo *models.Repository, commit *models.Commit, triage *models.TriageResult) *Payload {
	p := &Payload{
		Event:      "commit.triaged",
		Repository: repo.Name,
		Hash:       commit.Hash,
		Subject:    commit.Subject(),
		Author:     commit.Author,
		CommitDate: commit.CommitDate,
	}
	if triage != nil {
		p.Priority = string(triage.Priority)
		p.Category = string(triage.Category)
		p.ImpactAreas = triage.ImpactAreas
		p.ConflictRisk = triage.ConflictRisk
		p.Effort = string(triage.Effort)
		p.Reasoning = triage.Reasoning
	}
	return p
}

const defaultTimeout = 10 * time.Second

// Notifier posts payloads to a set of webhook URLs.
type Notifier struct {
	urls   []string
	client *http.Client
}

// NewNotifier creates a Notifier for the given URLs. A nil client gets a
// default with a 10s timeout.
func NewNotifier(urls []string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Notifier{urls: urls, client: client}
}

// Result records the outcome of one webhook delivery.
type Result struct {
	URL        string
	StatusCode int
	Err        error
}

// Send posts the payload to every configured URL. One failing endpoint
// does not stop delivery to the others; per-URL outcomes are returned.
func (n *Notifier) Send(ctx context.Context, p *Payload) []Result {
	body, err := json.Marshal(p)
	if err != nil {
		results := make([]Result, 0, len(n.urls))
		for _, url := range n.urls {
			results = append(results, Result{URL: url, Err: fmt.Errorf("marshal payload: %w", err)})
		}
		return results
	}

	results := make([]Result, 0, len(n.urls))
	for _, url := range n.urls {
		results = append(results, n.post(ctx, url, body))
	}
	return results
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "upstream-notify")

	resp, err := n.client.Do(req)
	if err != nil {
		return Result{URL: url, Err: fmt.Errorf("post webhook: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	result := Result{URL: url, StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Err = fmt.Errorf("webhook returned %s", resp.Status)
	}
	return result
}
