package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/upstream/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single connection
	// serializes all DB access through Go's connection pool and avoids
	// "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// jsonList marshals a string slice for TEXT column storage.
func jsonList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Repositories ---

func (s *SQLiteStore) CreateRepository(ctx context.Context, r *models.Repository) error {
	if r.ID == "" {
		r.ID = newULID()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO repositories (id, name, path, upstream_remote, upstream_branch, fork_branch, description, last_sync_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Path, r.UpstreamRemote, r.UpstreamBranch, r.ForkBranch,
		r.Description, r.LastSyncAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	return nil
}

const repoColumns = `id, name, path, upstream_remote, upstream_branch, fork_branch, description, last_sync_at, created_at, updated_at`

func scanRepository(row interface{ Scan(...any) error }) (*models.Repository, error) {
	r := &models.Repository{}
	var lastSync sql.NullTime
	err := row.Scan(&r.ID, &r.Name, &r.Path, &r.UpstreamRemote, &r.UpstreamBranch,
		&r.ForkBranch, &r.Description, &lastSync, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastSync.Valid {
		r.LastSyncAt = &lastSync.Time
	}
	return r, nil
}

func (s *SQLiteStore) GetRepository(ctx context.Context, id string) (*models.Repository, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+repoColumns+` FROM repositories WHERE id = ?`, id)
	r, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("repository not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) GetRepositoryByName(ctx context.Context, name string) (*models.Repository, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+repoColumns+` FROM repositories WHERE name = ?`, name)
	r, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("repository not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get repository by name: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) GetRepositoryByPath(ctx context.Context, path string) (*models.Repository, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+repoColumns+` FROM repositories WHERE path = ?`, path)
	r, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("repository not found at path: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("get repository by path: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) ListRepositories(ctx context.Context) ([]*models.Repository, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+repoColumns+` FROM repositories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var repos []*models.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

func (s *SQLiteStore) UpdateRepository(ctx context.Context, r *models.Repository) error {
	r.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE repositories SET name=?, path=?, upstream_remote=?, upstream_branch=?, fork_branch=?, description=?, last_sync_at=?, updated_at=?
		WHERE id=?`,
		r.Name, r.Path, r.UpstreamRemote, r.UpstreamBranch, r.ForkBranch,
		r.Description, r.LastSyncAt, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update repository: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("repository not found: %s", r.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteRepository(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM repositories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("repository not found: %s", id)
	}
	return nil
}

// --- Commits ---

// UpsertCommit inserts a commit, or refreshes its metadata on re-import.
// The commit history is append-only: rows are never deleted, and the id
// is stable across re-imports so the triage result can be replaced in place.
func (s *SQLiteStore) UpsertCommit(ctx context.Context, c *models.Commit) error {
	if c.ID == "" {
		c.ID = newULID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commits (id, repository_id, hash, author, author_email, commit_date, message, files_changed, insertions, deletions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repository_id, hash) DO UPDATE SET
			author=excluded.author, author_email=excluded.author_email,
			commit_date=excluded.commit_date, message=excluded.message,
			files_changed=excluded.files_changed, insertions=excluded.insertions,
			deletions=excluded.deletions`,
		c.ID, c.RepositoryID, c.Hash, c.Author, c.AuthorEmail, c.CommitDate,
		c.Message, jsonList(c.FilesChanged), c.Insertions, c.Deletions, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert commit: %w", err)
	}

	// On conflict the insert's fresh id was discarded; read back the stored one.
	err = s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM commits WHERE repository_id = ? AND hash = ?",
		c.RepositoryID, c.Hash,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("read back commit id: %w", err)
	}
	return nil
}

const commitColumns = `id, repository_id, hash, author, author_email, commit_date, message, files_changed, insertions, deletions, created_at`

func scanCommit(row interface{ Scan(...any) error }) (*models.Commit, error) {
	c := &models.Commit{}
	var filesJSON string
	err := row.Scan(&c.ID, &c.RepositoryID, &c.Hash, &c.Author, &c.AuthorEmail,
		&c.CommitDate, &c.Message, &filesJSON, &c.Insertions, &c.Deletions, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(filesJSON), &c.FilesChanged)
	return c, nil
}

func (s *SQLiteStore) GetCommit(ctx context.Context, repositoryID, hash string) (*models.Commit, error) {
	// Accept abbreviated hashes the way git does.
	row := s.db.QueryRowContext(ctx,
		`SELECT `+commitColumns+` FROM commits WHERE repository_id = ? AND hash LIKE ? || '%' ORDER BY hash LIMIT 1`,
		repositoryID, hash)
	c, err := scanCommit(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("commit not found: %s", hash)
	}
	if err != nil {
		return nil, fmt.Errorf("get commit: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) ListCommits(ctx context.Context, filter CommitListFilter) ([]*CommitWithTriage, error) {
	query := `SELECT c.id, c.repository_id, c.hash, c.author, c.author_email, c.commit_date, c.message, c.files_changed, c.insertions, c.deletions, c.created_at,
		t.id, t.priority, t.category, t.impact_areas, t.conflict_risk, t.effort, t.reasoning, t.confidence, t.created_at,
		st.status, st.reasoning, st.reviewer, st.reviewed_at, st.notes, st.actual_effort, st.updated_at
		FROM commits c
		LEFT JOIN triage_results t ON t.commit_id = c.id
		LEFT JOIN commit_status st ON st.commit_id = c.id`
	var conditions []string
	var args []any

	if filter.RepositoryID != "" {
		conditions = append(conditions, "c.repository_id = ?")
		args = append(args, filter.RepositoryID)
	}
	if filter.Status == models.StatusPending {
		conditions = append(conditions, "st.status IS NULL")
	} else if filter.Status != "" {
		conditions = append(conditions, "st.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != "" {
		conditions = append(conditions, "t.priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.Category != "" {
		conditions = append(conditions, "t.category = ?")
		args = append(args, string(filter.Category))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY
		CASE t.priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END,
		c.commit_date DESC`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*CommitWithTriage
	for rows.Next() {
		c := &models.Commit{}
		var filesJSON string
		var trID, trPriority, trCategory, trAreas, trEffort, trReasoning sql.NullString
		var trRisk, trConfidence sql.NullFloat64
		var trCreated sql.NullTime
		var stStatus, stReasoning, stReviewer, stNotes, stEffort sql.NullString
		var stReviewed, stUpdated sql.NullTime

		if err := rows.Scan(&c.ID, &c.RepositoryID, &c.Hash, &c.Author, &c.AuthorEmail,
			&c.CommitDate, &c.Message, &filesJSON, &c.Insertions, &c.Deletions, &c.CreatedAt,
			&trID, &trPriority, &trCategory, &trAreas, &trRisk, &trEffort, &trReasoning, &trConfidence, &trCreated,
			&stStatus, &stReasoning, &stReviewer, &stReviewed, &stNotes, &stEffort, &stUpdated); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		_ = json.Unmarshal([]byte(filesJSON), &c.FilesChanged)

		cwt := &CommitWithTriage{Commit: c}
		if trID.Valid {
			tr := &models.TriageResult{
				ID:           trID.String,
				CommitID:     c.ID,
				Priority:     models.Priority(trPriority.String),
				Category:     models.Category(trCategory.String),
				ConflictRisk: trRisk.Float64,
				Effort:       models.Effort(trEffort.String),
				Reasoning:    trReasoning.String,
				Confidence:   trConfidence.Float64,
				CreatedAt:    trCreated.Time,
			}
			_ = json.Unmarshal([]byte(trAreas.String), &tr.ImpactAreas)
			cwt.Triage = tr
		}
		if stStatus.Valid {
			cwt.Status = &models.CommitStatus{
				CommitID:     c.ID,
				Status:       models.Status(stStatus.String),
				Reasoning:    stReasoning.String,
				Reviewer:     stReviewer.String,
				ReviewedAt:   stReviewed.Time,
				Notes:        stNotes.String,
				ActualEffort: models.Effort(stEffort.String),
				UpdatedAt:    stUpdated.Time,
			}
		}
		out = append(out, cwt)
	}
	return out, rows.Err()
}

// --- Triage results ---

// PutTriageResult inserts or replaces the triage result for a commit.
// Exactly one result per commit; re-triage overwrites.
func (s *SQLiteStore) PutTriageResult(ctx context.Context, tr *models.TriageResult) error {
	if tr.ID == "" {
		tr.ID = newULID()
	}
	tr.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO triage_results (id, commit_id, priority, category, impact_areas, conflict_risk, effort, reasoning, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (commit_id) DO UPDATE SET
			priority=excluded.priority, category=excluded.category,
			impact_areas=excluded.impact_areas, conflict_risk=excluded.conflict_risk,
			effort=excluded.effort, reasoning=excluded.reasoning,
			confidence=excluded.confidence, created_at=excluded.created_at`,
		tr.ID, tr.CommitID, string(tr.Priority), string(tr.Category),
		jsonList(tr.ImpactAreas), tr.ConflictRisk, string(tr.Effort),
		tr.Reasoning, tr.Confidence, tr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put triage result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTriageResult(ctx context.Context, commitID string) (*models.TriageResult, error) {
	tr := &models.TriageResult{}
	var priority, category, areasJSON, effort string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, commit_id, priority, category, impact_areas, conflict_risk, effort, reasoning, confidence, created_at
		FROM triage_results WHERE commit_id = ?`, commitID,
	).Scan(&tr.ID, &tr.CommitID, &priority, &category, &areasJSON,
		&tr.ConflictRisk, &effort, &tr.Reasoning, &tr.Confidence, &tr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no triage result for commit: %s", commitID)
	}
	if err != nil {
		return nil, fmt.Errorf("get triage result: %w", err)
	}

	tr.Priority = models.Priority(priority)
	tr.Category = models.Category(category)
	tr.Effort = models.Effort(effort)
	_ = json.Unmarshal([]byte(areasJSON), &tr.ImpactAreas)
	return tr, nil
}

// --- Commit status ---

// PutCommitStatus records or overwrites the human decision for a commit.
func (s *SQLiteStore) PutCommitStatus(ctx context.Context, cs *models.CommitStatus) error {
	if !models.ValidStatus(cs.Status) {
		return fmt.Errorf("invalid status: %s", cs.Status)
	}
	cs.UpdatedAt = time.Now().UTC()
	if cs.ReviewedAt.IsZero() {
		cs.ReviewedAt = cs.UpdatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commit_status (commit_id, status, reasoning, reviewer, reviewed_at, notes, actual_effort, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (commit_id) DO UPDATE SET
			status=excluded.status, reasoning=excluded.reasoning,
			reviewer=excluded.reviewer, reviewed_at=excluded.reviewed_at,
			notes=excluded.notes, actual_effort=excluded.actual_effort,
			updated_at=excluded.updated_at`,
		cs.CommitID, string(cs.Status), cs.Reasoning, cs.Reviewer,
		cs.ReviewedAt, cs.Notes, string(cs.ActualEffort), cs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put commit status: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCommitStatus(ctx context.Context, commitID string) (*models.CommitStatus, error) {
	cs := &models.CommitStatus{}
	var status, effort string

	err := s.db.QueryRowContext(ctx,
		`SELECT commit_id, status, reasoning, reviewer, reviewed_at, notes, actual_effort, updated_at
		FROM commit_status WHERE commit_id = ?`, commitID,
	).Scan(&cs.CommitID, &status, &cs.Reasoning, &cs.Reviewer,
		&cs.ReviewedAt, &cs.Notes, &effort, &cs.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no status for commit: %s", commitID)
	}
	if err != nil {
		return nil, fmt.Errorf("get commit status: %w", err)
	}

	cs.Status = models.Status(status)
	cs.ActualEffort = models.Effort(effort)
	return cs, nil
}

// BulkUpdateStatus sets the same status on many commits inside one transaction.
func (s *SQLiteStore) BulkUpdateStatus(ctx context.Context, commitIDs []string, status models.Status, reviewer string) (int64, error) {
	if len(commitIDs) == 0 {
		return 0, nil
	}
	if !models.ValidStatus(status) {
		return 0, fmt.Errorf("invalid status: %s", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var n int64
	for _, id := range commitIDs {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO commit_status (commit_id, status, reasoning, reviewer, reviewed_at, notes, actual_effort, updated_at)
			VALUES (?, ?, '', ?, ?, '', '', ?)
			ON CONFLICT (commit_id) DO UPDATE SET
				status=excluded.status, reviewer=excluded.reviewer,
				reviewed_at=excluded.reviewed_at, updated_at=excluded.updated_at`,
			id, string(status), reviewer, now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("bulk update status: %w", err)
		}
		rows, _ := result.RowsAffected()
		n += rows
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return n, nil
}

// --- Adaptation patterns ---

// AppendPattern records a learned adaptation pattern. Patterns are
// append-only: never updated or deleted.
func (s *SQLiteStore) AppendPattern(ctx context.Context, p *models.AdaptationPattern) error {
	if p.ID == "" {
		p.ID = newULID()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO adaptation_patterns (id, commit_hash, type, source_pattern, target_pattern, file_type, context, success, effort, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CommitHash, string(p.Type), p.SourcePattern, p.TargetPattern,
		p.FileType, p.Context, boolToInt(p.Success), string(p.Effort), p.Notes, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append pattern: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListPatterns(ctx context.Context) ([]*models.AdaptationPattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, commit_hash, type, source_pattern, target_pattern, file_type, context, success, effort, notes, created_at
		FROM adaptation_patterns ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []*models.AdaptationPattern
	for rows.Next() {
		p := &models.AdaptationPattern{}
		var pType, effort string
		var success int
		if err := rows.Scan(&p.ID, &p.CommitHash, &pType, &p.SourcePattern, &p.TargetPattern,
			&p.FileType, &p.Context, &success, &effort, &p.Notes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.Type = models.PatternType(pType)
		p.Effort = models.Effort(effort)
		p.Success = success != 0
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
