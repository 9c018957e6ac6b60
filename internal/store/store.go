// Package store persists pipeline jobs and their outputs in SQLite using the
// pure Go modernc.org/sqlite driver, so binaries build with CGO disabled.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/pipeline"
)

// ErrNotFound is returned when a job ID does not exist.
var ErrNotFound = errors.New("job not found")

// Job statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one persisted pipeline run.
type Job struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Issues    []checks.Issue `json:"issues,omitempty"`
	Stats     pipeline.Stats `json:"stats"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store wraps the jobs database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	filename    TEXT NOT NULL,
	from_format TEXT NOT NULL,
	to_format   TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	issues      TEXT NOT NULL DEFAULT '[]',
	stats       TEXT NOT NULL DEFAULT '{}',
	created_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS outputs (
	job_id TEXT PRIMARY KEY REFERENCES jobs(id) ON DELETE CASCADE,
	data   BLOB NOT NULL
);
`

// Open opens (and if needed initializes) a job store at path. Use ":memory:"
// for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent uploads.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init job store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewID returns a fresh job ID.
func NewID() string {
	return uuid.NewString()
}

// SaveResult persists a completed run and its output bytes, returning the job.
func (s *Store) SaveResult(ctx context.Context, id, filename string, res *pipeline.Result) (*Job, error) {
	job := &Job{
		ID:        id,
		Filename:  filename,
		From:      res.From,
		To:        res.To,
		Status:    StatusCompleted,
		Issues:    res.Issues,
		Stats:     res.Stats,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.insertJob(ctx, job, res.Output); err != nil {
		return nil, err
	}
	return job, nil
}

// SaveFailure persists a failed run so the client can inspect what went wrong.
func (s *Store) SaveFailure(ctx context.Context, id, filename, from, to string, runErr error) (*Job, error) {
	job := &Job{
		ID:        id,
		Filename:  filename,
		From:      from,
		To:        to,
		Status:    StatusFailed,
		Error:     runErr.Error(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.insertJob(ctx, job, nil); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Store) insertJob(ctx context.Context, job *Job, output []byte) error {
	issues, err := json.Marshal(job.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}
	stats, err := json.Marshal(job.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO jobs (id, filename, from_format, to_format, status, error, issues, stats, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Filename, job.From, job.To, job.Status, job.Error,
		string(issues), string(stats), job.CreatedAt); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	if output != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO outputs (job_id, data) VALUES (?, ?)`, job.ID, output); err != nil {
			return fmt.Errorf("save output for job %s: %w", job.ID, err)
		}
	}
	return tx.Commit()
}

// Get loads a job by ID.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, from_format, to_format, status, error, issues, stats, created_at
		 FROM jobs WHERE id = ?`, id)

	var job Job
	var issues, stats string
	err := row.Scan(&job.ID, &job.Filename, &job.From, &job.To, &job.Status,
		&job.Error, &issues, &stats, &job.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(issues), &job.Issues); err != nil {
		return nil, fmt.Errorf("decode issues for job %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(stats), &job.Stats); err != nil {
		return nil, fmt.Errorf("decode stats for job %s: %w", id, err)
	}
	return &job, nil
}

// Output loads the serialized output bytes of a completed job.
func (s *Store) Output(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM outputs WHERE job_id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load output for job %s: %w", id, err)
	}
	return data, nil
}

// List returns the most recent jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM jobs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
