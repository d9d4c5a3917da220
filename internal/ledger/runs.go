package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Run is one pipeline invocation.
type Run struct {
	ID           string
	Channel      string
	ProjectDir   string
	Topic        string
	Mode         string
	Status       string
	ErrorType    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Attempt records one stage execution, including its retries.
type Attempt struct {
	RunID        string
	Stage        string
	Status       string
	Attempts     int
	ErrorType    string
	ErrorMessage string
	Duration     time.Duration
	StartedAt    time.Time
}

// Publication records a published video.
type Publication struct {
	RunID       string
	ProjectDir  string
	VideoID     string
	Title       string
	PublishedAt time.Time
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// StartRun inserts a run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if run.Status == "" {
		run.Status = StatusRunning
	}
	err := s.exec(ctx,
		`INSERT INTO runs (id, channel, project_dir, topic, mode, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Channel, run.ProjectDir, run.Topic, run.Mode, run.Status, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the terminal status of a run.
func (s *Store) FinishRun(ctx context.Context, id, status, errorType, errorMessage string, finished time.Time) error {
	err := s.exec(ctx,
		`UPDATE runs SET status = ?, error_type = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status, errorType, errorMessage, formatTime(finished), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordAttempt appends a stage execution.
func (s *Store) RecordAttempt(ctx context.Context, a Attempt) error {
	if a.Attempts <= 0 {
		a.Attempts = 1
	}
	err := s.exec(ctx,
		`INSERT INTO stage_attempts (run_id, stage, status, attempts, error_type, error_message, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Stage, a.Status, a.Attempts, a.ErrorType, a.ErrorMessage, a.Duration.Milliseconds(), formatTime(a.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert stage attempt: %w", err)
	}
	return nil
}

// RecordPublication stores a published video. Re-recording the same video id
// is a no-op.
func (s *Store) RecordPublication(ctx context.Context, p Publication) error {
	err := s.exec(ctx,
		`INSERT INTO publications (run_id, project_dir, video_id, title, published_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(video_id) DO NOTHING`,
		p.RunID, p.ProjectDir, p.VideoID, p.Title, formatTime(p.PublishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert publication: %w", err)
	}
	return nil
}

// RecentRuns lists the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel, project_dir, topic, mode, status, error_type, error_message, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Channel, &run.ProjectDir, &run.Topic, &run.Mode, &run.Status,
			&run.ErrorType, &run.ErrorMessage, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Attempts lists the stage executions of a run in order.
func (s *Store) Attempts(ctx context.Context, runID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, stage, status, attempts, error_type, error_message, duration_ms, started_at
		 FROM stage_attempts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stage attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a       Attempt
			ms      int64
			started string
		)
		if err := rows.Scan(&a.RunID, &a.Stage, &a.Status, &a.Attempts, &a.ErrorType, &a.ErrorMessage, &ms, &started); err != nil {
			return nil, fmt.Errorf("scan stage attempt: %w", err)
		}
		a.StartedAt = parseTime(started)
		a.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, a)
	}
	return out, rows.Err()
}

// Publications lists published videos, newest first.
func (s *Store) Publications(ctx context.Context, limit int) ([]Publication, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, project_dir, video_id, title, published_at FROM publications
		 ORDER BY published_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query publications: %w", err)
	}
	defer rows.Close()

	var out []Publication
	for rows.Next() {
		var (
			p         Publication
			published string
		)
		if err := rows.Scan(&p.RunID, &p.ProjectDir, &p.VideoID, &p.Title, &published); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		p.PublishedAt = parseTime(published)
		out = append(out, p)
	}
	return out, rows.Err()
}
