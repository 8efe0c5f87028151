package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stencilworks/redline/editor"
)

// Schema for the run audit tables. Call Store.Init() or apply manually.
const Schema = `
CREATE TABLE IF NOT EXISTS edit_runs (
	run_id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	total INTEGER NOT NULL,
	applied INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	html_bytes INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edit_runs_created ON edit_runs(created_at);

CREATE TABLE IF NOT EXISTS edit_outcomes (
	run_id TEXT NOT NULL REFERENCES edit_runs(run_id),
	seq INTEGER NOT NULL,
	status TEXT NOT NULL,
	find_text TEXT NOT NULL,
	replace_text TEXT NOT NULL,
	error TEXT,
	snippet TEXT,
	PRIMARY KEY (run_id, seq)
);
`

// NewRunID returns a prefixed unique run identifier.
func NewRunID() string {
	return "run_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RunRecord is one audited engine run.
type RunRecord struct {
	RunID      string        `json:"run_id"`
	Mode       string        `json:"mode"`
	Stats      editor.Stats  `json:"stats"`
	HTMLBytes  int           `json:"html_bytes"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	CreatedAt  int64         `json:"created_at"`
	Outcomes   []Outcome     `json:"outcomes,omitempty"`
}

// Outcome is one per-edit row of a run.
type Outcome struct {
	Seq     int    `json:"seq"`
	Status  string `json:"status"`
	Find    string `json:"find"`
	Replace string `json:"replace"`
	Error   string `json:"error,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Store persists run audits.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a run audit store backed by db.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Init creates the audit tables if they don't exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

// LogRun records a run and its per-edit outcomes. Non-blocking contract:
// errors are logged via slog but do not propagate, so a failing audit
// store never blocks edit application.
func (s *Store) LogRun(ctx context.Context, rec RunRecord, res *editor.ApplicationResult) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("run audit failed", "run_id", rec.RunID, "error", err)
		return
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO edit_runs (run_id, mode, total, applied, failed, html_bytes, duration_ms, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Mode, res.Stats.Total, res.Stats.Applied, res.Stats.Failed,
		rec.HTMLBytes, rec.Duration.Milliseconds(), time.Now().Unix())
	if err != nil {
		s.logger.Error("run audit failed", "run_id", rec.RunID, "error", err)
		return
	}

	seq := 0
	for _, a := range res.AppliedEdits {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO edit_outcomes (run_id, seq, status, find_text, replace_text, snippet)
			VALUES (?,?,?,?,?,?)`,
			rec.RunID, seq, string(a.Status), a.Find, a.Replace, a.FullSentence)
		if err != nil {
			s.logger.Error("run audit failed", "run_id", rec.RunID, "error", err)
			return
		}
		seq++
	}
	for _, f := range res.FailedEdits {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO edit_outcomes (run_id, seq, status, find_text, replace_text, error)
			VALUES (?,?,?,?,?,?)`,
			rec.RunID, seq, string(f.Status), f.Find, f.Replace, f.Error)
		if err != nil {
			s.logger.Error("run audit failed", "run_id", rec.RunID, "error", err)
			return
		}
		seq++
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("run audit failed", "run_id", rec.RunID, "error", err)
	}
}

// ErrRunNotFound is returned by Run for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// Run retrieves a run record with its per-edit outcomes.
func (s *Store) Run(ctx context.Context, runID string) (*RunRecord, error) {
	rec := RunRecord{RunID: runID}
	err := s.db.QueryRowContext(ctx, `
		SELECT mode, total, applied, failed, html_bytes, duration_ms, created_at
		FROM edit_runs WHERE run_id = ?`, runID).
		Scan(&rec.Mode, &rec.Stats.Total, &rec.Stats.Applied, &rec.Stats.Failed,
			&rec.HTMLBytes, &rec.DurationMS, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, status, find_text, replace_text, COALESCE(error, ''), COALESCE(snippet, '')
		FROM edit_outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes %s: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.Seq, &o.Status, &o.Find, &o.Replace, &o.Error, &o.Snippet); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		rec.Outcomes = append(rec.Outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return &rec, nil
}
