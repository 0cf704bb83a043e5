// Package history keeps a SQLite ledger of build runs and their phases.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/modbuild/internal/models"
)

// Run is one recorded build run.
type Run struct {
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	Success     bool
	FailedPhase string
	Error       string
	WorkDir     string
	Phases      []Phase
}

// Phase is one recorded phase of a run.
type Phase struct {
	Name      string
	Status    string
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// Store manages the SQLite database holding run history
type Store struct {
	db      *sql.DB
	dbPath  string
	workDir string
}

// NewStore creates a new Store instance and initializes the database.
// ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	wd, _ := os.Getwd()
	store := &Store{db: db, dbPath: dbPath, workDir: wd}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a finished run and its phases in one transaction.
func (s *Store) RecordRun(ctx context.Context, result models.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var failedPhase, errMsg sql.NullString
	if fp := result.FailedPhase(); fp != nil {
		failedPhase = sql.NullString{String: fp.Phase, Valid: true}
	}
	if result.Err != nil {
		errMsg = sql.NullString{String: result.Err.Error(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, started_at, duration_ms, success, failed_phase, error_message, work_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.StartedAt.UnixNano(),
		result.Duration.Milliseconds(),
		result.Succeeded(),
		failedPhase,
		errMsg,
		s.workDir,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, p := range result.Phases {
		var phaseErr sql.NullString
		if p.Error != nil {
			phaseErr = sql.NullString{String: p.Error.Error(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO phases
			(run_id, position, phase, status, started_at, duration_ms, error_message)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			result.RunID, i, p.Phase, p.Status, p.StartedAt.UnixNano(), p.Duration.Milliseconds(), phaseErr,
		)
		if err != nil {
			return fmt.Errorf("insert phase %s: %w", p.Phase, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first, with their phases.
// A non-positive limit returns every run.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT run_id, started_at, duration_ms, success, failed_phase, error_message, work_dir
		FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                         Run
			startedAt, durationMs     int64
			failedPhase, errMsg, wdir sql.NullString
		)
		if err := rows.Scan(&r.RunID, &startedAt, &durationMs, &r.Success, &failedPhase, &errMsg, &wdir); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, startedAt)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.FailedPhase = failedPhase.String
		r.Error = errMsg.String
		r.WorkDir = wdir.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		phases, err := s.phases(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Phases = phases
	}
	return runs, nil
}

func (s *Store) phases(ctx context.Context, runID string) ([]Phase, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phase, status, started_at, duration_ms, error_message
		FROM phases WHERE run_id = ? ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query phases: %w", err)
	}
	defer rows.Close()

	var phases []Phase
	for rows.Next() {
		var (
			p                     Phase
			startedAt, durationMs int64
			errMsg                sql.NullString
		)
		if err := rows.Scan(&p.Name, &p.Status, &startedAt, &durationMs, &errMsg); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		p.StartedAt = time.Unix(0, startedAt)
		p.Duration = time.Duration(durationMs) * time.Millisecond
		p.Error = errMsg.String
		phases = append(phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phases: %w", err)
	}
	return phases, nil
}
