package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// ErrRunNotFound is returned when a run ID is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// Config holds journal configuration
type Config struct {
	Path string

	// Logger receives journal write errors. Defaults to the global logger.
	Logger *zerolog.Logger
}

// Journal records runs and step outcomes in SQLite. It implements
// engine.Observer.
type Journal struct {
	engine.NopObserver

	db       *sql.DB
	path     string
	hostname string
	logger   zerolog.Logger
}

// Open opens the journal at cfg.Path, creating the file and running
// migrations as needed.
func Open(ctx context.Context, cfg Config) (*Journal, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	hostname, _ := os.Hostname()
	j := &Journal{
		path:     cfg.Path,
		hostname: hostname,
		logger:   logger.With().Str("component", "journal").Logger(),
	}

	if err := j.init(ctx); err != nil {
		return nil, err
	}
	if err := j.migrate(); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

// init opens the database connection.
func (j *Journal) init(ctx context.Context) error {
	if j.path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
			return fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", j.path)
	if j.path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// one writer; an in-memory database also exists only on its connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	j.db = db
	return nil
}

// migrate runs the embedded schema migrations.
func (j *Journal) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(j.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// HealthCheck verifies the database is reachable
func (j *Journal) HealthCheck(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// CreateRun inserts a run record
func (j *Journal) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, username, hostname, dry_run, status, step_count, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, query,
		run.ID,
		run.Username,
		run.Hostname,
		run.DryRun,
		run.Status,
		run.StepCount,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun records the final status of a run
func (j *Journal) CompleteRun(ctx context.Context, id string, status RunStatus, failed int, runErr error, completedAt time.Time) error {
	var reason, msg *string
	if runErr != nil {
		text := runErr.Error()
		msg = &text
		if fe, ok := engine.AsFatal(runErr); ok {
			r := string(fe.Reason)
			reason = &r
		}
	}

	query := `
		UPDATE runs
		SET status = ?, failed_count = ?, fatal_reason = ?, error = ?, completed_at = ?
		WHERE id = ?
	`
	res, err := j.db.ExecContext(ctx, query, status, failed, reason, msg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// AddStepResult records the outcome of a step
func (j *Journal) AddStepResult(ctx context.Context, r *StepResult) error {
	query := `
		INSERT INTO step_results (run_id, position, name, isolated, status, reason, duration_ms, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, query,
		r.RunID,
		r.Position,
		r.Name,
		r.Isolated,
		r.Status,
		r.Reason,
		r.Duration.Milliseconds(),
		r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add step result: %w", err)
	}
	return nil
}

const runColumns = `id, username, hostname, dry_run, status, fatal_reason, error, step_count, failed_count, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	err := row.Scan(
		&run.ID,
		&run.Username,
		&run.Hostname,
		&run.DryRun,
		&run.Status,
		&run.FatalReason,
		&run.Error,
		&run.StepCount,
		&run.FailedCount,
		&run.StartedAt,
		&run.CompletedAt,
	)
	return run, err
}

// GetRun retrieves a run and its step results
func (j *Journal) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(j.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Steps, err = j.StepResults(ctx, id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RecentRuns lists the most recent runs, newest first
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY rowid DESC LIMIT ?`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// StepResults lists the step results of a run in execution order
func (j *Journal) StepResults(ctx context.Context, runID string) ([]StepResult, error) {
	query := `
		SELECT run_id, position, name, isolated, status, reason, duration_ms, finished_at
		FROM step_results
		WHERE run_id = ?
		ORDER BY position
	`
	rows, err := j.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step results: %w", err)
	}
	defer rows.Close()

	var results []StepResult
	for rows.Next() {
		var r StepResult
		var ms int64
		if err := rows.Scan(&r.RunID, &r.Position, &r.Name, &r.Isolated, &r.Status, &r.Reason, &ms, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan step result: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were
// removed. Step results go with their run.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM runs
		WHERE id NOT IN (SELECT id FROM runs ORDER BY rowid DESC LIMIT ?)
	`
	res, err := j.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// RunStarted implements engine.Observer.
func (j *Journal) RunStarted(ctx context.Context, rc *engine.RunContext, total int) {
	if rc == nil {
		return
	}
	err := j.CreateRun(ctx, &Run{
		ID:        rc.RunID,
		Username:  rc.Username,
		Hostname:  j.hostname,
		DryRun:    rc.DryRun,
		Status:    RunStatusRunning,
		StepCount: total,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		j.logger.Warn().Err(err).Str("run_id", rc.RunID).Msg("Failed to journal run start")
	}
}

// StepFinished implements engine.Observer.
func (j *Journal) StepFinished(ctx context.Context, rc *engine.RunContext, step engine.StepInfo, out engine.Outcome, elapsed time.Duration) {
	if rc == nil {
		return
	}
	err := j.AddStepResult(ctx, &StepResult{
		RunID:      rc.RunID,
		Position:   step.Index,
		Name:       step.Name,
		Isolated:   step.Isolated,
		Status:     string(out.Status),
		Reason:     out.Reason,
		Duration:   elapsed,
		FinishedAt: time.Now().UTC(),
	})
	if err != nil {
		j.logger.Warn().Err(err).Str("step", step.Name).Msg("Failed to journal step result")
	}
}

// RunFinished implements engine.Observer.
func (j *Journal) RunFinished(ctx context.Context, rc *engine.RunContext, failures *engine.FailureLog, err error) {
	if rc == nil {
		return
	}

	status := RunStatusSuccess
	switch {
	case err != nil:
		status = RunStatusFatal
	case failures.Len() > 0:
		status = RunStatusPartial
	}

	// the run context may already be cancelled after an interrupt
	ctx = context.WithoutCancel(ctx)
	if jerr := j.CompleteRun(ctx, rc.RunID, status, failures.Len(), err, time.Now().UTC()); jerr != nil {
		j.logger.Warn().Err(jerr).Str("run_id", rc.RunID).Msg("Failed to journal run completion")
	}
}
