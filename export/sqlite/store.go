// Package sqlite provides a SQLite-backed sink for batch results. One
// database can accumulate many batches; rows are keyed by the report's
// batch id so repeated pipeline executions stay queryable side by side.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/louisbranch/tracengine/compute"
	"github.com/louisbranch/tracengine/export/sqlite/migrations"
	"github.com/louisbranch/tracengine/pipeline"
)

// Sentinel errors returned by store reads and writes.
var (
	// ErrNotFound is returned when a batch id has no stored report.
	ErrNotFound = errors.New("batch not found")
	// ErrAlreadyExists is returned when a batch id was already saved.
	ErrAlreadyExists = errors.New("batch already exists")
)

// Store persists batch reports in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite results store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveReport stores one batch report: the batch summary row, one row per
// executed run, and long-format metric rows for every compute step of the
// succeeded runs. The whole report commits atomically.
func (s *Store) SaveReport(ctx context.Context, report *pipeline.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if report == nil {
		return fmt.Errorf("report is required")
	}
	batchID := report.ID.String()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save report: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	startedAt := report.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO batches (
		   id, pipeline_name, started_at, duration_ms,
		   total_runs, successful_runs, failed_runs
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batchID,
		report.PipelineName,
		toMillis(startedAt),
		report.Duration.Milliseconds(),
		report.TotalRuns,
		report.SuccessfulRuns,
		report.FailedRuns,
	)
	if err != nil {
		if isUniqueViolation(err, "batches.id") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("save batch: %w", err)
	}

	for _, run := range report.RunResults {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO run_results (
			   batch_id, run_id, subject, session, run,
			   state, error, duration_ms
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			batchID,
			run.RunID,
			run.Subject,
			run.Session,
			run.Run,
			string(run.State),
			run.Error,
			run.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("save run result %s: %w", run.RunID, err)
		}
		if !run.Succeeded() {
			continue
		}
		if err := saveRunMetrics(ctx, tx, batchID, run); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save report: %w", err)
	}
	return nil
}

// saveRunMetrics flattens every compute table of one run into long-format
// rows: (step, row index, metric name, rendered text, numeric value when
// the cell is a number).
func saveRunMetrics(ctx context.Context, tx *sql.Tx, batchID string, run pipeline.RunResult) error {
	for _, step := range run.Steps {
		if step.Type != pipeline.StepCompute || step.Metrics.Empty() {
			continue
		}
		t := step.Metrics
		for i, row := range t.Rows {
			for j, col := range t.Columns {
				var cell any
				if j < len(row) {
					cell = row[j]
				}
				var numeric any
				if v, ok := compute.Numeric(cell); ok && !math.IsNaN(v) {
					numeric = v
				}
				_, err := tx.ExecContext(
					ctx,
					`INSERT INTO metrics (
					   batch_id, run_id, step, row_idx, metric,
					   text_value, numeric_value
					 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
					batchID,
					run.RunID,
					step.Name,
					i,
					col,
					compute.FormatCell(cell),
					numeric,
				)
				if err != nil {
					return fmt.Errorf("save metric %s/%s: %w", step.Name, col, err)
				}
			}
		}
	}
	return nil
}

// BatchRecord is one stored batch summary.
type BatchRecord struct {
	ID             string
	PipelineName   string
	StartedAt      time.Time
	Duration       time.Duration
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
}

// Batch returns one stored batch summary by id.
func (s *Store) Batch(ctx context.Context, id string) (BatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return BatchRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return BatchRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, pipeline_name, started_at, duration_ms,
		        total_runs, successful_runs, failed_runs
		   FROM batches
		  WHERE id = ?`,
		id,
	)

	var rec BatchRecord
	var startedAt, durationMS int64
	err := row.Scan(
		&rec.ID,
		&rec.PipelineName,
		&startedAt,
		&durationMS,
		&rec.TotalRuns,
		&rec.SuccessfulRuns,
		&rec.FailedRuns,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BatchRecord{}, ErrNotFound
		}
		return BatchRecord{}, fmt.Errorf("get batch: %w", err)
	}
	rec.StartedAt = fromMillis(startedAt)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

// RunRecord is one stored per-run outcome.
type RunRecord struct {
	RunID    string
	Subject  string
	Session  string
	Run      string
	State    string
	Error    string
	Duration time.Duration
}

// RunResults returns the stored run outcomes of one batch, ordered by run id.
func (s *Store) RunResults(ctx context.Context, batchID string) ([]RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT run_id, subject, session, run, state, error, duration_ms
		   FROM run_results
		  WHERE batch_id = ?
		  ORDER BY run_id ASC`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run results: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var durationMS int64
		if err := rows.Scan(
			&rec.RunID,
			&rec.Subject,
			&rec.Session,
			&rec.Run,
			&rec.State,
			&rec.Error,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("list run results: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list run results: %w", err)
	}
	return records, nil
}

// MetricRecord is one stored metric cell.
type MetricRecord struct {
	RunID  string
	Step   string
	RowIdx int
	Metric string
	Text   string
	// Numeric is nil for non-numeric and missing cells.
	Numeric *float64
}

// Metrics returns the stored metric cells of one batch, ordered by run,
// step, row, and metric name.
func (s *Store) Metrics(ctx context.Context, batchID string) ([]MetricRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT run_id, step, row_idx, metric, text_value, numeric_value
		   FROM metrics
		  WHERE batch_id = ?
		  ORDER BY run_id ASC, step ASC, row_idx ASC, metric ASC`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	var records []MetricRecord
	for rows.Next() {
		var rec MetricRecord
		var numeric sql.NullFloat64
		if err := rows.Scan(
			&rec.RunID,
			&rec.Step,
			&rec.RowIdx,
			&rec.Metric,
			&rec.Text,
			&numeric,
		); err != nil {
			return nil, fmt.Errorf("list metrics: %w", err)
		}
		if numeric.Valid {
			v := numeric.Float64
			rec.Numeric = &v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return records, nil
}

func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, strings.ToLower(constraint))
}
