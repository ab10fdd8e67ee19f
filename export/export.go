// Package export writes batch reports to disk: per-run metric tables, a
// cross-run aggregate stamped with run metadata columns, numeric summary
// statistics, and the pipeline report JSON. The sqlite format routes the
// same data into a queryable database instead of flat files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/tracengine/compute"
	"github.com/louisbranch/tracengine/export/sqlite"
	"github.com/louisbranch/tracengine/pipeline"
	"github.com/louisbranch/tracengine/platform/errors"
)

// Metadata columns stamped onto every exported metrics row. The underscores
// keep them out of summary statistics.
const (
	ColRun     = "__run__"
	ColSubject = "__subject__"
	ColSession = "__session__"
	ColStep    = "__step__"
)

// File stems used inside the output directory.
const (
	aggregateStem = "aggregate_metrics"
	summaryStem   = "summary_stats"
	reportFile    = "pipeline_report.json"
	databaseFile  = "results.db"
)

// Results writes report into dir according to cfg and returns the written
// paths keyed by kind: "run_<run_id>" per run, "aggregate", "summary",
// "database" for the sqlite format, and always "report". Metrics are
// collected from succeeded runs only; failed runs appear in the report with
// their error text.
func Results(ctx context.Context, report *pipeline.Report, dir string, cfg pipeline.ExportConfig) (map[string]string, error) {
	if report == nil {
		return nil, errors.New(errors.CodeStorageError, "nil report")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "create export directory", err)
	}

	exported := make(map[string]string)
	format := cfg.EffectiveFormat()

	if format == pipeline.FormatSQLite {
		path := filepath.Join(dir, databaseFile)
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		if err := store.SaveReport(ctx, report); err != nil {
			return nil, err
		}
		exported["database"] = path
	} else {
		if err := exportTables(report, dir, cfg, format, exported); err != nil {
			return nil, err
		}
	}

	reportPath := filepath.Join(dir, reportFile)
	if err := writeReportJSON(report, reportPath); err != nil {
		return nil, err
	}
	exported["report"] = reportPath
	return exported, nil
}

// exportTables writes the flat-file outputs: per-run tables, the aggregate,
// and its summary statistics.
func exportTables(report *pipeline.Report, dir string, cfg pipeline.ExportConfig, format string, exported map[string]string) error {
	var all []*compute.Table

	for _, run := range report.RunResults {
		if !run.Succeeded() {
			continue
		}
		tables := runMetricTables(run)
		if len(tables) == 0 {
			continue
		}
		if cfg.PerRunEnabled() {
			path := filepath.Join(dir, fmt.Sprintf("%s_metrics.%s", run.RunID, format))
			if err := writeTable(MergeTables(tables...), path, format); err != nil {
				return err
			}
			exported["run_"+run.RunID] = path
		}
		all = append(all, tables...)
	}

	if cfg.AggregateEnabled() && len(all) > 0 {
		aggregate := MergeTables(all...)

		if cfg.SummaryStatsEnabled() {
			path := filepath.Join(dir, summaryStem+"."+format)
			if err := writeTable(SummaryStats(aggregate), path, format); err != nil {
				return err
			}
			exported["summary"] = path
		}

		path := filepath.Join(dir, aggregateStem+"."+format)
		if err := writeTable(aggregate, path, format); err != nil {
			return err
		}
		exported["aggregate"] = path
	}
	return nil
}

// runMetricTables returns one metadata-stamped table per compute step of run
// that produced rows.
func runMetricTables(run pipeline.RunResult) []*compute.Table {
	var tables []*compute.Table
	for _, step := range run.Steps {
		if step.Type != pipeline.StepCompute || step.Metrics.Empty() {
			continue
		}
		tables = append(tables, withRunMeta(step.Metrics, run, step.Name))
	}
	return tables
}

// withRunMeta copies t with the run metadata columns appended.
func withRunMeta(t *compute.Table, run pipeline.RunResult, step string) *compute.Table {
	out := compute.NewTable(append(append([]string(nil), t.Columns...),
		ColRun, ColSubject, ColSession, ColStep)...)
	for _, row := range t.Rows {
		out.AddRow(append(append([]any(nil), row...),
			run.Run, run.Subject, run.Session, step)...)
	}
	return out
}

// MergeTables concatenates tables row-wise. Columns are the union in
// first-seen order; cells absent from a source table are nil.
func MergeTables(tables ...*compute.Table) *compute.Table {
	merged := compute.NewTable()
	seen := make(map[string]int)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, col := range t.Columns {
			if _, ok := seen[col]; !ok {
				seen[col] = len(merged.Columns)
				merged.Columns = append(merged.Columns, col)
			}
		}
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, row := range t.Rows {
			cells := make([]any, len(merged.Columns))
			for j, col := range t.Columns {
				if j < len(row) {
					cells[seen[col]] = row[j]
				}
			}
			merged.AddRow(cells...)
		}
	}
	return merged
}

type stepReport struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	Version         string  `json:"version,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type runReport struct {
	RunID           string       `json:"run_id"`
	Subject         string       `json:"subject"`
	Session         string       `json:"session"`
	Run             string       `json:"run"`
	Success         bool         `json:"success"`
	Error           string       `json:"error,omitempty"`
	DurationSeconds float64      `json:"duration_seconds"`
	Steps           []stepReport `json:"steps"`
}

type batchReport struct {
	ID              string      `json:"id"`
	PipelineName    string      `json:"pipeline_name"`
	StartedAt       time.Time   `json:"started_at"`
	TotalRuns       int         `json:"total_runs"`
	SuccessfulRuns  int         `json:"successful_runs"`
	FailedRuns      int         `json:"failed_runs"`
	SuccessRate     float64     `json:"success_rate"`
	DurationSeconds float64     `json:"duration_seconds"`
	Plan            []string    `json:"plan,omitempty"`
	Runs            []runReport `json:"runs"`
}

// writeReportJSON renders the execution report, one entry per executed run
// with its per-step breakdown.
func writeReportJSON(report *pipeline.Report, path string) error {
	out := batchReport{
		ID:              report.ID.String(),
		PipelineName:    report.PipelineName,
		StartedAt:       report.StartedAt,
		TotalRuns:       report.TotalRuns,
		SuccessfulRuns:  report.SuccessfulRuns,
		FailedRuns:      report.FailedRuns,
		SuccessRate:     report.SuccessRate(),
		DurationSeconds: report.Duration.Seconds(),
		Plan:            report.Plan,
		Runs:            make([]runReport, 0, len(report.RunResults)),
	}
	for _, run := range report.RunResults {
		r := runReport{
			RunID:           run.RunID,
			Subject:         run.Subject,
			Session:         run.Session,
			Run:             run.Run,
			Success:         run.Succeeded(),
			Error:           run.Error,
			DurationSeconds: run.Duration.Seconds(),
			Steps:           make([]stepReport, 0, len(run.Steps)),
		}
		for _, step := range run.Steps {
			r.Steps = append(r.Steps, stepReport{
				Name:            step.Name,
				Type:            string(step.Type),
				Success:         step.Success,
				Message:         step.Message,
				Version:         step.Version,
				DurationSeconds: step.Duration.Seconds(),
			})
		}
		out.Runs = append(out.Runs, r)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.Wrap(errors.CodeStorageError, "encode pipeline report", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(errors.CodeStorageError, "write pipeline report", err)
	}
	return nil
}
