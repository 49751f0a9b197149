// Package observability keeps a SQLite ledger of what the harvester and
// the import loader did: one business event per imported file or run, and
// a handful of counters per run for trend queries.
//
// The ledger lives in its own database so that it never contends with the
// onboarding store. Call Init on the *sql.DB first.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/punchsync/harvest"
	"github.com/hazyhaar/punchsync/idgen"
	"github.com/hazyhaar/punchsync/onboard"
)

// Metric names.
const (
	MetricSessionsDiscovered = "sessions_discovered"
	MetricRecordsRetained    = "records_retained"
	MetricRecordsWriteFailed = "records_write_failed"
	MetricSessionsDropped    = "sessions_dropped"
	MetricSessionsFailed     = "sessions_failed"
	MetricRunDurationMs      = "run_duration_ms"
	MetricFilesImported      = "files_imported"
	MetricFilesSkipped       = "files_skipped"
	MetricFileErrors         = "file_errors"
)

// Metric is one datapoint.
type Metric struct {
	Name      string
	RunID     string
	Timestamp time.Time
	Value     float64
	Unit      string
}

// Metrics writes run datapoints in one transaction per run.
type Metrics struct {
	db    *sql.DB
	newID idgen.Generator
}

// NewMetrics returns a writer over db.
func NewMetrics(db *sql.DB, gen idgen.Generator) *Metrics {
	if gen == nil {
		gen = idgen.Prefixed("met_", idgen.Default)
	}
	return &Metrics{db: db, newID: gen}
}

// Write persists ms atomically.
func (m *Metrics) Write(ctx context.Context, ms []Metric) error {
	if len(ms) == 0 {
		return nil
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("metrics: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO metrics_timeseries (metric_id, metric_name, run_id, timestamp, value, unit) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("metrics: prepare: %w", err)
	}
	defer stmt.Close()

	for _, x := range ms {
		unit := x.Unit
		if unit == "" {
			unit = "count"
		}
		if _, err := stmt.ExecContext(ctx, m.newID(), x.Name, x.RunID, x.Timestamp.Unix(), x.Value, unit); err != nil {
			return fmt.Errorf("metrics: insert %s: %w", x.Name, err)
		}
	}
	return tx.Commit()
}

// RunMetrics turns a harvest summary into datapoints stamped at end.
func RunMetrics(s harvest.Summary, end time.Time) []Metric {
	point := func(name string, v float64, unit string) Metric {
		return Metric{Name: name, RunID: s.RunID, Timestamp: end, Value: v, Unit: unit}
	}
	return []Metric{
		point(MetricSessionsDiscovered, float64(s.Discovered), "count"),
		point(MetricRecordsRetained, float64(s.Retained), "count"),
		point(MetricRecordsWriteFailed, float64(s.WriteFailed), "count"),
		point(MetricSessionsDropped, float64(s.Dropped), "count"),
		point(MetricSessionsFailed, float64(s.Failed), "count"),
		point(MetricRunDurationMs, float64(end.Sub(s.Started).Milliseconds()), "milliseconds"),
	}
}

// ImportMetrics turns a loader result into datapoints.
func ImportMetrics(runID string, r onboard.Result, end time.Time) []Metric {
	point := func(name string, v int) Metric {
		return Metric{Name: name, RunID: runID, Timestamp: end, Value: float64(v), Unit: "count"}
	}
	return []Metric{
		point(MetricFilesImported, r.Imported),
		point(MetricFilesSkipped, r.Skipped),
		point(MetricFileErrors, r.Errors),
	}
}
