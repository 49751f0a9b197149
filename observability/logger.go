package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/punchsync/harvest"
	"github.com/hazyhaar/punchsync/idgen"
	"github.com/hazyhaar/punchsync/onboard"
)

// Event types written by this package.
const (
	EventImport = "onboard_import"
	EventRun    = "harvest_run"
)

// BusinessEvent is one row of business_event_logs.
type BusinessEvent struct {
	EventType   string
	ServiceName string
	EntityType  string
	EntityID    string
	RunID       string
	Action      string
	Details     string // optional JSON
	Success     bool
}

// EventLogger writes business events to the ledger database.
type EventLogger struct {
	db     *sql.DB
	newID  idgen.Generator
	now    func() time.Time
	runID  string
	logger *slog.Logger
}

// EventLoggerOption configures an EventLogger.
type EventLoggerOption func(*EventLogger)

// WithEventIDGenerator sets a custom ID generator for event IDs.
func WithEventIDGenerator(gen idgen.Generator) EventLoggerOption {
	return func(l *EventLogger) { l.newID = gen }
}

// WithRunID tags every event with the given run id.
func WithRunID(id string) EventLoggerOption {
	return func(l *EventLogger) { l.runID = id }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EventLoggerOption {
	return func(l *EventLogger) { l.now = now }
}

// WithLogger sets the logger used for write failures.
func WithLogger(logger *slog.Logger) EventLoggerOption {
	return func(l *EventLogger) { l.logger = logger }
}

// NewEventLogger creates a logger backed by db. Init must have been applied.
func NewEventLogger(db *sql.DB, opts ...EventLoggerOption) *EventLogger {
	l := &EventLogger{
		db:     db,
		newID:  idgen.Prefixed("evt_", idgen.Default),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LogEvent inserts one event. The error is returned; callers that must
// not fail on ledger trouble log and continue.
func (l *EventLogger) LogEvent(ctx context.Context, event BusinessEvent) error {
	runID := event.RunID
	if runID == "" {
		runID = l.runID
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO business_event_logs (
			event_id, event_type, service_name, entity_type, entity_id,
			run_id, action, details, success, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		l.newID(), event.EventType, event.ServiceName, event.EntityType, event.EntityID,
		runID, event.Action, event.Details, event.Success, l.now().Unix())
	if err != nil {
		return fmt.Errorf("observability: log %s: %w", event.EventType, err)
	}
	return nil
}

type importDetails struct {
	File        string `json:"file"`
	Environment string `json:"environment,omitempty"`
	Customer    string `json:"customer,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Record implements onboard.Recorder. Failures are logged, never returned,
// so a broken ledger does not turn an import into an error.
func (l *EventLogger) Record(ctx context.Context, ev onboard.Event) error {
	details, _ := json.Marshal(importDetails{
		File:        ev.File,
		Environment: ev.Environment,
		Customer:    ev.Customer,
		Reason:      ev.Reason,
	})
	err := l.LogEvent(ctx, BusinessEvent{
		EventType:   EventImport,
		ServiceName: "tcimport",
		EntityType:  "customer_onboarding",
		EntityID:    ev.DocumentID,
		Action:      string(ev.Outcome),
		Details:     string(details),
		Success:     ev.Outcome != onboard.OutcomeError,
	})
	if err != nil {
		l.logger.Warn("observability: import event dropped", "file", ev.File, "error", err)
	}
	return nil
}

type runDetails struct {
	Discovered    int    `json:"discovered"`
	Retained      int    `json:"retained"`
	WriteFailed   int    `json:"writeFailed,omitempty"`
	Dropped       int    `json:"dropped"`
	Failed        int    `json:"failed"`
	AggregatePath string `json:"aggregatePath,omitempty"`
	Aborted       bool   `json:"aborted,omitempty"`
}

// LogRun records the outcome of one harvest run.
func (l *EventLogger) LogRun(ctx context.Context, s harvest.Summary) error {
	details, err := json.Marshal(runDetails{
		Discovered:    s.Discovered,
		Retained:      s.Retained,
		WriteFailed:   s.WriteFailed,
		Dropped:       s.Dropped,
		Failed:        s.Failed,
		AggregatePath: s.AggregatePath,
		Aborted:       s.Aborted,
	})
	if err != nil {
		return fmt.Errorf("observability: run details: %w", err)
	}
	action := "completed"
	if s.Aborted {
		action = "aborted"
	}
	return l.LogEvent(ctx, BusinessEvent{
		EventType:   EventRun,
		ServiceName: "tcharvest",
		EntityType:  "harvest_run",
		EntityID:    s.RunID,
		RunID:       s.RunID,
		Action:      action,
		Details:     string(details),
		Success:     !s.Aborted,
	})
}

// RetentionConfig specifies per-table retention in days. Zero means no cleanup.
type RetentionConfig struct {
	EventLogsDays int
	MetricsDays   int
}

// KeepDays applies the same retention to every ledger table.
func KeepDays(days int) RetentionConfig {
	return RetentionConfig{EventLogsDays: days, MetricsDays: days}
}

// Cleanup deletes ledger rows older than the retention thresholds.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig, now time.Time) error {
	allowed := map[string]string{
		"business_event_logs": "created_at",
		"metrics_timeseries":  "timestamp",
	}
	targets := []struct {
		table string
		days  int
	}{
		{"business_event_logs", cfg.EventLogsDays},
		{"metrics_timeseries", cfg.MetricsDays},
	}
	for _, t := range targets {
		if t.days <= 0 {
			continue
		}
		column, ok := allowed[t.table]
		if !ok {
			return fmt.Errorf("cleanup: unknown table %s", t.table)
		}
		cutoff := now.AddDate(0, 0, -t.days).Unix()
		q := fmt.Sprintf("DELETE FROM %s WHERE %s < ?", t.table, column)
		if _, err := db.ExecContext(ctx, q, cutoff); err != nil {
			return fmt.Errorf("cleanup %s: %w", t.table, err)
		}
	}
	return nil
}
