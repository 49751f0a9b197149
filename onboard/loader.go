package onboard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"path/filepath"
	"time"

	"github.com/hazyhaar/punchsync/artifact"
	"github.com/hazyhaar/punchsync/onboard/internal/docstore"
)

// Outcome classifies what happened to one metadata file.
type Outcome string

const (
	OutcomeImported Outcome = "imported"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeError    Outcome = "error"
)

// Event describes the outcome of one metadata file.
type Event struct {
	File        string
	DocumentID  string // empty when the name could not be decoded
	Environment string
	Customer    string
	Outcome     Outcome
	Reason      string
}

// Recorder receives one Event per scanned file.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Result summarizes one Load. Scanned = Processed + Errors and
// Processed = Imported + Skipped.
type Result struct {
	Scanned   int
	Processed int
	Imported  int
	Skipped   int
	Errors    int
	// ByEnvironment counts imported documents per normalized environment.
	ByEnvironment map[string]int
}

// Options configures a Loader.
type Options struct {
	CatalogExt string // default artifact.DefaultCatalogExt
	Recorder   Recorder
	Logger     *slog.Logger
	Now        func() time.Time
}

// Loader imports artifact directories into a Store.
type Loader struct {
	store  docstore.Store
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader creates a Loader writing to store.
func NewLoader(store Store, opts Options) *Loader {
	l := &Loader{store: store, opts: opts, logger: opts.Logger, now: opts.Now}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Load imports every session metadata file of dir, in lexical order.
// Per-file problems are counted, never fatal. The only errors returned
// are ErrNoArtifactDir, a scan failure and context cancellation; the
// Result is valid in every case.
func (l *Loader) Load(ctx context.Context, dir string) (Result, error) {
	tally := map[string]int{}
	var res Result
	finish := func(err error) (Result, error) {
		res.ByEnvironment = maps.Clone(tally)
		return res, err
	}

	entries, err := artifact.Scan(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return finish(fmt.Errorf("%w: %s", ErrNoArtifactDir, dir))
		}
		return finish(fmt.Errorf("onboard: %w", err))
	}
	l.logger.Info("onboard: metadata files found", "dir", dir, "count", len(entries))

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		res.Scanned++
		ev := l.importOne(ctx, e)
		switch ev.Outcome {
		case OutcomeImported:
			res.Processed++
			res.Imported++
			tally[ev.Environment]++
		case OutcomeSkipped:
			res.Processed++
			res.Skipped++
		default:
			res.Errors++
		}
		l.record(ctx, ev)
	}

	l.logger.Info("onboard: import finished",
		"scanned", res.Scanned,
		"imported", res.Imported,
		"skipped", res.Skipped,
		"errors", res.Errors)
	return finish(nil)
}

// importOne decides the outcome of one metadata file.
func (l *Loader) importOne(ctx context.Context, e artifact.Entry) Event {
	ev := Event{File: filepath.Base(e.Path), Outcome: OutcomeError}
	log := l.logger.With("file", ev.File)
	if e.Err != nil {
		ev.Reason = e.Err.Error()
		log.Warn("onboard: malformed file name")
		return ev
	}
	ev.Customer = e.Name.Customer

	contents, err := e.Read(l.opts.CatalogExt)
	if err != nil {
		ev.Reason = err.Error()
		log.Warn("onboard: read artifacts", "error", err)
		return ev
	}
	doc := BuildDocument(e.Name, contents, l.now())
	ev.DocumentID = doc.ID
	ev.Environment = doc.Environment
	log = log.With("id", doc.ID)

	exists, err := l.store.Exists(ctx, doc.ID)
	if err != nil {
		ev.Reason = err.Error()
		log.Error("onboard: existence check", "error", err)
		return ev
	}
	if exists {
		ev.Outcome, ev.Reason = OutcomeSkipped, "already exists"
		log.Info("onboard: skipped, already exists")
		return ev
	}

	if err := l.store.Insert(ctx, doc); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			ev.Outcome, ev.Reason = OutcomeSkipped, "duplicate key"
			log.Info("onboard: skipped, duplicate key")
			return ev
		}
		ev.Reason = err.Error()
		log.Error("onboard: insert", "error", err)
		return ev
	}
	ev.Outcome = OutcomeImported
	log.Info("onboard: imported", "environment", doc.Environment, "customer", doc.CustomerName)
	return ev
}

func (l *Loader) record(ctx context.Context, ev Event) {
	if l.opts.Recorder == nil {
		return
	}
	if err := l.opts.Recorder.Record(ctx, ev); err != nil {
		l.logger.Warn("onboard: record event", "file", ev.File, "error", err)
	}
}
