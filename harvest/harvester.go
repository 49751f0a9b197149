// CLAUDE:SUMMARY Harvester run loop: authenticate, list sessions, resolve and classify transactions, extract and shape-check bodies, persist records.
// Package harvest extracts punch-out session artifacts from the vendor
// console and persists them as files.
//
// A run is strictly sequential: one session at a time, one transaction at
// a time, against a single console.Source. Per session, transactions are
// classified by target URI; bodies are fetched only while a matching role
// is still unfilled, and shape-checked before they fill a slot. Sessions
// with no accepted body are dropped. Retained records are written as soon
// as they are assembled, and an aggregate file closes the run.
//
// Usage:
//
//	src, _ := harvest.NewSource(ctx, cfg, harvest.ModeAPI, logger)
//	defer src.Close()
//	h := harvest.New(src, harvest.Options{Limit: 20, Writer: w, Auth: src})
//	summary, err := h.Run(ctx)
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/punchsync/artifact"
	"github.com/hazyhaar/punchsync/console"
	"github.com/hazyhaar/punchsync/idgen"
)

var (
	// ErrAuth is returned when the console refuses the credentials. Fatal.
	ErrAuth = errors.New("harvest: authentication failed")
	// ErrUnrecoverable is returned when the source could not be brought
	// back to a known state after a session failure. Records written
	// before the failure are kept and the aggregate is still written.
	ErrUnrecoverable = errors.New("harvest: source unrecoverable")
)

// Options configures a Harvester.
type Options struct {
	Limit       int
	Auth        console.Authenticator // nil = source needs no login
	Credentials console.Credentials
	Writer      *artifact.Writer // required
	Classifier  *Classifier      // nil = DefaultRules
	Shapes      []ShapeRule      // nil = DefaultShapes
	Logger      *slog.Logger
	Now         func() time.Time
	NewRunID    idgen.Generator
}

// Summary reports the outcome of one run. Every discovered session ends
// up in exactly one of Retained, WriteFailed, Dropped and Failed, unless
// the run was aborted first.
type Summary struct {
	RunID      string
	Started    time.Time
	Discovered int
	Retained   int
	// WriteFailed counts assembled records whose files could not be
	// written. They are still in Records and in the aggregate.
	WriteFailed   int
	Dropped       int
	Failed        int
	Records       []artifact.SessionRecord
	AggregatePath string
	Aborted       bool
}

// Harvester drives a console.Source through one extraction run.
type Harvester struct {
	src      console.Source
	opts     Options
	classify *Classifier
	shapes   []ShapeRule
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Harvester over src.
func New(src console.Source, opts Options) *Harvester {
	h := &Harvester{
		src:      src,
		opts:     opts,
		classify: opts.Classifier,
		shapes:   opts.Shapes,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if h.classify == nil {
		h.classify = NewClassifier(nil)
	}
	if h.shapes == nil {
		h.shapes = DefaultShapes
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.opts.NewRunID == nil {
		h.opts.NewRunID = idgen.Prefixed("run_", idgen.Default)
	}
	return h
}

// Run executes one extraction run. A nil error means the run completed,
// possibly with failed or dropped sessions. ErrAuth means nothing was
// attempted. ErrUnrecoverable means the run stopped early; the returned
// Summary still describes what was persisted.
func (h *Harvester) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: h.opts.NewRunID(), Started: h.now()}
	log := h.logger.With("run_id", sum.RunID)

	if h.opts.Auth != nil {
		if err := h.opts.Auth.Login(ctx, h.opts.Credentials); err != nil {
			log.Error("harvest: login failed", "error", err)
			return sum, fmt.Errorf("%w: %w", ErrAuth, err)
		}
		log.Info("harvest: authenticated")
	}

	sessions, err := h.src.ListSessions(ctx, h.opts.Limit)
	if err != nil {
		log.Error("harvest: list sessions", "error", err)
		return sum, nil
	}
	sum.Discovered = len(sessions)
	log.Info("harvest: sessions discovered", "count", len(sessions), "limit", h.opts.Limit)
	if len(sessions) == 0 {
		return sum, nil
	}

	var runErr error
	for i, s := range sessions {
		if ctx.Err() != nil {
			sum.Aborted = true
			runErr = ctx.Err()
			break
		}
		sessLog := log.With("session", s.SessionKey, "route", s.DisplayRouteLabel, "position", i+1)

		rec, ok, err := h.session(ctx, s, sessLog)
		if err != nil {
			sum.Failed++
			sessLog.Warn("harvest: session failed", "error", err)
			if rerr := h.src.Recover(ctx); rerr != nil {
				sessLog.Error("harvest: recovery failed", "error", rerr)
				sum.Aborted = true
				runErr = fmt.Errorf("%w: %w", ErrUnrecoverable, rerr)
				break
			}
			continue
		}
		if !ok {
			sum.Dropped++
			sessLog.Info("harvest: session dropped, no accepted body")
			continue
		}

		sum.Records = append(sum.Records, rec)
		if _, err := h.opts.Writer.Write(rec); err != nil {
			sum.WriteFailed++
			sessLog.Error("harvest: write record", "session_id", rec.SessionID, "error", err)
			continue
		}
		sum.Retained++
		sessLog.Info("harvest: record retained",
			"session_id", rec.SessionID,
			"environment", rec.Environment,
			"catalog_bytes", len(rec.CatalogBody),
			"payload_bytes", len(rec.PayloadBody),
			"payload_keys", payloadKeys(rec.PayloadBody, 10),
		)
	}

	path, err := h.opts.Writer.WriteAggregate(sum.Records, sum.Started)
	if err != nil {
		log.Error("harvest: write aggregate", "error", err)
		return sum, errors.Join(runErr, err)
	}
	sum.AggregatePath = path

	log.Info("harvest: run finished",
		"discovered", sum.Discovered,
		"retained", sum.Retained,
		"write_failed", sum.WriteFailed,
		"dropped", sum.Dropped,
		"failed", sum.Failed,
		"aborted", sum.Aborted,
		"aggregate", path,
	)
	return sum, runErr
}

// session resolves one session and fills its catalog and payload slots.
// A non-nil error means the session failed as a whole (resolution or
// cancellation); per-transaction extraction errors are logged and skipped.
func (h *Harvester) session(ctx context.Context, s console.SessionSummary, log *slog.Logger) (artifact.SessionRecord, bool, error) {
	txs, err := h.src.Resolve(ctx, s)
	if err != nil {
		return artifact.SessionRecord{}, false, fmt.Errorf("resolve: %w", err)
	}
	log.Debug("harvest: transactions resolved", "count", len(txs))

	filled := map[Role]string{}
	for _, tx := range txs {
		need := h.unfilled(h.classify.Classify(tx.TargetURI), filled)
		if need == 0 {
			continue
		}
		bodies, err := h.src.Extract(ctx, s, tx)
		if err != nil {
			if ctx.Err() != nil {
				return artifact.SessionRecord{}, false, ctx.Err()
			}
			log.Warn("harvest: extract transaction", "tx", tx.ID, "uri", tx.TargetURI, "error", err)
			continue
		}
		for _, rule := range h.shapes {
			if !need.Has(rule.Role) {
				continue
			}
			if body, ok := rule.Pick(bodies); ok {
				filled[rule.Role] = body
				log.Debug("harvest: slot filled", "role", rule.Role.String(), "tx", tx.ID, "bytes", len(body))
			} else {
				log.Debug("harvest: shape rejected", "role", rule.Role.String(), "tx", tx.ID)
			}
		}
		if h.unfilled(RoleCatalog|RolePayload, filled) == 0 {
			break
		}
	}

	rec, ok := Assemble(s, filled[RoleCatalog], filled[RolePayload], h.now())
	return rec, ok, nil
}

// unfilled returns the roles of want whose slot is still empty.
func (h *Harvester) unfilled(want Role, filled map[Role]string) Role {
	for _, r := range []Role{RoleCatalog, RolePayload} {
		if filled[r] != "" {
			want &^= r
		}
	}
	return want
}
