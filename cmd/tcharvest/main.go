// CLAUDE:SUMMARY CLI entry point for tcharvest: one extraction run against the vendor console (api or browser substrate).
// Command tcharvest extracts punch-out session artifacts from the vendor
// console and writes them under the output directory.
//
// Usage:
//
//	tcharvest                               # api substrate, 20 sessions
//	tcharvest -mode browser 50              # rendered console, 50 sessions
//	tcharvest -config harvest.yaml -events data/ledger.db -retention-days 90
//
// Credentials come from TRADECENTRIC_USER / TRADECENTRIC_PASSWORD, falling
// back to the config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hazyhaar/punchsync/artifact"
	"github.com/hazyhaar/punchsync/console"
	"github.com/hazyhaar/punchsync/dbopen"
	"github.com/hazyhaar/punchsync/harvest"
	"github.com/hazyhaar/punchsync/observability"
)

type options struct {
	configPath string
	mode       string
	out        string
	events     string
	keepDays   int
	args       []string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", env("TCHARVEST_CONFIG", ""), "path to harvest YAML config")
	flag.StringVar(&o.mode, "mode", env("TCHARVEST_MODE", "api"), "collection substrate: api or browser")
	flag.StringVar(&o.out, "out", "", "output directory (overrides config)")
	flag.StringVar(&o.events, "events", env("TCHARVEST_EVENTS", ""), "optional SQLite ledger for run events and metrics")
	flag.IntVar(&o.keepDays, "retention-days", 0, "drop ledger rows older than this many days (0 keeps everything)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: tcharvest [flags] [limit]")
		flag.PrintDefaults()
	}
	flag.Parse()
	o.args = flag.Args()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("tcharvest: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	mode, err := harvest.ParseMode(o.mode)
	if err != nil {
		return err
	}
	limit, err := parseLimit(o.args, mode)
	if err != nil {
		flag.Usage()
		return err
	}

	cfg := harvest.DefaultConfig()
	if o.configPath != "" {
		if cfg, err = harvest.LoadConfigFile(o.configPath); err != nil {
			return err
		}
	}
	if o.out != "" {
		cfg.Output.Dir = o.out
	}
	creds := console.Credentials{
		Username: env("TRADECENTRIC_USER", cfg.Console.Username),
		Password: env("TRADECENTRIC_PASSWORD", cfg.Console.Password),
	}
	if creds.Username == "" || creds.Password == "" {
		return errors.New("credentials missing: set TRADECENTRIC_USER and TRADECENTRIC_PASSWORD")
	}

	src, err := harvest.NewSource(ctx, cfg, mode, logger)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	defer src.Close()

	h := harvest.New(src, harvest.Options{
		Limit:       limit,
		Auth:        src,
		Credentials: creds,
		Writer:      artifact.NewWriter(cfg.Output.Dir, cfg.Output.CatalogExt),
		Classifier:  harvest.NewClassifier(harvest.RulesFromConfig(cfg.Rules)),
		Logger:      logger,
	})

	logger.Info("tcharvest: starting", "mode", mode, "limit", limit, "out", cfg.Output.Dir)
	sum, runErr := h.Run(ctx)

	if o.events != "" {
		if err := recordRun(ctx, o.events, sum, o.keepDays); err != nil {
			logger.Warn("tcharvest: ledger", "error", err)
		}
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, harvest.ErrUnrecoverable):
		// Records written before the failure are kept.
		logger.Warn("tcharvest: run aborted", "error", runErr)
	default:
		return runErr
	}

	logger.Info("tcharvest: done",
		"run_id", sum.RunID,
		"discovered", sum.Discovered,
		"retained", sum.Retained,
		"write_failed", sum.WriteFailed,
		"dropped", sum.Dropped,
		"failed", sum.Failed,
		"aggregate", sum.AggregatePath,
		"duration", time.Since(sum.Started).Round(time.Millisecond))
	return nil
}

// parseLimit reads the optional positional session limit.
func parseLimit(args []string, mode harvest.Mode) (int, error) {
	if len(args) == 0 {
		return mode.DefaultLimit(), nil
	}
	if len(args) > 1 {
		return 0, fmt.Errorf("too many arguments: %v", args)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", args[0])
	}
	return n, nil
}

// recordRun appends the run to the ledger database, then applies the
// retention window when keepDays > 0.
func recordRun(ctx context.Context, path string, sum harvest.Summary, keepDays int) error {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := observability.Init(ctx, db); err != nil {
		return err
	}
	if err := observability.NewEventLogger(db).LogRun(ctx, sum); err != nil {
		return err
	}
	now := time.Now()
	if err := observability.NewMetrics(db, nil).Write(ctx, observability.RunMetrics(sum, now)); err != nil {
		return err
	}
	if keepDays <= 0 {
		return nil
	}
	return observability.Cleanup(ctx, db, observability.KeepDays(keepDays), now)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
