package harvest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/punchsync/console"
	"github.com/hazyhaar/punchsync/harvest/internal/apisource"
	"github.com/hazyhaar/punchsync/harvest/internal/browser"
	"github.com/hazyhaar/punchsync/harvest/internal/rendered"
	"github.com/hazyhaar/punchsync/harvest/internal/waitfor"
)

// Mode selects the collection substrate.
type Mode string

const (
	ModeAPI     Mode = "api"     // paginated HTTP queries
	ModeBrowser Mode = "browser" // rendered console in Chrome
)

// DefaultLimit is the session limit used when none is given.
func (m Mode) DefaultLimit() int {
	if m == ModeBrowser {
		return 25
	}
	return 20
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAPI, ModeBrowser:
		return Mode(s), nil
	}
	return "", fmt.Errorf("harvest: unknown mode %q (want api or browser)", s)
}

// LoginSource is a console.Source that also signs in.
type LoginSource interface {
	console.Source
	console.Authenticator
}

// NewSource builds the substrate for mode from cfg. Browser mode launches
// Chrome immediately; the caller must Close the source on every path.
func NewSource(ctx context.Context, cfg *Config, mode Mode, logger *slog.Logger) (LoginSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		src LoginSource
		err error
	)
	switch mode {
	case ModeAPI:
		src, err = apisource.New(apisource.Config{
			BaseURL:   cfg.Console.BaseURL,
			Realm:     cfg.Console.Realm,
			UserAgent: cfg.Console.UserAgent,
			Timeout:   cfg.Console.RequestTimeout,
		}, logger.With("substrate", "api"))
	case ModeBrowser:
		src, err = rendered.New(ctx, rendered.Config{
			BaseURL: cfg.Console.BaseURL,
			Realm:   cfg.Console.Realm,
			Browser: browser.Config{
				RemoteURL:         cfg.Browser.Remote,
				Bin:               cfg.Browser.Bin,
				Headless:          cfg.Browser.HeadlessEnabled(),
				ResourceBlocking:  cfg.Browser.ResourceBlocking,
				ViewportWidth:     cfg.Browser.ViewportWidth,
				ViewportHeight:    cfg.Browser.ViewportHeight,
				UserAgent:         cfg.Console.UserAgent,
				NavigationTimeout: cfg.Browser.NavigationTimeout,
			},
			Wait:           Poller(cfg.Wait),
			ElementTimeout: cfg.Browser.ElementTimeout,
		}, logger.With("substrate", "browser"))
	default:
		return nil, fmt.Errorf("harvest: unknown mode %q", mode)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Poller converts the wait section into a bounded poller.
func Poller(w WaitConfig) waitfor.Poller {
	return waitfor.Poller{
		Interval:    w.Interval,
		MaxAttempts: w.MaxAttempts,
		Agreements:  w.Agreements,
	}
}
