// CLAUDE:SUMMARY Launches or attaches to Chrome through rod and hands out stealth pages sized and filtered for console scraping.
// Package browser owns the Chrome process used by the rendered substrate:
// launch (or attach to a remote instance), stealth page creation, viewport,
// user agent and resource blocking. One Browser serves one harvest run.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures the browser.
type Config struct {
	// RemoteURL is the WebSocket control URL of an external Chrome.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string
	// Bin overrides the Chrome binary used by the launcher.
	Bin      string
	Headless bool

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	ViewportWidth  int // default 1920
	ViewportHeight int // default 1080
	UserAgent      string

	// NavigationTimeout bounds every Navigate call. Default: 30s.
	NavigationTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1920
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 1080
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser is a connected Chrome instance.
type Browser struct {
	cfg     Config
	rod     *rod.Browser
	lnch    *launcher.Launcher
	routers []stopper
}

// stopper is a running hijack router.
type stopper interface{ Stop() error }

// Launch starts Chrome (or connects to cfg.RemoteURL) and returns the
// connected handle. The caller must Close it.
func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	cfg.defaults()
	log := cfg.Logger

	var (
		wsURL string
		lnch  *launcher.Launcher
	)
	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		lnch = launcher.New().Context(ctx).Headless(cfg.Headless)
		if cfg.Bin != "" {
			lnch = lnch.Bin(cfg.Bin)
		}
		// Anti-detection flag.
		lnch = lnch.Set("disable-blink-features", "AutomationControlled")

		u, err := lnch.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		log.Info("browser: launched local chrome", "url", wsURL, "headless", cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return &Browser{cfg: cfg, rod: b, lnch: lnch}, nil
}

// NewPage opens a stealth page with the configured viewport, user agent
// and resource blocking applied.
func (b *Browser) NewPage(ctx context.Context) (*rod.Page, error) {
	if b.rod == nil {
		return nil, errors.New("browser: closed")
	}
	page, err := stealth.Page(b.rod)
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  b.cfg.ViewportWidth,
		Height: b.cfg.ViewportHeight,
	})
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: viewport: %w", err)
	}

	if b.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.cfg.UserAgent}); err != nil {
			b.cfg.Logger.Warn("browser: user agent override failed", "error", err)
		}
	}

	if len(b.cfg.ResourceBlocking) > 0 {
		b.routers = append(b.routers, applyResourceBlocking(page, b.cfg.ResourceBlocking))
	}
	return page.Context(ctx), nil
}

// Navigate loads pageURL and waits for the load event, bounded by the
// navigation timeout.
func (b *Browser) Navigate(ctx context.Context, page *rod.Page, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigationTimeout)
	defer cancel()

	p := page.Context(navCtx)
	if err := p.Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", pageURL, err)
	}
	return nil
}

// NavigationTimeout is the bound applied to every navigation.
func (b *Browser) NavigationTimeout() time.Duration { return b.cfg.NavigationTimeout }

// Close stops the hijack routers, disconnects and, for a local launch,
// kills Chrome.
func (b *Browser) Close() error {
	for _, r := range b.routers {
		if err := r.Stop(); err != nil && b.cfg.Logger != nil {
			b.cfg.Logger.Debug("browser: stop hijack router", "error", err)
		}
	}
	b.routers = nil

	var err error
	if b.rod != nil {
		err = b.rod.Close()
		b.rod = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}
