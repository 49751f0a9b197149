// CLAUDE:SUMMARY Rendered-console substrate: drives the vendor web console in Chrome via rod (login, table rows, detail modal).
// Package rendered implements console.Source over the vendor's rendered
// web console. It holds one Chrome page for the whole run, re-finds
// session rows by position after every navigation and reads transaction
// bodies from the popup modal.
package rendered

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/punchsync/console"
	"github.com/hazyhaar/punchsync/harvest/internal/browser"
	"github.com/hazyhaar/punchsync/harvest/internal/waitfor"
)

// Selectors for the console pages.
const (
	containerSelector = `table, .session-list, [role="grid"]`
	rowSelector       = `table tbody tr, .session-row`
	transactionLinks  = `td.open a`
)

var sessionRef = regexp.MustCompile(`punchout_session/open/id/(\d+)`)

var (
	// ErrNoRow is returned when a session's row is gone after navigation.
	ErrNoRow = errors.New("rendered: session row not found")
	// ErrNoTransactionLink is returned when the transaction link is not on the page.
	ErrNoTransactionLink = errors.New("rendered: transaction link not found")
)

// Config locates the console and bounds every wait.
type Config struct {
	BaseURL string
	Realm   string
	Browser browser.Config
	Wait    waitfor.Poller
	// ElementTimeout caps each presence wait on top of the poll bound.
	// Default: 10s.
	ElementTimeout time.Duration
}

// Source is the rendered substrate. Not safe for concurrent use.
type Source struct {
	cfg    Config
	br     *browser.Browser
	page   *rod.Page
	logger *slog.Logger
}

// New launches the browser and opens the page used for the whole run.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Source, error) {
	if cfg.BaseURL == "" || cfg.Realm == "" {
		return nil, errors.New("rendered: base url and realm are required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ElementTimeout <= 0 {
		cfg.ElementTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Browser.Logger = logger

	br, err := browser.Launch(ctx, cfg.Browser)
	if err != nil {
		return nil, err
	}
	page, err := br.NewPage(ctx)
	if err != nil {
		br.Close()
		return nil, err
	}
	return &Source{cfg: cfg, br: br, page: page, logger: logger}, nil
}

func (s *Source) consoleURL(path string) string {
	return s.cfg.BaseURL + "/" + s.cfg.Realm + "/console/" + strings.TrimLeft(path, "/")
}

func (s *Source) sessionsPageURL() string {
	return s.consoleURL("manage/punchout_session")
}

// Login fills the sign-in form and submits it. Success means the page
// left the login URL and stayed under the console.
func (s *Source) Login(ctx context.Context, creds console.Credentials) error {
	if err := s.br.Navigate(ctx, s.page, s.consoleURL("login")); err != nil {
		return fmt.Errorf("rendered: login page: %w", err)
	}
	p := s.page.Context(ctx)

	fields := []struct{ selector, value string }{
		{`input[name="username"]`, creds.Username},
		{`input[name="password"]`, creds.Password},
	}
	for _, f := range fields {
		el, err := s.await(ctx, f.selector)
		if err != nil {
			return fmt.Errorf("rendered: login form %s: %w", f.selector, err)
		}
		if err := el.Input(f.value); err != nil {
			return fmt.Errorf("rendered: fill %s: %w", f.selector, err)
		}
	}
	submit, err := s.await(ctx, `button[type="submit"], input[type="submit"]`)
	if err != nil {
		return fmt.Errorf("rendered: login submit: %w", err)
	}

	wait := p.Timeout(s.br.NavigationTimeout()).WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("rendered: login submit: %w", err)
	}
	wait()

	info, err := p.Info()
	if err != nil {
		return fmt.Errorf("rendered: login result: %w", err)
	}
	if !strings.Contains(info.URL, "/console") || strings.Contains(info.URL, "/login") {
		return console.ErrNotAuthenticated
	}
	s.logger.Info("rendered: logged in", "user", creds.Username)
	return nil
}

// ListSessions opens the sessions page, waits for the table and for the
// row count to settle, then reads at most limit rows. A row count that
// never settles is not an error: the last observed rows are used.
func (s *Source) ListSessions(ctx context.Context, limit int) ([]console.SessionSummary, error) {
	if err := s.openList(ctx); err != nil {
		return nil, fmt.Errorf("rendered: list sessions: %w", err)
	}
	rows, err := s.page.Context(ctx).Elements(rowSelector)
	if err != nil {
		return nil, fmt.Errorf("rendered: list sessions: %w", err)
	}

	var out []console.SessionSummary
	for i, row := range rows {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.summaryOf(row, i))
	}
	return out, nil
}

// openList navigates to the sessions page and runs the bounded waits.
func (s *Source) openList(ctx context.Context) error {
	if err := s.br.Navigate(ctx, s.page, s.sessionsPageURL()); err != nil {
		return err
	}
	if _, err := s.await(ctx, containerSelector); err != nil {
		return err
	}
	out, err := s.cfg.Wait.UntilStable(ctx, func(ctx context.Context) (int, error) {
		els, err := s.page.Context(ctx).Elements(rowSelector)
		return len(els), err
	})
	if err != nil {
		return err
	}
	s.logger.Debug("rendered: session rows", "count", out.Count, "state", out.State, "attempts", out.Attempts)
	return nil
}

// summaryOf reads one row: route label in the first cell, session key in
// the second, opaque id from the row link.
func (s *Source) summaryOf(row *rod.Element, i int) console.SessionSummary {
	sum := console.SessionSummary{Position: i}
	cells, _ := row.Elements("td")
	if len(cells) > 0 {
		sum.DisplayRouteLabel = text(cells[0])
	}
	if len(cells) > 1 {
		sum.SessionKey = text(cells[1])
	}
	if sum.DisplayRouteLabel == "" {
		sum.DisplayRouteLabel = "Unknown"
	}
	if sum.SessionKey == "" {
		sum.SessionKey = fmt.Sprintf("session_%d", i+1)
	}
	sum.Environment = console.EnvironmentOf(sum.DisplayRouteLabel, "Unknown")

	if links, err := row.Elements("a"); err == nil {
		for _, a := range links {
			href, err := a.Attribute("href")
			if err != nil || href == nil {
				continue
			}
			if m := sessionRef.FindStringSubmatch(*href); m != nil {
				sum.ID = m[1]
				break
			}
		}
	}
	return sum
}

// Recover navigates back to the sessions list and waits for it.
func (s *Source) Recover(ctx context.Context) error {
	if err := s.openList(ctx); err != nil {
		return fmt.Errorf("rendered: recover: %w", err)
	}
	return nil
}

// Close releases the page and the browser.
func (s *Source) Close() error {
	if s.page != nil {
		s.page.Close()
		s.page = nil
	}
	if s.br != nil {
		return s.br.Close()
	}
	return nil
}

// await polls for the first visible element matching selector.
func (s *Source) await(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := awaitFound(ctx, s.cfg.Wait, s.cfg.ElementTimeout, func(ctx context.Context) (*rod.Element, bool, error) {
		el, err := firstVisible(s.page.Context(ctx), selector)
		return el, el != nil, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", selector, err)
	}
	return el, nil
}

// rebindable is a handle tied to a context, as *rod.Element is.
type rebindable[E any] interface {
	Context(context.Context) E
}

// awaitFound runs a presence wait capped by timeout and returns the found
// handle rebound to ctx: handles found under the capped context would die
// with it. Running out of time before ctx ends reads as waitfor.ErrTimedOut.
func awaitFound[E rebindable[E]](ctx context.Context, wait waitfor.Poller, timeout time.Duration, find func(context.Context) (E, bool, error)) (E, error) {
	capped, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var found E
	_, err := wait.Present(capped, func(ctx context.Context) (bool, error) {
		h, ok, err := find(ctx)
		if err != nil || !ok {
			return false, err
		}
		found = h
		return true, nil
	})
	if err != nil {
		var zero E
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = waitfor.ErrTimedOut
		}
		return zero, err
	}
	return found.Context(ctx), nil
}

func firstVisible(p *rod.Page, selector string) (*rod.Element, error) {
	els, err := p.Elements(selector)
	if err != nil {
		return nil, err
	}
	for _, el := range els {
		if ok, err := el.Visible(); err == nil && ok {
			return el, nil
		}
	}
	return nil, nil
}

func text(el *rod.Element) string {
	t, err := el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(t)
}

var _ console.Source = (*Source)(nil)
var _ console.Authenticator = (*Source)(nil)
