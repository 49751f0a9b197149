// CLAUDE:SUMMARY Paginated-query console substrate: form login with cookie jar, JSON session listing via gjson, server-rendered detail and transaction fragments.
// Package apisource implements console.Source over the console's HTTP
// endpoints. It talks to the same URLs the web console calls from the
// browser: a DataTables-style listing API for sessions and server-rendered
// fragments for session details and transactions.
package apisource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/punchsync/console"
)

// maxBody caps every response read.
const maxBody = 10 * 1024 * 1024

// Config locates the console.
type Config struct {
	BaseURL   string // e.g. https://portal.tradecentric.com
	Realm     string // e.g. waters
	UserAgent string
	Timeout   time.Duration
}

// Source is the paginated-query substrate. Not safe for concurrent use.
type Source struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
	csrf   string
}

// New creates a Source with its own cookie jar.
func New(cfg Config, logger *slog.Logger) (*Source, error) {
	if cfg.BaseURL == "" || cfg.Realm == "" {
		return nil, errors.New("apisource: base url and realm are required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("apisource: cookie jar: %w", err)
	}
	return &Source{
		cfg:    cfg,
		client: &http.Client{Jar: jar, Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}, nil
}

// consoleURL returns <base>/<realm>/console/<path>.
func (s *Source) consoleURL(path string) string {
	return s.cfg.BaseURL + "/" + s.cfg.Realm + "/console/" + strings.TrimLeft(path, "/")
}

func (s *Source) sessionsPageURL() string {
	return s.consoleURL("manage/punchout_session")
}

// cacheBuster mimics the millisecond "_" parameter jQuery appends.
func (s *Source) cacheBuster() string {
	return strconv.FormatInt(s.now().UnixMilli(), 10)
}

// get performs a GET and returns the body and final URL. Non-2xx
// statuses are errors.
func (s *Source) get(ctx context.Context, rawURL string, q url.Values, header http.Header) ([]byte, *url.URL, error) {
	if len(q) > 0 {
		rawURL += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("apisource: new request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return s.do(req)
}

func (s *Source) do(req *http.Request) ([]byte, *url.URL, error) {
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("apisource: http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, nil, fmt.Errorf("apisource: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.Request.URL, fmt.Errorf("apisource: %s %s: http %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return body, resp.Request.URL, nil
}

// Recover is a no-op: the API substrate holds no navigational state.
func (s *Source) Recover(ctx context.Context) error { return nil }

// Close releases idle connections.
func (s *Source) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

var _ console.Source = (*Source)(nil)
var _ console.Authenticator = (*Source)(nil)
