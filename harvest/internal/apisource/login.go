package apisource

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hazyhaar/punchsync/console"
	"github.com/hazyhaar/punchsync/harvest/internal/markup"
)

// Login submits the console sign-in form, carrying over its hidden fields
// and submit control, then visits the sessions page to establish context
// and pick up the CSRF token. The console signals success by redirecting
// away from the login page.
func (s *Source) Login(ctx context.Context, creds console.Credentials) error {
	loginURL := s.consoleURL("login")
	page, _, err := s.get(ctx, loginURL, nil, nil)
	if err != nil {
		return fmt.Errorf("apisource: login page: %w", err)
	}

	values := url.Values{
		"username": {creds.Username},
		"password": {creds.Password},
	}
	submitURL := loginURL
	if doc, err := markup.Parse(bytes.NewReader(page)); err == nil {
		if form, err := markup.FindLoginForm(doc); err == nil {
			values = form.Values(creds.Username, creds.Password)
			submitURL = s.resolveAction(form.Action, loginURL)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("apisource: login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, final, err := s.do(req)
	if err != nil {
		return fmt.Errorf("apisource: login submit: %w", err)
	}
	if final == nil || !strings.Contains(final.Path, "/console") || strings.Contains(final.Path, "/login") {
		return console.ErrNotAuthenticated
	}
	s.logger.Info("apisource: logged in", "user", creds.Username)

	sessions, _, err := s.get(ctx, s.sessionsPageURL(), nil, nil)
	if err != nil {
		return fmt.Errorf("apisource: sessions page: %w", err)
	}
	if doc, err := markup.Parse(bytes.NewReader(sessions)); err == nil {
		s.csrf = markup.CSRFToken(doc)
	}
	if s.csrf == "" {
		s.logger.Debug("apisource: no csrf token on sessions page")
	}
	return nil
}

// resolveAction turns a form action into an absolute URL. Relative
// actions are taken relative to the realm's console root, with a leading
// "console/" dropped.
func (s *Source) resolveAction(action, fallback string) string {
	if action == "" {
		return fallback
	}
	if strings.HasPrefix(action, "http://") || strings.HasPrefix(action, "https://") {
		return action
	}
	clean := strings.TrimLeft(action, "/")
	clean = strings.TrimPrefix(clean, s.cfg.Realm+"/")
	clean = strings.TrimPrefix(clean, "console/")
	return s.consoleURL(clean)
}
