// CLAUDE:SUMMARY Chi-routed fake vendor console: form login, sessions page, DataTables listing API, session detail and transaction fragments with modal JS.
// Package mockconsole serves a small fake of the vendor console for tests
// and offline development. It implements the pages and endpoints both
// collection substrates rely on, backed by an in-memory Fixture.
package mockconsole

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/punchsync/idgen"
)

const cookieName = "console_session"

// Server is the fake console.
type Server struct {
	fx     Fixture
	logger *slog.Logger
	newID  idgen.Generator

	mu      sync.Mutex
	tokens  map[string]struct{}
	fetched []string // transaction ids served, in order
}

// New creates a Server over fx.
func New(fx Fixture, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if fx.ListKey == "" {
		fx.ListKey = "items"
	}
	return &Server{
		fx:     fx,
		logger: logger,
		newID:  idgen.Default,
		tokens: make(map[string]struct{}),
	}
}

// Handler returns a router with every console route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP registers the console routes on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	base := "/" + s.fx.Realm + "/console"
	r.Get(base+"/login", s.handleLoginPage)
	r.Post(base+"/login", s.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get(base+"/manage/punchout_session", s.handleSessionsPage)
		r.Get(base+"/manage/punchout_session/open/id/{id}", s.handleSessionDetail)
		r.Get(base+"/manage/http_request/open/id/{id}", s.handleTransaction)
		r.Get("/api/rest/public/1.0/punchout_session/", s.handleListing)
	})
}

// Fetched returns the transaction ids served so far, in order.
func (s *Server) Fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(cookieName)
		s.mu.Lock()
		_, ok := s.tokens[cookieValue(c, err)]
		s.mu.Unlock()
		if !ok {
			if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/"+s.fx.Realm+"/console/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func cookieValue(c *http.Cookie, err error) string {
	if err != nil || c == nil {
		return ""
	}
	return c.Value
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, loginTmpl, map[string]any{
		"Realm":  s.fx.Realm,
		"CSRF":   s.fx.CSRFToken,
		"Failed": r.URL.Query().Get("failed") != "",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ok := r.PostForm.Get("username") == s.fx.Username &&
		r.PostForm.Get("password") == s.fx.Password &&
		r.PostForm.Get("csrf_token") == s.fx.CSRFToken
	if !ok {
		s.logger.Info("mockconsole: login rejected", "user", r.PostForm.Get("username"))
		http.Redirect(w, r, "/"+s.fx.Realm+"/console/login?failed=1", http.StatusSeeOther)
		return
	}
	token := s.newID()
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: token, Path: "/", HttpOnly: true})
	http.Redirect(w, r, "/"+s.fx.Realm+"/console/manage/punchout_session", http.StatusSeeOther)
}

func (s *Server) handleSessionsPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, sessionsTmpl, map[string]any{
		"Realm":    s.fx.Realm,
		"CSRF":     s.fx.CSRFToken,
		"Sessions": s.fx.Sessions,
	})
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
		http.Error(w, "ajax only", http.StatusBadRequest)
		return
	}
	if q.Get("realm") != s.fx.Realm || q.Get("columns[8][data]") != "actions" || q.Get("columns[3][orderable]") != "false" {
		http.Error(w, `{"error":"invalid column descriptors"}`, http.StatusBadRequest)
		return
	}
	length, err := strconv.Atoi(q.Get("length"))
	if err != nil || length < 0 {
		http.Error(w, `{"error":"invalid length"}`, http.StatusBadRequest)
		return
	}

	rows := make([]map[string]any, 0, len(s.fx.Sessions))
	for i, sess := range s.fx.Sessions {
		if i >= length {
			break
		}
		rows = append(rows, map[string]any{
			"DT_RowId":    "row_" + sess.ID,
			"session_key": sess.Key,
			"punchin":     "2026-01-01 10:00:00",
			"operation":   "create",
			"catalog":     sess.Label,
			"environment": sess.Environment,
			"datemark":    "2026-01-01",
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"draw":            q.Get("draw"),
		"recordsTotal":    len(s.fx.Sessions),
		"recordsFiltered": len(s.fx.Sessions),
		s.fx.ListKey:      rows,
	})
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.render(w, detailTmpl, map[string]any{"Realm": s.fx.Realm, "Session": sess})
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("parent") != "punchout_session" {
		http.Error(w, "missing parent", http.StatusBadRequest)
		return
	}
	sess, ok := s.session(q.Get("parent_id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	id := chi.URLParam(r, "id")
	for _, tx := range sess.Transactions {
		if tx.ID != id {
			continue
		}
		s.mu.Lock()
		s.fetched = append(s.fetched, id)
		s.mu.Unlock()
		s.render(w, transactionTmpl, map[string]any{"Tx": tx, "Filler": fillerFields})
		return
	}
	http.NotFound(w, r)
}

func (s *Server) session(id string) (Session, bool) {
	for _, sess := range s.fx.Sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return Session{}, false
}

func (s *Server) render(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		s.logger.Error("mockconsole: render", "template", t.Name(), "error", err)
	}
}
