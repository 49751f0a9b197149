package rendered

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/punchsync/console"
	"github.com/hazyhaar/punchsync/harvest/internal/browser"
	"github.com/hazyhaar/punchsync/harvest/internal/waitfor"
	"github.com/hazyhaar/punchsync/mockconsole"
)

func TestSessionRef(t *testing.T) {
	m := sessionRef.FindStringSubmatch("/waters/console/manage/punchout_session/open/id/5001")
	if m == nil || m[1] != "5001" {
		t.Fatalf("got %v", m)
	}
	if sessionRef.MatchString("/waters/console/manage/http_request/open/id/1") {
		t.Fatal("transaction link must not parse as a session")
	}
}

func TestLocators_ResponseHasNoGenericFallback(t *testing.T) {
	// WHAT: the generic "pre code" fallback only serves the request slot.
	// WHY: in a two-body modal the first code block is the request; using it
	// for the response would duplicate the request body.
	for _, l := range responseLocators {
		if !l.xpath && l.selector == "pre code" {
			t.Fatal("response locators must not include the generic code block")
		}
	}
	if last := requestLocators[len(requestLocators)-1]; last.xpath || last.selector != "pre code" {
		t.Fatalf("request fallback = %+v", last)
	}
}

func TestLocators_ScopedToModal(t *testing.T) {
	// WHAT: Every xpath that is not the absolute modal path starts at the modal.
	// WHY: a document-wide "//" would reach code blocks on the page behind the dialog.
	for _, locs := range [][]locator{requestLocators, responseLocators} {
		for _, l := range locs {
			if l.xpath && !strings.HasPrefix(l.selector, "/html/") && !strings.HasPrefix(l.selector, ".//") {
				t.Errorf("locator %q escapes the modal", l.selector)
			}
		}
	}
}

// handle stands in for *rod.Element: it remembers the context it is bound to.
type handle struct {
	ctx context.Context
	id  int
}

func (h *handle) Context(ctx context.Context) *handle { return &handle{ctx: ctx, id: h.id} }

func TestAwaitFound_HandleOutlivesWait(t *testing.T) {
	// WHAT: The returned handle is bound to the caller's context, not the capped one.
	// WHY: the capped context is cancelled when the wait returns; a handle
	// still bound to it fails its next click with "context canceled".
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inWait *handle
	calls := 0
	got, err := awaitFound(ctx, waitfor.Poller{Interval: time.Millisecond, MaxAttempts: 5}, time.Minute,
		func(ctx context.Context) (*handle, bool, error) {
			calls++
			if calls < 2 {
				return nil, false, nil
			}
			inWait = &handle{ctx: ctx, id: 7}
			return inWait, true, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if inWait.ctx.Err() == nil {
		t.Fatal("capped wait context still alive after return")
	}
	if got.id != 7 || got.ctx != ctx || got.ctx.Err() != nil {
		t.Fatalf("handle bound to %v (err %v), want caller context", got.ctx, got.ctx.Err())
	}
}

func TestAwaitFound_CapReadsAsTimedOut(t *testing.T) {
	// WHAT: Hitting the element timeout before the poll bound is ErrTimedOut.
	// WHY: callers treat ErrTimedOut as "not there" (no transaction links).
	_, err := awaitFound(context.Background(), waitfor.Poller{Interval: 5 * time.Millisecond, MaxAttempts: 10000}, 20*time.Millisecond,
		func(ctx context.Context) (*handle, bool, error) { return nil, false, nil })
	if !errors.Is(err, waitfor.ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
}

func TestAwaitFound_CallerCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := awaitFound(ctx, waitfor.Poller{Interval: time.Millisecond, MaxAttempts: 5}, time.Minute,
		func(ctx context.Context) (*handle, bool, error) { return nil, false, nil })
	if !errors.Is(err, context.Canceled) || errors.Is(err, waitfor.ErrTimedOut) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNew_RequiresLocation(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error without base url")
	}
}

// TestSource_AgainstMockConsole drives a real Chrome. Opt-in.
func TestSource_AgainstMockConsole(t *testing.T) {
	if os.Getenv("PUNCHSYNC_BROWSER_TEST") != "1" {
		t.Skip("set PUNCHSYNC_BROWSER_TEST=1 to run against a local Chrome")
	}
	fx := mockconsole.DefaultFixture()
	srv := httptest.NewServer(mockconsole.New(fx, nil).Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	src, err := New(ctx, Config{
		BaseURL: srv.URL,
		Realm:   fx.Realm,
		Browser: browser.Config{Headless: true},
		Wait:    waitfor.Poller{Interval: 100 * time.Millisecond, MaxAttempts: 50},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	err = src.Login(ctx, console.Credentials{Username: "demo", Password: "wrong"})
	if !errors.Is(err, console.ErrNotAuthenticated) {
		t.Fatalf("bad credentials: got %v", err)
	}
	// Login clicks elements returned by bounded waits; they must still be usable.
	if err := src.Login(ctx, console.Credentials{Username: fx.Username, Password: fx.Password}); err != nil {
		t.Fatalf("login: %v", err)
	}

	sessions, err := src.ListSessions(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	first := sessions[0]
	if first.ID != "5001" || first.SessionKey != "rh69224039e025d" || first.Environment != "Prod" {
		t.Fatalf("first = %+v", first)
	}

	txs, err := src.Resolve(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 || txs[0].ID != "7223851" {
		t.Fatalf("transactions = %+v", txs)
	}

	bodies, err := src.Extract(ctx, first, txs[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(bodies.Request, "cXML") {
		t.Errorf("request = %q", bodies.Request)
	}

	// Second modal after the first was dismissed.
	bodies, err = src.Extract(ctx, first, txs[1])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(bodies.Response), "{") {
		t.Errorf("response = %q", bodies.Response)
	}

	if err := src.Recover(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}
}
