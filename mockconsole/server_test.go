package mockconsole

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar}
}

func login(t *testing.T, c *http.Client, base string, fx Fixture) *http.Response {
	t.Helper()
	resp, err := c.PostForm(base+"/waters/console/login", url.Values{
		"username": {fx.Username}, "password": {fx.Password}, "csrf_token": {fx.CSRFToken},
	})
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestLogin_RedirectsToSessions(t *testing.T) {
	fx := DefaultFixture()
	srv := httptest.NewServer(New(fx, nil).Handler())
	defer srv.Close()

	resp := login(t, newClient(t), srv.URL, fx)
	resp.Body.Close()
	if resp.Request.URL.Path != "/waters/console/manage/punchout_session" {
		t.Errorf("final path = %s", resp.Request.URL.Path)
	}
}

func TestLogin_BadPassword(t *testing.T) {
	fx := DefaultFixture()
	srv := httptest.NewServer(New(fx, nil).Handler())
	defer srv.Close()

	fx.Password = "wrong"
	resp := login(t, newClient(t), srv.URL, fx)
	resp.Body.Close()
	if !strings.HasSuffix(resp.Request.URL.Path, "/login") {
		t.Errorf("final path = %s, want login page", resp.Request.URL.Path)
	}
}

func TestListing_RequiresSession(t *testing.T) {
	srv := httptest.NewServer(New(DefaultFixture(), nil).Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/rest/public/1.0/punchout_session/", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestListing_RejectsMissingColumns(t *testing.T) {
	// WHAT: The listing endpoint rejects queries without the column descriptors.
	// WHY: The real endpoint does the same; the client must send them.
	fx := DefaultFixture()
	srv := httptest.NewServer(New(fx, nil).Handler())
	defer srv.Close()
	c := newClient(t)
	login(t, c, srv.URL, fx).Body.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/rest/public/1.0/punchout_session/?realm=waters&length=5", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTransaction_RecordsFetchAndEscapesBody(t *testing.T) {
	fx := DefaultFixture()
	s := New(fx, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	c := newClient(t)
	login(t, c, srv.URL, fx).Body.Close()

	resp, err := c.Get(srv.URL + "/waters/console/manage/http_request/open/id/7223851?parent=punchout_session&parent_id=5001")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `data-data_body="&lt;?xml`) {
		t.Errorf("body container missing or unescaped:\n%s", body)
	}
	if got := s.Fetched(); len(got) != 1 || got[0] != "7223851" {
		t.Errorf("fetched = %v", got)
	}
}
