package apisource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hazyhaar/punchsync/console"
)

// listingPath is the DataTables endpoint behind the sessions page.
const listingPath = "/api/rest/public/1.0/punchout_session/"

// listingColumns are the column descriptors the endpoint expects, in order.
var listingColumns = []struct {
	data      string
	orderable bool
}{
	{"session_key", true},
	{"punchin", true},
	{"operation", true},
	{"contact", false},
	{"catalog", true},
	{"environment", true},
	{"doc_flag", false},
	{"datemark", true},
	{"actions", false},
}

// listingQuery builds the query for one page of limit sessions.
func (s *Source) listingQuery(limit int) url.Values {
	q := url.Values{
		"realm":         {s.cfg.Realm},
		"draw":          {"1"},
		"start":         {"0"},
		"length":        {strconv.Itoa(limit)},
		"search[value]": {""},
		"search[regex]": {"false"},
		"_":             {s.cacheBuster()},
	}
	for i, c := range listingColumns {
		p := "columns[" + strconv.Itoa(i) + "]"
		q[p+"[data]"] = []string{c.data}
		q[p+"[name]"] = []string{""}
		q[p+"[searchable]"] = []string{"true"}
		q[p+"[orderable]"] = []string{strconv.FormatBool(c.orderable)}
		q[p+"[search][value]"] = []string{""}
		q[p+"[search][regex]"] = []string{"false"}
	}
	return q
}

// ListSessions issues one listing request for limit rows. The row list is
// read from "items", else "data". Rows without an id are dropped.
func (s *Source) ListSessions(ctx context.Context, limit int) ([]console.SessionSummary, error) {
	header := http.Header{}
	header.Set("X-Requested-With", "XMLHttpRequest")
	header.Set("Accept", "application/json")
	header.Set("Referer", s.sessionsPageURL())
	if s.csrf != "" {
		header.Set("X-CSRF-Token", s.csrf)
	}

	body, _, err := s.get(ctx, s.cfg.BaseURL+listingPath, s.listingQuery(limit), header)
	if err != nil {
		return nil, fmt.Errorf("apisource: list sessions: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("apisource: list sessions: response is not JSON")
	}

	root := gjson.ParseBytes(body)
	rows := root.Get("items")
	if !rows.Exists() {
		rows = root.Get("data")
	}
	s.logger.Debug("apisource: listing",
		"records_total", root.Get("recordsTotal").String(),
		"records_filtered", root.Get("recordsFiltered").String(),
		"rows", len(rows.Array()))

	var out []console.SessionSummary
	for i, row := range rows.Array() {
		sum, ok := sessionFromRow(row, i)
		if !ok {
			s.logger.Debug("apisource: listing row without id", "position", i)
			continue
		}
		out = append(out, sum)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// sessionFromRow maps one listing row. The opaque id comes from id,
// session_id or DT_RowId (minus its "row_" prefix).
func sessionFromRow(row gjson.Result, i int) (console.SessionSummary, bool) {
	id := row.Get("id").String()
	if id == "" {
		id = row.Get("session_id").String()
	}
	if id == "" {
		id = strings.TrimPrefix(row.Get("DT_RowId").String(), "row_")
	}
	if id == "" {
		return console.SessionSummary{}, false
	}
	return console.SessionSummary{
		Position:          i,
		SessionKey:        orDefault(row.Get("session_key").String(), "session_"+strconv.Itoa(i+1)),
		DisplayRouteLabel: orDefault(row.Get("catalog").String(), "Unknown"),
		Environment:       orDefault(row.Get("environment").String(), "Unknown"),
		ID:                id,
	}, true
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}
