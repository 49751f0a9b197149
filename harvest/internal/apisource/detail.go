package apisource

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/hazyhaar/punchsync/console"
	"github.com/hazyhaar/punchsync/harvest/internal/markup"
)

// Resolve fetches the session detail fragment and returns its transaction
// links in page order.
func (s *Source) Resolve(ctx context.Context, sum console.SessionSummary) ([]console.Transaction, error) {
	body, _, err := s.get(ctx, s.consoleURL("manage/punchout_session/open/id/"+url.PathEscape(sum.ID)), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("apisource: resolve %s: %w", sum.ID, err)
	}
	doc, err := markup.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("apisource: resolve %s: %w", sum.ID, err)
	}
	return markup.Transactions(doc), nil
}

// Extract fetches one transaction fragment and reads its bodies with the
// default strategies.
func (s *Source) Extract(ctx context.Context, sum console.SessionSummary, tx console.Transaction) (console.Bodies, error) {
	q := url.Values{
		"parent":    {"punchout_session"},
		"parent_id": {sum.ID},
		"_":         {s.cacheBuster()},
	}
	body, _, err := s.get(ctx, s.consoleURL("manage/http_request/open/id/"+url.PathEscape(tx.ID)), q, nil)
	if err != nil {
		return console.Bodies{}, fmt.Errorf("apisource: extract %s: %w", tx.ID, err)
	}
	doc, err := markup.Parse(bytes.NewReader(body))
	if err != nil {
		return console.Bodies{}, fmt.Errorf("apisource: extract %s: %w", tx.ID, err)
	}
	bodies, prov := markup.ExtractBodies(doc, markup.DefaultStrategies)
	s.logger.Debug("apisource: bodies", "tx", tx.ID,
		"request_bytes", len(bodies.Request), "request_via", prov.Request,
		"response_bytes", len(bodies.Response), "response_via", prov.Response)
	return bodies, nil
}
