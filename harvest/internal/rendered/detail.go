package rendered

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/punchsync/console"
	"github.com/hazyhaar/punchsync/harvest/internal/browser"
	"github.com/hazyhaar/punchsync/harvest/internal/markup"
	"github.com/hazyhaar/punchsync/harvest/internal/waitfor"
)

// Resolve opens the session from its row, reveals the request list and
// reads the transaction links. A session whose request list never shows
// a link has no transactions.
func (s *Source) Resolve(ctx context.Context, sum console.SessionSummary) ([]console.Transaction, error) {
	if err := s.openList(ctx); err != nil {
		return nil, fmt.Errorf("rendered: resolve %s: %w", sum.SessionKey, err)
	}
	p := s.page.Context(ctx)

	rows, err := p.Elements(rowSelector)
	if err != nil {
		return nil, fmt.Errorf("rendered: resolve %s: %w", sum.SessionKey, err)
	}
	if sum.Position >= len(rows) {
		return nil, fmt.Errorf("rendered: resolve %s: %w", sum.SessionKey, ErrNoRow)
	}
	opens, err := rows[sum.Position].Elements("a, button")
	if err != nil || len(opens) == 0 {
		return nil, fmt.Errorf("rendered: resolve %s: %w", sum.SessionKey, ErrNoRow)
	}
	open := opens[0]
	if err := open.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("rendered: resolve %s: open row: %w", sum.SessionKey, err)
	}

	button, err := s.awaitButton(ctx, "Request")
	if err != nil {
		return nil, fmt.Errorf("rendered: resolve %s: requests button: %w", sum.SessionKey, err)
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("rendered: resolve %s: requests button: %w", sum.SessionKey, err)
	}

	if _, err := s.await(ctx, transactionLinks); err != nil {
		if errors.Is(err, waitfor.ErrTimedOut) {
			s.logger.Debug("rendered: no transaction links", "session", sum.SessionKey)
			return nil, nil
		}
		return nil, fmt.Errorf("rendered: resolve %s: %w", sum.SessionKey, err)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("rendered: resolve %s: %w", sum.SessionKey, err)
	}
	doc, err := markup.ParseString(html)
	if err != nil {
		return nil, fmt.Errorf("rendered: resolve %s: %w", sum.SessionKey, err)
	}
	return markup.Transactions(doc), nil
}

// Extract opens the transaction modal and reads its bodies. The modal is
// dismissed whatever happens.
func (s *Source) Extract(ctx context.Context, sum console.SessionSummary, tx console.Transaction) (console.Bodies, error) {
	link, err := s.transactionLink(ctx, tx.ID)
	if err != nil {
		return console.Bodies{}, fmt.Errorf("rendered: extract %s: %w", tx.ID, err)
	}

	var bodies console.Bodies
	err = browser.WithModal(ctx, s.page, link, s.cfg.Wait, s.logger, func(m *browser.Modal) error {
		html, err := m.HTML()
		if err != nil {
			return err
		}
		doc, err := markup.ParseString(html)
		if err != nil {
			return err
		}
		var prov markup.Provenance
		bodies, prov = markup.ExtractBodies(doc, markup.DefaultStrategies)
		if bodies.Request == "" || bodies.Response == "" {
			fixed := modalBodies(m.Element.Context(ctx))
			if bodies.Request == "" && fixed.Request != "" {
				bodies.Request, prov.Request = fixed.Request, "fixed_path"
			}
			if bodies.Response == "" && fixed.Response != "" {
				bodies.Response, prov.Response = fixed.Response, "fixed_path"
			}
		}
		s.logger.Debug("rendered: bodies", "tx", tx.ID,
			"request_bytes", len(bodies.Request), "request_via", prov.Request,
			"response_bytes", len(bodies.Response), "response_via", prov.Response)
		return nil
	})
	if err != nil {
		return console.Bodies{}, fmt.Errorf("rendered: extract %s: %w", tx.ID, err)
	}
	return bodies, nil
}

// transactionLink finds the open link whose href or onclick names id.
func (s *Source) transactionLink(ctx context.Context, id string) (*rod.Element, error) {
	links, err := s.page.Context(ctx).Elements(transactionLinks)
	if err != nil {
		return nil, err
	}
	for _, a := range links {
		for _, attr := range []string{"href", "onclick"} {
			v, err := a.Attribute(attr)
			if err != nil || v == nil {
				continue
			}
			if got, ok := markup.TransactionID(*v); ok && got == id {
				return a, nil
			}
		}
	}
	return nil, ErrNoTransactionLink
}

// awaitButton polls for a visible button whose text contains label.
func (s *Source) awaitButton(ctx context.Context, label string) (*rod.Element, error) {
	return awaitFound(ctx, s.cfg.Wait, s.cfg.ElementTimeout, func(ctx context.Context) (*rod.Element, bool, error) {
		buttons, err := s.page.Context(ctx).Elements("button")
		if err != nil {
			return nil, false, err
		}
		for _, b := range buttons {
			if !strings.Contains(text(b), label) {
				continue
			}
			if ok, err := b.Visible(); err == nil && ok {
				return b, true, nil
			}
		}
		return nil, false, nil
	})
}
