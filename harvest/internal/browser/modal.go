package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/punchsync/harvest/internal/waitfor"
)

// ModalSelector matches the transaction popup.
const ModalSelector = `.modal, [role="dialog"]`

// CloseSelectors are tried in order to dismiss a modal. Escape is the
// last resort.
var CloseSelectors = []string{
	`button.close`,
	`.modal-close`,
	`[aria-label='Close']`,
	`.modal-header button`,
}

// ErrNoModal is returned when the trigger never produced a visible modal.
var ErrNoModal = errors.New("browser: modal did not open")

// Modal is an open popup. Only valid inside WithModal.
type Modal struct {
	Page    *rod.Page
	Element *rod.Element
}

// HTML returns the modal's outer HTML.
func (m *Modal) HTML() (string, error) {
	return m.Element.HTML()
}

// dismissTimeout bounds the dismissal, which runs even after ctx ended.
const dismissTimeout = 5 * time.Second

// WithModal clicks trigger, waits for a visible modal and runs fn on it.
// The modal is dismissed on every exit path, including fn errors and panics.
func WithModal(ctx context.Context, page *rod.Page, trigger *rod.Element, wait waitfor.Poller, logger *slog.Logger, fn func(*Modal) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	return runModal(ctx, rodModal{page: page, trigger: trigger, logger: logger}, wait, fn)
}

// modalOps is the browser side of a modal's lifecycle.
type modalOps interface {
	open(ctx context.Context) error
	// find returns the visible modal, or nil while there is none.
	find(ctx context.Context) (*Modal, error)
	dismiss(ctx context.Context)
}

func runModal(ctx context.Context, ops modalOps, wait waitfor.Poller, fn func(*Modal) error) error {
	if err := ops.open(ctx); err != nil {
		return fmt.Errorf("browser: open modal: %w", err)
	}
	// From here on the trigger has fired; close whatever it opened.
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dismissTimeout)
		defer cancel()
		ops.dismiss(dctx)
	}()

	var modal *Modal
	_, err := wait.Present(ctx, func(ctx context.Context) (bool, error) {
		m, err := ops.find(ctx)
		if err != nil || m == nil {
			return false, err
		}
		modal = m
		return true, nil
	})
	if err != nil {
		if errors.Is(err, waitfor.ErrTimedOut) {
			return ErrNoModal
		}
		return err
	}
	return fn(modal)
}

type rodModal struct {
	page    *rod.Page
	trigger *rod.Element
	logger  *slog.Logger
}

func (r rodModal) open(ctx context.Context) error {
	return r.trigger.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (r rodModal) find(ctx context.Context) (*Modal, error) {
	el, err := visible(r.page.Context(ctx), ModalSelector)
	if err != nil || el == nil {
		return nil, err
	}
	return &Modal{Page: r.page, Element: el}, nil
}

func (r rodModal) dismiss(ctx context.Context) { dismiss(ctx, r.page, r.logger) }

// visible returns the first element matching selector that is displayed.
func visible(page *rod.Page, selector string) (*rod.Element, error) {
	els, err := page.Elements(selector)
	if err != nil {
		return nil, err
	}
	for _, el := range els {
		ok, err := el.Visible()
		if err == nil && ok {
			return el, nil
		}
	}
	return nil, nil
}

// dismiss clicks the first visible close control, else presses Escape.
func dismiss(ctx context.Context, page *rod.Page, logger *slog.Logger) {
	p := page.Context(ctx)
	for _, sel := range CloseSelectors {
		el, err := visible(p, sel)
		if err != nil || el == nil {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
			return
		}
	}
	if err := p.Keyboard.Type(input.Escape); err != nil {
		logger.Warn("browser: modal dismiss failed", "error", err)
	}
}
