// Package browser drives the authenticated page session over the Chrome
// DevTools Protocol. It exposes the navigate/evaluate/click/fill/cookie
// primitives every endpoint is built from; the DOM-query scripts themselves
// live in extract.go.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"xlocal/internal/cookies"
)

// ElementError means an expected interactive element never appeared. Page
// structure drift is not self-correcting, so these are never retried.
type ElementError struct {
	What string
}

func (e *ElementError) Error() string { return e.What }

func (e *ElementError) UserFacing() {}

// Options configure one automation session.
type Options struct {
	BaseURL     string
	Visible     bool // show the browser window (2FA, debugging)
	Cookies     []cookies.Record
	NavWait     time.Duration // settle time after navigation, default 900ms
	ScrollPause time.Duration // render wait after a scroll, default 750ms
	Timeout     time.Duration // whole-session budget, default 5m
	Logger      *slog.Logger
}

// Session is one live browser tab plus its cookie context.
type Session struct {
	ctx         context.Context
	cancels     []context.CancelFunc
	base        string
	navWait     time.Duration
	scrollPause time.Duration
	log         *slog.Logger
}

// Open launches the browser, seeds the given cookies into its context and
// returns a ready session. Close must be called when done.
func Open(parent context.Context, opts Options) (*Session, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://x.com"
	}
	if opts.NavWait <= 0 {
		opts.NavWait = 900 * time.Millisecond
	}
	if opts.ScrollPause <= 0 {
		opts.ScrollPause = 750 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	}
	if opts.Visible {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	} else {
		allocOpts = append(allocOpts, chromedp.Headless)
	}

	actx, acancel := chromedp.NewExecAllocator(parent, allocOpts...)

	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(func(string, ...any) {}),
		chromedp.WithDebugf(func(string, ...any) {}),
		chromedp.WithErrorf(func(string, ...any) {}),
	}
	if opts.Logger != nil {
		ctxOpts = []chromedp.ContextOption{
			chromedp.WithLogf(func(f string, a ...any) { opts.Logger.Debug(fmt.Sprintf(f, a...)) }),
			chromedp.WithDebugf(func(f string, a ...any) { opts.Logger.Debug(fmt.Sprintf(f, a...)) }),
			chromedp.WithErrorf(func(f string, a ...any) { opts.Logger.Warn(fmt.Sprintf(f, a...)) }),
		}
	}
	cctx, ccancel := chromedp.NewContext(actx, ctxOpts...)
	cctx, tcancel := context.WithTimeout(cctx, opts.Timeout)

	s := &Session{
		ctx:         cctx,
		cancels:     []context.CancelFunc{tcancel, ccancel, acancel},
		base:        strings.TrimRight(opts.BaseURL, "/"),
		navWait:     opts.NavWait,
		scrollPause: opts.ScrollPause,
		log:         opts.Logger,
	}

	// network domain must be enabled before we can read HttpOnly cookies
	if err := chromedp.Run(cctx, network.Enable()); err != nil {
		s.Close()
		return nil, fmt.Errorf("enable network domain: %w", err)
	}
	if len(opts.Cookies) > 0 {
		if err := s.SetCookies(opts.Cookies); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close tears the browser down.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// Context exposes the tab context for timed waits in callers.
func (s *Session) Context() context.Context { return s.ctx }

// URL builds an absolute URL on the session's base host.
func (s *Session) URL(path string) string { return s.base + path }

// Navigate loads the URL and waits the configured settle interval.
func (s *Session) Navigate(url string) error {
	if err := chromedp.Run(s.ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return s.Wait(s.navWait)
}

// Reload refreshes the current view.
func (s *Session) Reload() error {
	return chromedp.Run(s.ctx, chromedp.Reload())
}

// Wait blocks for d, honoring session cancellation.
func (s *Session) Wait(d time.Duration) error {
	return chromedp.Run(s.ctx, chromedp.Sleep(d))
}

// Location returns the tab's current URL.
func (s *Session) Location() (string, error) {
	var url string
	if err := chromedp.Run(s.ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Evaluate runs a JS expression in the page and decodes the result into out.
func (s *Session) Evaluate(expr string, out any) error {
	return chromedp.Run(s.ctx, chromedp.Evaluate(expr, out))
}

// ScrollBy advances the view by the given pixel delta.
func (s *Session) ScrollBy(px int) error {
	var ignored bool
	return s.Evaluate(fmt.Sprintf("(() => { window.scrollBy(0, %d); return true; })()", px), &ignored)
}

// Advance implements harvest.Advancer: one scroll step of the pagination
// loop. The harvester applies the pause itself.
func (s *Session) Advance(ctx context.Context) error {
	return s.ScrollBy(2200)
}

// Cookies captures the full live cookie jar for the target hosts.
func (s *Session) Cookies() ([]cookies.Record, error) {
	var out []cookies.Record
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cks, err := network.GetCookies().WithURLs([]string{"https://x.com", "https://twitter.com"}).Do(ctx)
		if err != nil {
			return fmt.Errorf("get cookies: %w", err)
		}
		for _, ck := range cks {
			r := cookies.Record{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				Secure:   ck.Secure,
				HTTPOnly: ck.HTTPOnly,
			}
			if ck.Expires > 0 {
				r.Expires = int64(ck.Expires)
			}
			out = append(out, r)
		}
		return nil
	}))
	return out, err
}

// SetCookies seeds records into the browser context.
func (s *Session) SetCookies(recs []cookies.Record) error {
	return chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, r := range recs {
			p := network.SetCookie(r.Name, r.Value).
				WithDomain(r.Domain).
				WithPath(r.Path).
				WithSecure(r.Secure).
				WithHTTPOnly(r.HTTPOnly)
			if r.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(r.Expires, 0))
				p = p.WithExpires(&exp)
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", r.Name, err)
			}
		}
		return nil
	}))
}

// visibleSelector returns the first selector in sels with a visible match.
func (s *Session) visibleSelector(sels ...string) (string, bool) {
	for _, sel := range sels {
		var visible bool
		expr := fmt.Sprintf(
			"(() => { const el = document.querySelector(%q); return !!(el && el.offsetParent !== null); })()", sel)
		if err := s.Evaluate(expr, &visible); err == nil && visible {
			return sel, true
		}
	}
	return "", false
}

// Visible reports whether any of the selectors currently has a visible match.
func (s *Session) Visible(sels ...string) bool {
	_, ok := s.visibleSelector(sels...)
	return ok
}

// ClickFirst clicks the first visible match among the selectors.
func (s *Session) ClickFirst(sels ...string) bool {
	sel, ok := s.visibleSelector(sels...)
	if !ok {
		return false
	}
	if err := chromedp.Run(s.ctx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return false
	}
	return true
}

// ClickByText clicks the first visible selector match whose text contains
// the given fragment. Covers the role/text-addressed buttons the site
// renders without stable test ids.
func (s *Session) ClickByText(sel, text string) bool {
	var clicked bool
	expr := fmt.Sprintf(`(() => {
  const want = %q.toLowerCase();
  for (const el of document.querySelectorAll(%q)) {
    if (el.offsetParent === null) continue;
    if ((el.innerText || "").toLowerCase().includes(want)) { el.click(); return true; }
  }
  return false;
})()`, text, sel)
	if err := s.Evaluate(expr, &clicked); err != nil {
		return false
	}
	return clicked
}

// Type focuses the first visible selector and sends real key events.
func (s *Session) Type(sels []string, text string) error {
	sel, ok := s.visibleSelector(sels...)
	if !ok {
		return &ElementError{What: "input not found: " + strings.Join(sels, ", ")}
	}
	return chromedp.Run(s.ctx,
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	)
}

// TypeEnter types text and submits with Enter.
func (s *Session) TypeEnter(sels []string, text string) error {
	return s.Type(sels, text+kb.Enter)
}

// ClearAndType empties the field first; profile edit fields come pre-filled.
func (s *Session) ClearAndType(sels []string, text string) error {
	sel, ok := s.visibleSelector(sels...)
	if !ok {
		return &ElementError{What: "input not found: " + strings.Join(sels, ", ")}
	}
	var ignored bool
	clear := fmt.Sprintf(`(() => {
  const el = document.querySelector(%q);
  if (!el) return false;
  el.focus();
  if ("value" in el) el.select ? el.select() : el.setSelectionRange(0, (el.value || "").length);
  return true;
})()`, sel)
	if err := s.Evaluate(clear, &ignored); err != nil {
		return err
	}
	return chromedp.Run(s.ctx, chromedp.SendKeys(sel, kb.Delete+text, chromedp.ByQuery))
}

// SetFileInput attaches a local file to the nth input[type=file] on the page.
func (s *Session) SetFileInput(nth int, path string) error {
	var count int
	if err := s.Evaluate(`document.querySelectorAll("input[type='file']").length`, &count); err != nil {
		return err
	}
	if count <= 0 {
		return &ElementError{What: "file upload input not found"}
	}
	if nth >= count {
		nth = count - 1
	}
	jsPath := fmt.Sprintf(`document.querySelectorAll("input[type='file']")[%d]`, nth)
	return chromedp.Run(s.ctx, chromedp.SetUploadFiles(jsPath, []string{path}, chromedp.ByJSPath))
}
