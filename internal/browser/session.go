// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser/stealth"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

// Timeouts bound the individual CDP round-trips of a Session.
type Timeouts struct {
	Action     time.Duration
	Navigation time.Duration
	Startup    time.Duration
}

// DefaultTimeouts mirrors the workflow and session defaults.
var DefaultTimeouts = Timeouts{
	Action:     10 * time.Second,
	Navigation: 60 * time.Second,
	Startup:    30 * time.Second,
}

// Session is a single Chromium tab driven over CDP. It owns the browser process and
// releases it exactly once.
type Session struct {
	ctx    context.Context // tab context; carries the chromedp target
	cancel context.CancelFunc

	allocCancel context.CancelFunc

	timeouts Timeouts
	logger   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ Driver = (*Session)(nil)

// Launch starts Chromium with the persistent profile, applies the persona and verifies that
// the tab answers. The process is rooted on a detached context: cancelling ctx aborts the
// launch but shutting the browser down is Close's job.
func Launch(ctx context.Context, cfg config.BrowserConfig, timeouts Timeouts, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("browser")
	if timeouts.Action <= 0 {
		timeouts.Action = DefaultTimeouts.Action
	}
	if timeouts.Navigation <= 0 {
		timeouts.Navigation = DefaultTimeouts.Navigation
	}
	if timeouts.Startup <= 0 {
		timeouts.Startup = DefaultTimeouts.Startup
	}

	logger.Info("Launching browser",
		zap.Bool("headless", cfg.Headless),
		zap.String("user_data_dir", cfg.UserDataDir))

	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), AllocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	s := &Session{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		timeouts:    timeouts,
		logger:      logger,
	}

	// The first Run allocates the browser and must see the undecorated tab context.
	if err := chromedp.Run(tabCtx); err != nil {
		s.release()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, timeouts.Startup)
	defer cancel()
	if err := s.run(startCtx, 0,
		stealth.Apply(stealth.FromConfig(cfg.Persona), logger),
		chromedp.Navigate("about:blank"),
	); err != nil {
		s.release()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	logger.Info("Browser launched and responsive.")
	return s, nil
}

// run executes actions on the tab, bounded by ctx and by timeout (the action timeout when zero).
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = s.timeouts.Action
	}
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	opCtx, cancelOp := context.WithTimeout(runCtx, timeout)
	defer cancelOp()

	err := chromedp.Run(opCtx, actions...)
	if err == nil {
		return nil
	}
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("browser action aborted: %w", ctx.Err())
	case s.ctx.Err() != nil:
		return fmt.Errorf("browser session closed: %w", s.ctx.Err())
	case errors.Is(opCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("browser action timed out after %v: %w", timeout, err)
	}
	return err
}

// -- Driver --

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	if err := s.run(ctx, s.timeouts.Navigation, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Session) Query(ctx context.Context, selector string, by By) ([]Element, error) {
	queryBy := chromedp.ByQueryAll
	if by == BySearch {
		queryBy = chromedp.BySearch
	}

	var nodes []*cdp.Node
	// AtLeast(0) turns the query into a snapshot: it returns at once when nothing matches.
	if err := s.run(ctx, 0, chromedp.Nodes(selector, &nodes, queryBy, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s %q: %w", by, selector, err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, Element{NodeID: n.NodeID, Selector: selector})
	}
	return elements, nil
}

const visibleFn = `function() {
  if (!this.isConnected) return false;
  const style = window.getComputedStyle(this);
  if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
  const rect = this.getBoundingClientRect();
  return rect.width > 0 && rect.height > 0;
}`

const enabledFn = `function() {
  return !this.disabled && this.getAttribute('aria-disabled') !== 'true';
}`

const textFn = `function() { return this.innerText || this.textContent || ''; }`

const clickFn = `function() { this.click(); return true; }`

const ancestorHTMLFn = `function() {
  const anc = this.closest(%s);
  return anc ? anc.innerHTML : '';
}`

// replaceTextFn selects the editor contents and replaces them through insertText, which
// lets rich-text editors observe a single coherent edit. Returns the resulting innerText.
const replaceTextFn = `function() {
  const text = %s;
  this.focus();
  const sel = window.getSelection();
  const range = document.createRange();
  range.selectNodeContents(this);
  sel.removeAllRanges();
  sel.addRange(range);
  sel.deleteFromDocument();
  document.execCommand('insertText', false, text);
  this.dispatchEvent(new InputEvent('input', { bubbles: true, inputType: 'insertText', data: text }));
  return this.innerText || '';
}`

func (s *Session) Visible(ctx context.Context, el Element) (bool, error) {
	var ok bool
	err := s.callOn(ctx, el, visibleFn, &ok)
	return ok, err
}

func (s *Session) Enabled(ctx context.Context, el Element) (bool, error) {
	var ok bool
	err := s.callOn(ctx, el, enabledFn, &ok)
	return ok, err
}

func (s *Session) Text(ctx context.Context, el Element) (string, error) {
	var text string
	err := s.callOn(ctx, el, textFn, &text)
	return text, err
}

func (s *Session) AncestorHTML(ctx context.Context, el Element, ancestor string) (string, error) {
	var html string
	err := s.callOn(ctx, el, fmt.Sprintf(ancestorHTMLFn, jsonEncode(ancestor)), &html)
	return html, err
}

func (s *Session) Click(ctx context.Context, el Element) error {
	if err := s.run(ctx, 0, chromedp.Click([]cdp.NodeID{el.NodeID}, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("click %q: %w", el.Selector, err)
	}
	return nil
}

func (s *Session) JSClick(ctx context.Context, el Element) error {
	var ok bool
	if err := s.callOn(ctx, el, clickFn, &ok); err != nil {
		return fmt.Errorf("script click %q: %w", el.Selector, err)
	}
	return nil
}

func (s *Session) Focus(ctx context.Context, el Element) error {
	err := s.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.Focus().WithNodeID(el.NodeID).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("focus %q: %w", el.Selector, err)
	}
	return nil
}

func (s *Session) ReplaceText(ctx context.Context, el Element, text string) error {
	var after string
	if err := s.callOn(ctx, el, fmt.Sprintf(replaceTextFn, jsonEncode(text)), &after); err != nil {
		return fmt.Errorf("replace text in %q: %w", el.Selector, err)
	}
	return nil
}

func (s *Session) SetFiles(ctx context.Context, el Element, paths []string) error {
	err := s.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.SetFileInputFiles(paths).WithNodeID(el.NodeID).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("set files on %q: %w", el.Selector, err)
	}
	return nil
}

func (s *Session) SendKeys(ctx context.Context, keys string, mods Modifier) error {
	var opts []chromedp.KeyOption
	if m := cdpModifiers(mods); m != 0 {
		opts = append(opts, chromedp.KeyModifiers(m))
	}
	if err := s.run(ctx, 0, chromedp.KeyEvent(keys, opts...)); err != nil {
		return fmt.Errorf("send keys: %w", err)
	}
	return nil
}

func (s *Session) Evaluate(ctx context.Context, script string, res any) error {
	var raw []byte
	err := s.run(ctx, 0, chromedp.Evaluate(script, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return fmt.Errorf("evaluate script: %w", err)
	}
	if res == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("decode script result %s: %w", string(raw), err)
	}
	return nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, 0, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down gracefully, then kills the process if it has not exited
// by the time ctx is done. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser.")
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("failed to close browser gracefully: %w", err)
			}
		case <-ctx.Done():
			s.logger.Warn("Graceful browser shutdown timed out; killing process.", zap.Error(ctx.Err()))
		}
		s.release()
	})
	return s.closeErr
}

func (s *Session) release() {
	s.cancel()
	s.allocCancel()
}

// callOn resolves el to a remote object and calls fn with it bound to this, decoding the
// JSON result into res. A node that was detached since Query fails to resolve.
func (s *Session) callOn(ctx context.Context, el Element, fn string, res any) error {
	return s.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(el.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node %d: %w", el.NodeID, err)
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		ret, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		if res == nil || ret == nil || len(ret.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(ret.Value), res)
	}))
}

func cdpModifiers(mods Modifier) input.Modifier {
	var m input.Modifier
	if mods&ModShift != 0 {
		m |= input.ModifierShift
	}
	if mods&ModCtrl != 0 {
		m |= input.ModifierCtrl
	}
	if mods&ModAlt != 0 {
		m |= input.ModifierAlt
	}
	if mods&ModMeta != 0 {
		m |= input.ModifierMeta
	}
	return m
}

// jsonEncode renders v as a JS literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
