// Package session owns the browser handle for a batch: it launches Chromium, performs the
// login handshake and opens one conversation per recipient.
package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/locator"
	"github.com/xkilldash9x/courier-cli/internal/wait"
)

// Launcher starts a browser and returns its driver.
type Launcher func(ctx context.Context, headless bool) (browser.Driver, error)

// LoggedIn is visible only once the QR code has been scanned and the chat list rendered.
var LoggedIn = locator.Target{
	Name: "authenticated-marker",
	Strategies: []locator.Strategy{
		{Name: "editable-textbox", Selector: `//div[@role='textbox' and @contenteditable='true']`, By: browser.BySearch},
		{Name: "search-placeholder", Selector: `div[aria-placeholder='Search…']`, By: browser.ByQuery},
		{Name: "search-input-label", Selector: `div[aria-label='Search input textbox']`, By: browser.ByQuery},
	},
}

// Manager is the exclusive owner of one browser session.
type Manager struct {
	cfg    config.SessionConfig
	launch Launcher
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	driver   browser.Driver
	resolver *locator.Resolver

	closeOnce sync.Once
	closeErr  error
}

// NewManager creates an unstarted Manager.
func NewManager(cfg config.SessionConfig, launch Launcher, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		launch: launch,
		logger: logger.Named("session"),
		state:  StateUnstarted,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Driver returns the live driver, or nil before Launch.
func (m *Manager) Driver() browser.Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driver
}

// Resolver returns a locator bound to the live driver, or nil before Launch.
func (m *Manager) Resolver() *locator.Resolver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolver
}

func (m *Manager) transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !CanTransition(m.state, to) {
		return transitionError(m.state, to)
	}
	m.logger.Debug("Session state change", zap.Stringer("from", m.state), zap.Stringer("to", to))
	m.state = to
	return nil
}

// Launch starts the browser with the persistent profile.
func (m *Manager) Launch(ctx context.Context, headless bool) error {
	if s := m.State(); !CanTransition(s, StateAwaitingLogin) {
		return transitionError(s, StateAwaitingLogin)
	}
	drv, err := m.launch(ctx, headless)
	if err != nil {
		if ctx.Err() != nil {
			return wait.Cancelled(ctx.Err())
		}
		return fmt.Errorf("failed to launch browser session: %w", err)
	}

	m.mu.Lock()
	m.driver = drv
	m.resolver = locator.New(drv, m.logger)
	m.mu.Unlock()

	return m.transition(StateAwaitingLogin)
}

// EnsureLoggedIn opens the service root and waits until an authenticated marker appears.
// It returns immediately when the session is already Ready and schemas.ErrLoginTimeout when
// the login ceiling passes without a marker.
func (m *Manager) EnsureLoggedIn(ctx context.Context) error {
	switch s := m.State(); s {
	case StateReady:
		return nil
	case StateAwaitingLogin:
	default:
		return transitionError(s, StateReady)
	}

	drv, resolver := m.Driver(), m.Resolver()
	if err := drv.Navigate(ctx, m.cfg.BaseURL); err != nil {
		if ctx.Err() != nil {
			return wait.Cancelled(ctx.Err())
		}
		return fmt.Errorf("failed to open %s: %w", m.cfg.BaseURL, err)
	}

	m.logger.Info("Waiting for login. Scan the QR code in the browser window if prompted.",
		zap.Duration("timeout", m.cfg.LoginTimeout))
	start := time.Now()

	ok, err := wait.Until(ctx, m.cfg.LoginTimeout, m.cfg.PollInterval, resolver.Present(LoggedIn))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w (waited %s)", schemas.ErrLoginTimeout, m.cfg.LoginTimeout)
	}

	m.logger.Info("Logged in.", zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return m.transition(StateReady)
}

// NavigateToRecipient opens the conversation with r through the click-to-chat deep link.
func (m *Manager) NavigateToRecipient(ctx context.Context, r schemas.Recipient) error {
	if s := m.State(); s != StateReady {
		return fmt.Errorf("%w: cannot navigate while %s", ErrIllegalTransition, s)
	}
	if err := m.Driver().Navigate(ctx, ChatURL(m.cfg.BaseURL, r)); err != nil {
		if ctx.Err() != nil {
			return wait.Cancelled(ctx.Err())
		}
		return fmt.Errorf("failed to open conversation with %s: %w", r, err)
	}
	return nil
}

// Close disposes the browser. Only the first call does any work.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		drv := m.Driver()

		m.mu.Lock()
		m.state = StateClosed
		m.mu.Unlock()

		if drv != nil {
			m.closeErr = drv.Close(ctx)
		}
		m.logger.Info("Session closed.")
	})
	return m.closeErr
}

// ChatURL builds the deep link that opens a conversation with r.
func ChatURL(baseURL string, r schemas.Recipient) string {
	return fmt.Sprintf("%s/send?phone=%s&type=phone_number&app_absent=0",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(r.String()))
}
