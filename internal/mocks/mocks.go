// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

func (m *MockConfig) Logger() config.LoggerConfig {
	return m.Called().Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	return m.Called().Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Session() config.SessionConfig {
	return m.Called().Get(0).(config.SessionConfig)
}

func (m *MockConfig) Workflow() config.WorkflowConfig {
	return m.Called().Get(0).(config.WorkflowConfig)
}

func (m *MockConfig) Batch() config.BatchConfig {
	return m.Called().Get(0).(config.BatchConfig)
}

func (m *MockConfig) Diagnostics() config.DiagnosticsConfig {
	return m.Called().Get(0).(config.DiagnosticsConfig)
}

func (m *MockConfig) Humanoid() config.HumanoidConfig {
	return m.Called().Get(0).(config.HumanoidConfig)
}

func (m *MockConfig) SetBrowserHeadless(b bool)       { m.Called(b) }
func (m *MockConfig) SetInterSendDelayMs(ms int)      { m.Called(ms) }
func (m *MockConfig) SetLoginTimeout(d time.Duration) { m.Called(d) }

// -- Driver Mock --

// MockDriver mocks browser.Driver for tests that assert on exact call sequences.
type MockDriver struct {
	mock.Mock
}

var _ browser.Driver = (*MockDriver)(nil)

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDriver) Query(ctx context.Context, selector string, by browser.By) ([]browser.Element, error) {
	args := m.Called(ctx, selector, by)
	els, _ := args.Get(0).([]browser.Element)
	return els, args.Error(1)
}

func (m *MockDriver) Visible(ctx context.Context, el browser.Element) (bool, error) {
	args := m.Called(ctx, el)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) Enabled(ctx context.Context, el browser.Element) (bool, error) {
	args := m.Called(ctx, el)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) Text(ctx context.Context, el browser.Element) (string, error) {
	args := m.Called(ctx, el)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) AncestorHTML(ctx context.Context, el browser.Element, ancestor string) (string, error) {
	args := m.Called(ctx, el, ancestor)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Click(ctx context.Context, el browser.Element) error {
	return m.Called(ctx, el).Error(0)
}

func (m *MockDriver) JSClick(ctx context.Context, el browser.Element) error {
	return m.Called(ctx, el).Error(0)
}

func (m *MockDriver) Focus(ctx context.Context, el browser.Element) error {
	return m.Called(ctx, el).Error(0)
}

func (m *MockDriver) ReplaceText(ctx context.Context, el browser.Element, text string) error {
	return m.Called(ctx, el, text).Error(0)
}

func (m *MockDriver) SetFiles(ctx context.Context, el browser.Element, paths []string) error {
	return m.Called(ctx, el, paths).Error(0)
}

func (m *MockDriver) SendKeys(ctx context.Context, keys string, mods browser.Modifier) error {
	return m.Called(ctx, keys, mods).Error(0)
}

func (m *MockDriver) Evaluate(ctx context.Context, script string, res any) error {
	return m.Called(ctx, script, res).Error(0)
}

func (m *MockDriver) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	png, _ := args.Get(0).([]byte)
	return png, args.Error(1)
}

func (m *MockDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
