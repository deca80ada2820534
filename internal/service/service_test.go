package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/messenger/messengertest"
	"github.com/xkilldash9x/courier-cli/internal/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fastConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.SessionCfg.LoginTimeout = time.Second
	cfg.SessionCfg.PollInterval = 5 * time.Millisecond
	cfg.WorkflowCfg.ReadyTimeout = 100 * time.Millisecond
	cfg.WorkflowCfg.AttachMenuTimeout = 50 * time.Millisecond
	cfg.WorkflowCfg.MediaEditorTimeout = 30 * time.Millisecond
	cfg.WorkflowCfg.TextConfirmTimeout = 50 * time.Millisecond
	cfg.WorkflowCfg.AttachConfirmTimeout = 50 * time.Millisecond
	cfg.WorkflowCfg.PostSendPause = 0
	cfg.BatchCfg.InterSendDelayMs = 0
	cfg.DiagnosticsCfg.Dir = "/diag"
	return cfg
}

type launchRecorder struct {
	client   *messengertest.Client
	err      error
	calls    int
	headless []bool
}

func (l *launchRecorder) launch(ctx context.Context, headless bool) (browser.Driver, error) {
	l.calls++
	l.headless = append(l.headless, headless)
	if l.err != nil {
		return nil, l.err
	}
	return l.client.Page, nil
}

func newRunner(t *testing.T, cfg config.Interface, l *launchRecorder, fs afero.Fs) (*Runner, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	factory := NewComponentFactoryWithLauncher(l.launch, fs)
	return NewRunner(factory, cfg, zaptest.NewLogger(t), zap.New(core)), logs
}

func messages(logs *observer.ObservedLogs) []string {
	var out []string
	for _, e := range logs.AllUntimed() {
		out = append(out, e.Message)
	}
	return out
}

func TestSend_MixedBatch(t *testing.T) {
	client := messengertest.New("111", "333")
	l := &launchRecorder{client: client}
	fs := afero.NewMemMapFs()
	r, logs := newRunner(t, fastConfig(), l, fs)

	summary, err := r.Send(context.Background(),
		[]schemas.Recipient{"111", "222", "333"}, schemas.NewMessageJob("hello", nil))

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.NotEmpty(t, summary.RunID)

	lines := messages(logs)
	assert.Contains(t, lines, "[1/3] [OK] Sent to 111")
	assert.Contains(t, lines, "[2/3] [X] Not delivered: 222")
	assert.Contains(t, lines, "[3/3] [OK] Sent to 333")
	assert.Equal(t, "Done. Success: 2, Failed: 1.", lines[len(lines)-1])

	shots, err := afero.Glob(fs, "/diag/222_InvalidRecipient_*.png")
	require.NoError(t, err)
	assert.Len(t, shots, 1)

	assert.Equal(t, 1, l.calls)
	assert.Equal(t, 1, client.Page.Closes, "session is released exactly once")
}

func TestSend_SingleDocument(t *testing.T) {
	client := messengertest.New("111")
	l := &launchRecorder{client: client}
	r, _ := newRunner(t, fastConfig(), l, afero.NewMemMapFs())

	summary, err := r.Send(context.Background(),
		[]schemas.Recipient{"111"}, schemas.NewMessageJob("", []string{"/tmp/report.pdf"}))

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, client.Sent(), 1)
	assert.Equal(t, schemas.AttachmentDocument, client.UploadedAs("/tmp/report.pdf"))
}

func TestSend_LoginTimeout(t *testing.T) {
	client := messengertest.New("111")
	client.LoggedOut = true
	cfg := fastConfig()
	cfg.SessionCfg.LoginTimeout = 50 * time.Millisecond
	l := &launchRecorder{client: client}
	r, logs := newRunner(t, cfg, l, afero.NewMemMapFs())

	summary, err := r.Send(context.Background(), []schemas.Recipient{"111", "222"}, schemas.NewMessageJob("hi", nil))

	require.Error(t, err)
	assert.True(t, errors.Is(err, schemas.ErrLoginTimeout))
	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, []string{"https://web.whatsapp.com/"}, client.Page.Navigations, "no recipient is opened")
	assert.Empty(t, messages(logs))
	assert.Equal(t, 1, client.Page.Closes)
}

func TestSend_Cancelled(t *testing.T) {
	client := messengertest.New("111", "222")
	cfg := fastConfig()
	cfg.BatchCfg.InterSendDelayMs = 60000
	l := &launchRecorder{client: client}
	r, logs := newRunner(t, cfg, l, afero.NewMemMapFs())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(150*time.Millisecond, cancel)

	summary, err := r.Send(ctx, []schemas.Recipient{"111", "222"}, schemas.NewMessageJob("hi", nil))

	require.Error(t, err)
	assert.True(t, errors.Is(err, schemas.ErrCancelled))
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	lines := messages(logs)
	assert.Equal(t, "Done. Success: 1, Failed: 0. Stopped early after 1 of 2.", lines[len(lines)-1])
	assert.Equal(t, 1, client.Page.Closes)
}

func TestSend_Preconditions(t *testing.T) {
	l := &launchRecorder{client: messengertest.New()}
	r, _ := newRunner(t, fastConfig(), l, afero.NewMemMapFs())

	_, err := r.Send(context.Background(), []schemas.Recipient{"111"}, schemas.NewMessageJob("  ", nil))
	assert.True(t, errors.Is(err, schemas.ErrEmptyJob))

	_, err = r.Send(context.Background(), nil, schemas.NewMessageJob("hi", nil))
	assert.True(t, errors.Is(err, schemas.ErrNoRecipients))

	assert.Zero(t, l.calls, "nothing is launched for an invalid request")
}

func TestSend_LaunchFailure(t *testing.T) {
	l := &launchRecorder{err: errors.New("chrome not found")}
	r, _ := newRunner(t, fastConfig(), l, afero.NewMemMapFs())

	_, err := r.Send(context.Background(), []schemas.Recipient{"111"}, schemas.NewMessageJob("hi", nil))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")
}

func TestLogin(t *testing.T) {
	client := messengertest.New()
	cfg := fastConfig()
	cfg.SetBrowserHeadless(true)
	l := &launchRecorder{client: client}
	r, logs := newRunner(t, cfg, l, afero.NewMemMapFs())

	require.NoError(t, r.Login(context.Background(), 2*time.Second))

	assert.Equal(t, []bool{false}, l.headless, "login always shows the browser")
	assert.Equal(t, 2*time.Second, cfg.Session().LoginTimeout)
	assert.Len(t, logs.AllUntimed(), 1)
	assert.Equal(t, 1, client.Page.Closes)
}

func TestLogin_Timeout(t *testing.T) {
	client := messengertest.New()
	client.LoggedOut = true
	l := &launchRecorder{client: client}
	r, _ := newRunner(t, fastConfig(), l, afero.NewMemMapFs())

	err := r.Login(context.Background(), 40*time.Millisecond)
	assert.True(t, errors.Is(err, schemas.ErrLoginTimeout))
}

func TestTimeouts(t *testing.T) {
	t.Run("configured values override defaults", func(t *testing.T) {
		cfg := new(mocks.MockConfig)
		cfg.On("Workflow").Return(config.WorkflowConfig{ActionTimeout: 7 * time.Second})
		cfg.On("Session").Return(config.SessionConfig{NavigationTimeout: 90 * time.Second})

		got := Timeouts(cfg)
		assert.Equal(t, 7*time.Second, got.Action)
		assert.Equal(t, 90*time.Second, got.Navigation)
		assert.Equal(t, browser.DefaultTimeouts.Startup, got.Startup)
		cfg.AssertExpectations(t)
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		cfg := new(mocks.MockConfig)
		cfg.On("Workflow").Return(config.WorkflowConfig{})
		cfg.On("Session").Return(config.SessionConfig{})

		assert.Equal(t, browser.DefaultTimeouts, Timeouts(cfg))
		cfg.AssertExpectations(t)
	})
}

func TestComponentsShutdown_NilSafe(t *testing.T) {
	var c *Components
	assert.NotPanics(t, c.Shutdown)
	assert.NotPanics(t, (&Components{}).Shutdown)
}
