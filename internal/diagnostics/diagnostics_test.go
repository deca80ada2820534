package diagnostics

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/mocks"
)

var fixedTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newCapturer(t *testing.T, fs afero.Fs, shooter Screenshotter) *Capturer {
	c := New(fs, config.DiagnosticsConfig{Enabled: true, Dir: "/diag"}, shooter, zaptest.NewLogger(t))
	c.now = func() time.Time { return fixedTime }
	return c
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "15551234567_NotDelivered_20250314_092653.png", FileName("15551234567", "NotDelivered", fixedTime))
	assert.Equal(t, "send_failed_a_b_c_20250314_092653.png", FileName("send failed", "a/b:c", fixedTime))
	assert.Equal(t, "label_20250314_092653.png", FileName("label", "", fixedTime))
}

func TestCapture_WritesScreenshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	page := mocks.NewFakePage()
	c := newCapturer(t, fs, page)

	path := c.Capture(context.Background(), "222", "InvalidRecipient")

	assert.Equal(t, filepath.Join("/diag", "222_InvalidRecipient_20250314_092653.png"), path)
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG fake", string(data))
}

func TestCapture_SurvivesCancelledContext(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newCapturer(t, fs, mocks.NewFakePage())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotEmpty(t, c.Capture(ctx, "111", "fail"))
}

func TestCapture_SwallowsErrors(t *testing.T) {
	t.Run("screenshot error", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		page := mocks.NewFakePage()
		page.ScreenshotErr = errors.New("target closed")
		c := New(afero.NewMemMapFs(), config.DiagnosticsConfig{Enabled: true}, page, zap.New(core))

		assert.Empty(t, c.Capture(context.Background(), "111", "fail"))
		assert.Equal(t, 1, logs.FilterMessage("Screenshot failed").Len())
	})

	t.Run("read-only filesystem", func(t *testing.T) {
		c := newCapturer(t, afero.NewReadOnlyFs(afero.NewMemMapFs()), mocks.NewFakePage())
		assert.Empty(t, c.Capture(context.Background(), "111", "fail"))
	})

	t.Run("disabled", func(t *testing.T) {
		page := mocks.NewFakePage()
		c := New(afero.NewMemMapFs(), config.DiagnosticsConfig{Enabled: false}, page, zaptest.NewLogger(t))
		assert.Empty(t, c.Capture(context.Background(), "111", "fail"))
		assert.Zero(t, page.Screenshots)
	})

	t.Run("no shooter", func(t *testing.T) {
		c := newCapturer(t, afero.NewMemMapFs(), nil)
		assert.Empty(t, c.Capture(context.Background(), "111", "fail"))
	})
}
