// Package diagnostics saves a screenshot of the page whenever a recipient fails, so an
// operator can see what the web client was showing. Capture never fails the caller.
package diagnostics

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

// TimestampLayout is the suffix format of every capture file.
const TimestampLayout = "20060102_150405"

// captureTimeout bounds one screenshot round-trip.
const captureTimeout = 5 * time.Second

// Screenshotter is the slice of browser.Driver a Capturer needs.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Recorder is what the workflow depends on.
type Recorder interface {
	Capture(ctx context.Context, subject, detail string) string
}

// Capturer writes PNG screenshots into a directory of an afero filesystem.
type Capturer struct {
	fs      afero.Fs
	dir     string
	enabled bool
	shooter Screenshotter
	logger  *zap.Logger
	now     func() time.Time
}

var _ Recorder = (*Capturer)(nil)

// New creates a Capturer. A nil fs means the OS filesystem.
func New(fs afero.Fs, cfg config.DiagnosticsConfig, shooter Screenshotter, logger *zap.Logger) *Capturer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	return &Capturer{
		fs:      fs,
		dir:     dir,
		enabled: cfg.Enabled,
		shooter: shooter,
		logger:  logger.Named("diagnostics"),
		now:     time.Now,
	}
}

// Capture saves a screenshot named {subject}_{detail}_{timestamp}.png and returns its path,
// or an empty string when capture is disabled or anything went wrong. It keeps working
// after ctx has been cancelled so a timed-out recipient still gets its screenshot.
func (c *Capturer) Capture(ctx context.Context, subject, detail string) string {
	if !c.enabled || c.shooter == nil {
		return ""
	}

	shotCtx, cancel := contextWithTimeout(ctx)
	defer cancel()

	png, err := c.shooter.Screenshot(shotCtx)
	if err != nil {
		c.logger.Warn("Screenshot failed", zap.String("subject", subject), zap.Error(err))
		return ""
	}

	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("Cannot create diagnostics directory", zap.String("dir", c.dir), zap.Error(err))
		return ""
	}

	path := filepath.Join(c.dir, FileName(subject, detail, c.now()))
	if err := afero.WriteFile(c.fs, path, png, 0o644); err != nil {
		c.logger.Warn("Cannot write screenshot", zap.String("path", path), zap.Error(err))
		return ""
	}

	c.logger.Info("Diagnostic screenshot saved", zap.String("path", path))
	return path
}

// FileName builds the capture file name. Subject is the recipient, or a label when there
// is none; both parts are reduced to characters that are safe in file names on every platform.
func FileName(subject, detail string, t time.Time) string {
	parts := []string{sanitize(subject)}
	if d := sanitize(detail); d != "" {
		parts = append(parts, d)
	}
	return fmt.Sprintf("%s_%s.png", strings.Join(parts, "_"), t.Format(TimestampLayout))
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func contextWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), captureTimeout)
}
