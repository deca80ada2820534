package messenger

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/locator"
	"github.com/xkilldash9x/courier-cli/internal/wait"
)

var composerNoise = strings.NewReplacer(
	"\r\n", "\n",
	"\u200b", "",
	"\u200e", "",
	"\u00a0", " ",
)

// NormalizeComposerText strips the invisible characters the editor sprinkles into its
// text content so it can be compared with what was typed.
func NormalizeComposerText(s string) string {
	return strings.TrimSpace(composerNoise.Replace(s))
}

// Baseline is the outgoing bubble count observed before a send. OK is false when the
// count could not be read; confirmation then falls back to the secondary heuristic.
type Baseline struct {
	Count int
	OK    bool
}

// Confirmer decides whether a send really left the composer.
type Confirmer struct {
	driver   browser.Driver
	resolver *locator.Resolver
	cfg      config.WorkflowConfig
	interval time.Duration
	logger   *zap.Logger
}

// NewConfirmer creates a Confirmer.
func NewConfirmer(driver browser.Driver, resolver *locator.Resolver, cfg config.WorkflowConfig, interval time.Duration, logger *zap.Logger) *Confirmer {
	if interval <= 0 {
		interval = wait.DefaultPollInterval
	}
	return &Confirmer{
		driver:   driver,
		resolver: resolver,
		cfg:      cfg,
		interval: interval,
		logger:   logger.Named("confirm"),
	}
}

// OutgoingCount reads the number of outgoing bubbles in the open conversation.
func (c *Confirmer) OutgoingCount(ctx context.Context) (int, bool) {
	var n int
	if err := c.driver.Evaluate(ctx, OutgoingCountScript, &n); err != nil {
		c.logger.Debug("Outgoing count unavailable", zap.Error(err))
		return 0, false
	}
	return n, true
}

// Snapshot captures the baseline before a send.
func (c *Confirmer) Snapshot(ctx context.Context) Baseline {
	n, ok := c.OutgoingCount(ctx)
	return Baseline{Count: n, OK: ok}
}

func (c *Confirmer) increased(b Baseline) wait.Condition {
	return func(ctx context.Context) bool {
		if !b.OK {
			return false
		}
		n, ok := c.OutgoingCount(ctx)
		return ok && n > b.Count
	}
}

// ComposerCleared reports whether the composer exists and holds no text.
func (c *Confirmer) ComposerCleared(ctx context.Context) bool {
	m, ok := c.resolver.Resolve(ctx, Composer)
	if !ok {
		return false
	}
	text, err := c.driver.Text(ctx, m.Element)
	if err != nil {
		return false
	}
	return NormalizeComposerText(text) == ""
}

// ConfirmText waits for a text send to land. Depending on configuration a cleared
// composer is accepted alongside a count increase.
func (c *Confirmer) ConfirmText(ctx context.Context, b Baseline) (bool, error) {
	cond := c.increased(b)
	if c.cfg.TextConfirmation != config.TextConfirmCount {
		cond = wait.Any(cond, c.ComposerCleared)
	}
	return wait.Until(ctx, c.cfg.TextConfirmTimeout, c.interval, cond)
}

// ConfirmAttachment waits for a media send to land. Only a count increase counts, unless
// the baseline is unknown, in which case the media editor closing is accepted.
func (c *Confirmer) ConfirmAttachment(ctx context.Context, b Baseline) (bool, error) {
	cond := c.increased(b)
	if !b.OK {
		c.logger.Warn("No outgoing baseline, confirming by media editor closing")
		cond = func(ctx context.Context) bool { return !c.resolver.Exists(ctx, MediaEditor) }
	}
	return wait.Until(ctx, c.cfg.AttachConfirmTimeout, c.interval, cond)
}
