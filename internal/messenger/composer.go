package messenger

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/humanoid"
	"github.com/xkilldash9x/courier-cli/internal/locator"
	"github.com/xkilldash9x/courier-cli/internal/wait"
)

// ComposerController writes into contenteditable editors, either the conversation composer or a
// media caption box.
type ComposerController struct {
	driver   browser.Driver
	resolver *locator.Resolver
	typist   *humanoid.Typist
	logger   *zap.Logger
}

// NewComposerController creates a ComposerController.
func NewComposerController(driver browser.Driver, resolver *locator.Resolver, typist *humanoid.Typist, logger *zap.Logger) *ComposerController {
	return &ComposerController{
		driver:   driver,
		resolver: resolver,
		typist:   typist,
		logger:   logger.Named("composer"),
	}
}

// Populate replaces the content of the conversation composer with text.
func (c *ComposerController) Populate(ctx context.Context, text string) error {
	return c.write(ctx, Composer, text)
}

// Caption replaces the content of the media caption box with text.
func (c *ComposerController) Caption(ctx context.Context, text string) error {
	return c.write(ctx, Caption, text)
}

// write tries a structured edit first and falls back to keystrokes. The target is
// re-resolved after each attempt since the editor may re-render underneath.
func (c *ComposerController) write(ctx context.Context, t locator.Target, text string) error {
	m, ok := c.resolver.Resolve(ctx, t)
	if !ok {
		if ctx.Err() != nil {
			return wait.Cancelled(ctx.Err())
		}
		return fmt.Errorf("%w: %s", schemas.ErrComposerNotFound, t.Name)
	}

	if err := c.driver.ReplaceText(ctx, m.Element, text); err != nil {
		c.logger.Debug("Structured edit failed", zap.String("target", t.Name), zap.Error(err))
	} else if c.holds(ctx, t, text) {
		return nil
	}
	if ctx.Err() != nil {
		return wait.Cancelled(ctx.Err())
	}

	c.logger.Info("Structured edit did not take, typing instead", zap.String("target", t.Name))
	if m, ok = c.resolver.Resolve(ctx, t); !ok {
		return fmt.Errorf("%w: %s vanished", schemas.ErrComposerNotFound, t.Name)
	}
	if err := c.driver.Focus(ctx, m.Element); err != nil {
		return fmt.Errorf("%w: focus %s: %w", schemas.ErrComposerNotPopulated, t.Name, err)
	}
	if err := c.typist.Clear(ctx); err != nil {
		return c.typingError(ctx, err)
	}
	if err := c.typist.TypeLines(ctx, text); err != nil {
		return c.typingError(ctx, err)
	}
	if !c.holds(ctx, t, text) {
		return fmt.Errorf("%w: %s", schemas.ErrComposerNotPopulated, t.Name)
	}
	return nil
}

func (c *ComposerController) typingError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return wait.Cancelled(ctx.Err())
	}
	return fmt.Errorf("%w: %w", schemas.ErrComposerNotPopulated, err)
}

// holds reports whether the current node of t shows want, modulo editor noise.
func (c *ComposerController) holds(ctx context.Context, t locator.Target, want string) bool {
	m, ok := c.resolver.Resolve(ctx, t)
	if !ok {
		return false
	}
	got, err := c.driver.Text(ctx, m.Element)
	if err != nil {
		return false
	}
	return NormalizeComposerText(got) == NormalizeComposerText(want)
}

// Submit presses Enter in the conversation composer.
func (c *ComposerController) Submit(ctx context.Context) error {
	m, ok := c.resolver.Resolve(ctx, Composer)
	if !ok {
		return fmt.Errorf("%w: composer gone before submit", schemas.ErrSendTargetNotFound)
	}
	if err := c.driver.Focus(ctx, m.Element); err != nil {
		c.logger.Debug("Focus before submit failed", zap.Error(err))
	}
	if err := c.driver.SendKeys(ctx, kb.Enter, browser.ModNone); err != nil {
		if ctx.Err() != nil {
			return wait.Cancelled(ctx.Err())
		}
		return fmt.Errorf("%w: enter: %w", schemas.ErrSendTargetNotFound, err)
	}
	return nil
}
