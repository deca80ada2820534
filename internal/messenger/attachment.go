package messenger

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/locator"
	"github.com/xkilldash9x/courier-cli/internal/wait"
)

// AttachmentController drives one file through the attach menu, the media editor and
// the send button.
type AttachmentController struct {
	driver   browser.Driver
	resolver *locator.Resolver
	composer *ComposerController
	confirm  *Confirmer
	cfg      config.WorkflowConfig
	interval time.Duration
	logger   *zap.Logger
}

// NewAttachmentController creates an AttachmentController.
func NewAttachmentController(
	driver browser.Driver,
	resolver *locator.Resolver,
	composer *ComposerController,
	confirm *Confirmer,
	cfg config.WorkflowConfig,
	interval time.Duration,
	logger *zap.Logger,
) *AttachmentController {
	if interval <= 0 {
		interval = wait.DefaultPollInterval
	}
	return &AttachmentController{
		driver:   driver,
		resolver: resolver,
		composer: composer,
		confirm:  confirm,
		cfg:      cfg,
		interval: interval,
		logger:   logger.Named("attachment"),
	}
}

// Send uploads path, applies caption when non-empty, submits and waits for the outgoing
// count to move. A nil return means the send was confirmed.
func (a *AttachmentController) Send(ctx context.Context, path, caption string) error {
	kind := schemas.ClassifyAttachment(path)
	l := a.logger.With(zap.String("file", filepath.Base(path)), zap.String("type", string(kind)))

	baseline := a.confirm.Snapshot(ctx)

	if err := a.openMenu(ctx); err != nil {
		return err
	}
	input, err := a.findInput(ctx, kind)
	if err != nil {
		return err
	}
	if err := a.driver.SetFiles(ctx, input.Element, []string{path}); err != nil {
		return a.fail(ctx, fmt.Errorf("%w: set files: %w", schemas.ErrAttachmentUploadFailed, err))
	}
	l.Debug("File staged", zap.String("strategy", input.Strategy.Name))

	shown, err := wait.Until(ctx, a.cfg.MediaEditorTimeout, a.interval, a.resolver.Present(MediaEditor))
	if err != nil {
		return err
	}
	if !shown {
		l.Warn("Media editor did not appear, continuing")
	}

	if caption != "" {
		if err := a.composer.Caption(ctx, caption); err != nil {
			if ctx.Err() != nil {
				return wait.Cancelled(ctx.Err())
			}
			l.Warn("Caption not applied", zap.Error(err))
		}
	}

	if err := a.triggerSend(ctx); err != nil {
		return err
	}

	confirmed, err := a.confirm.ConfirmAttachment(ctx, baseline)
	if err != nil {
		return err
	}
	if !confirmed {
		return fmt.Errorf("%w: %s", schemas.ErrSendUnconfirmed, filepath.Base(path))
	}
	l.Info("Attachment sent")
	return nil
}

// openMenu waits for the attach button and clicks it through script, which also works
// when an overlay intercepts pointer events.
func (a *AttachmentController) openMenu(ctx context.Context) error {
	var match locator.Match
	found, err := wait.Until(ctx, a.cfg.AttachMenuTimeout, a.interval, func(ctx context.Context) bool {
		var ok bool
		match, ok = a.resolver.Resolve(ctx, AttachButton)
		return ok
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: attach button not found", schemas.ErrAttachmentUploadFailed)
	}
	if err := a.driver.JSClick(ctx, match.Element); err != nil {
		return a.fail(ctx, fmt.Errorf("%w: open attach menu: %w", schemas.ErrAttachmentUploadFailed, err))
	}
	return nil
}

// findInput waits for the upload input whose menu row carries the hints of kind.
func (a *AttachmentController) findInput(ctx context.Context, kind schemas.AttachmentType) (locator.Match, error) {
	hints := UploadHints(kind)
	var match locator.Match
	found, err := wait.Until(ctx, a.cfg.AttachMenuTimeout, a.interval, func(ctx context.Context) bool {
		var ok bool
		match, ok = a.resolver.ResolveByHints(ctx, UploadInputs, uploadAncestor, hints)
		return ok
	})
	if err != nil {
		return locator.Match{}, err
	}
	if !found {
		return locator.Match{}, fmt.Errorf("%w: no upload input for %s", schemas.ErrAttachmentUploadFailed, kind)
	}
	return match, nil
}

// triggerSend clicks the topmost send control. A native click is tried first, then a
// script click, then a search through open shadow roots.
func (a *AttachmentController) triggerSend(ctx context.Context) error {
	if m, ok := a.resolver.Resolve(ctx, SendButton); ok {
		err := a.driver.Click(ctx, m.Element)
		if err == nil {
			return nil
		}
		a.logger.Debug("Native click on send failed", zap.String("strategy", m.Strategy.Name), zap.Error(err))
		if err = a.driver.JSClick(ctx, m.Element); err == nil {
			return nil
		}
		a.logger.Debug("Script click on send failed", zap.Error(err))
	}
	if ctx.Err() != nil {
		return wait.Cancelled(ctx.Err())
	}

	var clicked bool
	if err := a.driver.Evaluate(ctx, ShadowSendScript, &clicked); err != nil {
		return a.fail(ctx, fmt.Errorf("%w: shadow search: %w", schemas.ErrSendTargetNotFound, err))
	}
	if !clicked {
		return schemas.ErrSendTargetNotFound
	}
	return nil
}

func (a *AttachmentController) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return wait.Cancelled(ctx.Err())
	}
	return err
}
