// Package messenger delivers one message job to one recipient inside an authenticated
// session. Each recipient runs through a small state machine:
//
//	Init -> Navigated -> Ready | InvalidNumber
//	Ready -> TextPath | AttachmentPath -> Confirmed | Unconfirmed -> Done
//
// Every path ends in Done with exactly one SendResult.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/diagnostics"
	"github.com/xkilldash9x/courier-cli/internal/humanoid"
	"github.com/xkilldash9x/courier-cli/internal/locator"
	"github.com/xkilldash9x/courier-cli/internal/wait"
)

// Step is a state of the per-recipient workflow.
type Step int

const (
	StepInit Step = iota
	StepNavigated
	StepReady
	StepInvalidNumber
	StepTextPath
	StepAttachmentPath
	StepConfirmed
	StepUnconfirmed
	StepDone
)

var stepNames = [...]string{
	StepInit:           "INIT",
	StepNavigated:      "NAVIGATED",
	StepReady:          "READY",
	StepInvalidNumber:  "INVALID_NUMBER",
	StepTextPath:       "TEXT_PATH",
	StepAttachmentPath: "ATTACHMENT_PATH",
	StepConfirmed:      "CONFIRMED",
	StepUnconfirmed:    "UNCONFIRMED",
	StepDone:           "DONE",
}

func (s Step) String() string {
	if s >= 0 && int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// Diagnostic labels used for failure screenshots.
const (
	LabelInvalidRecipient = "InvalidRecipient"
	LabelNotDelivered     = "NotDelivered"
	LabelAttachmentFailed = "AttachmentFailed"
	LabelFailed           = "Failed"
)

// Navigator opens the conversation of a recipient. session.Manager implements it.
type Navigator interface {
	NavigateToRecipient(ctx context.Context, r schemas.Recipient) error
}

// Options carries the collaborators of a Workflow.
type Options struct {
	Navigator Navigator
	Driver    browser.Driver
	Recorder  diagnostics.Recorder
	Config    config.WorkflowConfig
	Humanoid  config.HumanoidConfig
	Interval  time.Duration
	Seed      int64
	Logger    *zap.Logger
}

// Workflow sends a job to recipients one at a time. It is not safe for concurrent use;
// the session holds a single tab.
type Workflow struct {
	nav      Navigator
	resolver *locator.Resolver
	composer *ComposerController
	attacher *AttachmentController
	confirm  *Confirmer
	recorder diagnostics.Recorder
	cfg      config.WorkflowConfig
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewWorkflow wires the controllers over one driver.
func NewWorkflow(opts Options) *Workflow {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("messenger")
	interval := opts.Interval
	if interval <= 0 {
		interval = wait.DefaultPollInterval
	}

	resolver := locator.New(opts.Driver, logger)
	typist := humanoid.NewTypist(opts.Humanoid, opts.Driver, opts.Seed)
	composer := NewComposerController(opts.Driver, resolver, typist, logger)
	confirm := NewConfirmer(opts.Driver, resolver, opts.Config, interval, logger)

	return &Workflow{
		nav:      opts.Navigator,
		resolver: resolver,
		composer: composer,
		attacher: NewAttachmentController(opts.Driver, resolver, composer, confirm, opts.Config, interval, logger),
		confirm:  confirm,
		recorder: opts.Recorder,
		cfg:      opts.Config,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run delivers job to r and classifies the result. It never returns an error; every
// failure is folded into the SendResult.
func (w *Workflow) Run(ctx context.Context, r schemas.Recipient, job schemas.MessageJob) schemas.SendResult {
	rn := &recipientRun{
		w:      w,
		r:      r,
		job:    job,
		step:   StepInit,
		logger: w.logger.With(zap.String("recipient", r.String())),
	}
	start := w.now()
	res := rn.execute(ctx)
	res.Recipient = r
	res.Duration = w.now().Sub(start)
	rn.advance(StepDone)
	return res
}

// recipientRun is the state of one Run call.
type recipientRun struct {
	w      *Workflow
	r      schemas.Recipient
	job    schemas.MessageJob
	step   Step
	logger *zap.Logger
}

func (rn *recipientRun) advance(to Step) {
	rn.logger.Debug("Workflow step", zap.Stringer("from", rn.step), zap.Stringer("to", to))
	rn.step = to
}

func (rn *recipientRun) execute(ctx context.Context) schemas.SendResult {
	if err := ctx.Err(); err != nil {
		return rn.cancelled(err)
	}

	if err := rn.w.nav.NavigateToRecipient(ctx, rn.r); err != nil {
		if ctx.Err() != nil {
			return rn.cancelled(err)
		}
		return rn.failed(ctx, LabelFailed, fmt.Errorf("navigate: %w", err))
	}
	rn.advance(StepNavigated)

	ready, err := rn.awaitReady(ctx)
	if err != nil {
		return rn.cancelled(err)
	}
	if !ready {
		rn.advance(StepInvalidNumber)
		rn.capture(ctx, LabelInvalidRecipient)
		rn.logger.Warn("Recipient is not reachable")
		return schemas.SendResult{
			Outcome: schemas.OutcomeInvalidRecipient,
			Reason:  schemas.ErrInvalidRecipient.Error(),
			Err:     schemas.ErrInvalidRecipient,
		}
	}
	rn.advance(StepReady)

	if rn.job.HasAttachments() {
		rn.advance(StepAttachmentPath)
		err = rn.sendAttachments(ctx)
	} else {
		rn.advance(StepTextPath)
		err = rn.sendText(ctx)
	}

	switch {
	case err == nil:
		rn.advance(StepConfirmed)
		rn.logger.Info("Message sent")
		return schemas.SendResult{Outcome: schemas.OutcomeSent}
	case isCancellation(ctx, err):
		return rn.cancelled(err)
	default:
		rn.advance(StepUnconfirmed)
		return rn.failed(ctx, LabelNotDelivered, err)
	}
}

// awaitReady waits for either the composer or the invalid-number banner. A banner wins
// over a composer; neither within the timeout counts as not ready.
func (rn *recipientRun) awaitReady(ctx context.Context) (bool, error) {
	res := rn.w.resolver
	settled, err := wait.Until(ctx, rn.w.cfg.ReadyTimeout, rn.w.interval,
		wait.Any(res.Present(InvalidBanner), res.Present(Composer)))
	if err != nil {
		return false, err
	}
	if !settled {
		rn.logger.Debug("Conversation did not settle", zap.Duration("timeout", rn.w.cfg.ReadyTimeout))
		return false, nil
	}
	if res.Exists(ctx, InvalidBanner) {
		return false, nil
	}
	return true, nil
}

func (rn *recipientRun) sendText(ctx context.Context) error {
	baseline := rn.w.confirm.Snapshot(ctx)
	if err := rn.w.composer.Populate(ctx, rn.job.Text); err != nil {
		return err
	}
	if err := rn.w.composer.Submit(ctx); err != nil {
		return err
	}
	ok, err := rn.w.confirm.ConfirmText(ctx, baseline)
	if err != nil {
		return err
	}
	if !ok {
		return schemas.ErrSendUnconfirmed
	}
	return nil
}

// sendAttachments sends every file in order with the job text as caption. A failed file
// is recorded and skipped; the recipient counts as sent only if the last file landed.
// Confirmed files are followed by the post-send pause unless they are the last one, and
// cancellation is only observed before a file is started so a confirmed send stands.
func (rn *recipientRun) sendAttachments(ctx context.Context) error {
	files := rn.job.Attachments
	var last error
	for i, path := range files {
		if i > 0 {
			if err := ctx.Err(); err != nil {
				return wait.Cancelled(err)
			}
		}

		last = rn.w.attacher.Send(ctx, path, rn.job.Text)
		final := i == len(files)-1
		switch {
		case last == nil:
			if !final {
				// A cancelled pause surfaces at the top of the next iteration.
				_ = wait.Sleep(ctx, rn.w.cfg.PostSendPause)
			}
		case isCancellation(ctx, last):
			return last
		default:
			rn.logger.Warn("Attachment not sent",
				zap.Int("index", i+1),
				zap.Int("of", len(files)),
				zap.Error(last))
			if !final {
				rn.capture(ctx, LabelAttachmentFailed)
			}
		}
	}
	return last
}

func (rn *recipientRun) failed(ctx context.Context, label string, err error) schemas.SendResult {
	rn.capture(ctx, label)
	rn.logger.Warn("Recipient not delivered", zap.Error(err))
	outcome := schemas.OutcomeNotDelivered
	if label == LabelFailed {
		outcome = schemas.OutcomeFailed
	}
	return schemas.SendResult{Outcome: outcome, Reason: err.Error(), Err: err}
}

func (rn *recipientRun) cancelled(err error) schemas.SendResult {
	if !errors.Is(err, schemas.ErrCancelled) {
		err = wait.Cancelled(err)
	}
	rn.logger.Info("Recipient interrupted by cancellation")
	return schemas.SendResult{Outcome: schemas.OutcomeCancelled, Reason: "cancelled", Err: err}
}

func (rn *recipientRun) capture(ctx context.Context, label string) {
	if rn.w.recorder == nil {
		return
	}
	rn.w.recorder.Capture(ctx, rn.r.String(), label)
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, schemas.ErrCancelled) || ctx.Err() != nil
}
