// Package service assembles the browser session, the messenger workflow and the
// dispatcher into the two runs the CLI offers: a bulk send and a bare login.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/dispatch"
)

// progressBuffer decouples the dispatcher from a slow terminal.
const progressBuffer = 64

// Runner executes runs against components produced by its factory.
type Runner struct {
	factory  ComponentFactory
	cfg      config.Interface
	logger   *zap.Logger
	progress *zap.Logger
}

// NewRunner creates a Runner. progress receives the operator-facing lines; a nil progress
// logger discards them.
func NewRunner(factory ComponentFactory, cfg config.Interface, logger, progress *zap.Logger) *Runner {
	if progress == nil {
		progress = zap.NewNop()
	}
	return &Runner{factory: factory, cfg: cfg, logger: logger, progress: progress}
}

// Send validates the job, logs in and dispatches job to recipients. The session is closed
// on every path. Only login timeout, cancellation and setup failures are returned as errors;
// the summary is valid in all cases.
func (r *Runner) Send(ctx context.Context, recipients []schemas.Recipient, job schemas.MessageJob) (schemas.BatchSummary, error) {
	summary := schemas.BatchSummary{Total: len(recipients)}
	if err := job.Validate(); err != nil {
		return summary, err
	}
	if len(recipients) == 0 {
		return summary, schemas.ErrNoRecipients
	}

	components, err := r.factory.Create(ctx, r.cfg, r.logger)
	if err != nil {
		return summary, fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Shutdown()

	if err := components.Session.EnsureLoggedIn(ctx); err != nil {
		return summary, err
	}

	delay := r.cfg.Batch().InterSendDelay()
	return r.dispatch(ctx, components, recipients, job, delay)
}

// dispatch runs the batch on one goroutine and prints progress on another.
func (r *Runner) dispatch(ctx context.Context, c *Components, recipients []schemas.Recipient, job schemas.MessageJob, delay time.Duration) (schemas.BatchSummary, error) {
	events := make(chan dispatch.Event, progressBuffer)
	d, err := dispatch.New(c.Workflow, dispatch.SinkFunc(func(ev dispatch.Event) { events <- ev }), r.logger)
	if err != nil {
		close(events)
		return schemas.BatchSummary{Total: len(recipients)}, err
	}

	printer := dispatch.NewPrinter(r.progress)
	var summary schemas.BatchSummary

	var g errgroup.Group
	g.Go(func() error {
		for ev := range events {
			printer.Notify(ev)
		}
		return nil
	})
	g.Go(func() error {
		defer close(events)
		var runErr error
		summary, runErr = d.Run(ctx, recipients, job, delay)
		return runErr
	})

	err = g.Wait()
	return summary, err
}

// Login launches a visible browser and waits for the login handshake. timeout overrides
// the configured ceiling when positive.
func (r *Runner) Login(ctx context.Context, timeout time.Duration) error {
	r.cfg.SetBrowserHeadless(false)
	if timeout > 0 {
		r.cfg.SetLoginTimeout(timeout)
	}

	components, err := r.factory.Create(ctx, r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Shutdown()

	if err := components.Session.EnsureLoggedIn(ctx); err != nil {
		return err
	}
	r.progress.Info("Logged in. The session is stored in the browser profile.")
	return nil
}
