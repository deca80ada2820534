// Package dispatch runs a message job over a recipient list, one recipient at a time,
// and keeps the batch counters.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/wait"
)

// Sender delivers a job to one recipient. messenger.Workflow implements it.
type Sender interface {
	Run(ctx context.Context, r schemas.Recipient, job schemas.MessageJob) schemas.SendResult
}

// EventKind tells a ProgressSink what happened.
type EventKind int

const (
	EventStarted EventKind = iota
	EventFinished
	EventDone
)

// Event is one progress notification. Result is set for EventFinished, Summary for EventDone.
type Event struct {
	Kind      EventKind
	RunID     string
	Recipient schemas.Recipient
	Progress  schemas.BatchProgress
	Result    schemas.SendResult
	Summary   schemas.BatchSummary
}

// ProgressSink receives events in order from the dispatching goroutine. Implementations
// must not block for long.
type ProgressSink interface {
	Notify(ev Event)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(ev Event)

func (f SinkFunc) Notify(ev Event) { f(ev) }

// Dispatcher owns the batch loop.
type Dispatcher struct {
	sender Sender
	sink   ProgressSink
	logger *zap.Logger
	newID  func() string
}

// New creates a Dispatcher. A nil sink discards events.
func New(sender Sender, sink ProgressSink, logger *zap.Logger) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("dispatch: sender is required")
	}
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sender: sender,
		sink:   sink,
		logger: logger.Named("dispatch"),
		newID:  uuid.NewString,
	}, nil
}

// Run sends job to every recipient in order with delay between consecutive recipients.
// On cancellation it stops before the next recipient and returns the partial summary
// together with an error wrapping schemas.ErrCancelled.
func (d *Dispatcher) Run(ctx context.Context, recipients []schemas.Recipient, job schemas.MessageJob, delay time.Duration) (schemas.BatchSummary, error) {
	runID := d.newID()
	log := d.logger.With(zap.String("run_id", runID))
	progress := schemas.BatchProgress{Total: len(recipients)}

	finish := func(err error) (schemas.BatchSummary, error) {
		summary := progress.Summary(runID)
		d.sink.Notify(Event{Kind: EventDone, RunID: runID, Progress: progress, Summary: summary})
		log.Info("Batch finished",
			zap.Int("attempted", summary.Attempted),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Int("cancelled", summary.Cancelled),
			zap.Error(err))
		return summary, err
	}

	log.Info("Batch starting", zap.Int("recipients", len(recipients)), zap.Duration("delay", delay))

	for i, r := range recipients {
		if err := ctx.Err(); err != nil {
			return finish(wait.Cancelled(err))
		}

		progress.Index = i + 1
		d.sink.Notify(Event{Kind: EventStarted, RunID: runID, Recipient: r, Progress: progress})

		res := d.send(ctx, r, job)
		progress.Record(res)
		d.sink.Notify(Event{Kind: EventFinished, RunID: runID, Recipient: r, Progress: progress, Result: res})

		if res.Cancelled() {
			return finish(res.Err)
		}

		if i < len(recipients)-1 {
			if err := wait.Sleep(ctx, delay); err != nil {
				return finish(err)
			}
		}
	}
	return finish(nil)
}

// send runs one recipient and turns a panic into a Failed result.
func (d *Dispatcher) send(ctx context.Context, r schemas.Recipient, job schemas.MessageJob) (res schemas.SendResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("Recipient workflow panicked",
				zap.String("recipient", r.String()),
				zap.Any("panicValue", p),
				zap.String("stack", string(debug.Stack())))
			err := fmt.Errorf("panic: %v", p)
			res = schemas.SendResult{
				Recipient: r,
				Outcome:   schemas.OutcomeFailed,
				Reason:    err.Error(),
				Err:       err,
				Duration:  time.Since(start),
			}
		}
	}()

	res = d.sender.Run(ctx, r, job)
	res.Recipient = r
	if !res.Outcome.IsValid() {
		res.Outcome = schemas.OutcomeFailed
		if res.Reason == "" {
			res.Reason = "workflow returned no outcome"
		}
	}
	return res
}
