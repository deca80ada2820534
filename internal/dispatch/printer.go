package dispatch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/api/schemas"
)

// Printer renders events as the operator-facing progress lines:
//
//	[1/3] [OK] Sent to 111
//	[2/3] [X] Not delivered: 222
//	[3/3] [!] Failed: 333 -> reason
//	Done. Success: 1, Failed: 2.
type Printer struct {
	out *zap.Logger
}

var _ ProgressSink = (*Printer)(nil)

// NewPrinter writes lines through out, typically observability.NewProgressLogger.
func NewPrinter(out *zap.Logger) *Printer {
	return &Printer{out: out}
}

func (p *Printer) Notify(ev Event) {
	if line := Line(ev); line != "" {
		p.out.Info(line)
	}
}

// Line formats one event; events without a line return "".
func Line(ev Event) string {
	prefix := fmt.Sprintf("[%d/%d]", ev.Progress.Index, ev.Progress.Total)
	switch ev.Kind {
	case EventStarted:
		return fmt.Sprintf("%s Sending to %s...", prefix, ev.Recipient)
	case EventFinished:
		res := ev.Result
		switch res.Outcome {
		case schemas.OutcomeSent:
			return fmt.Sprintf("%s [OK] Sent to %s", prefix, ev.Recipient)
		case schemas.OutcomeNotDelivered, schemas.OutcomeInvalidRecipient:
			return fmt.Sprintf("%s [X] Not delivered: %s", prefix, ev.Recipient)
		case schemas.OutcomeCancelled:
			return fmt.Sprintf("%s [-] Cancelled: %s", prefix, ev.Recipient)
		default:
			return fmt.Sprintf("%s [!] Failed: %s -> %s", prefix, ev.Recipient, res.Reason)
		}
	case EventDone:
		s := ev.Summary
		line := fmt.Sprintf("Done. Success: %d, Failed: %d.", s.Succeeded, s.Failed)
		if s.Attempted < s.Total || s.Cancelled > 0 {
			line += fmt.Sprintf(" Stopped early after %d of %d.", s.Attempted, s.Total)
		}
		return line
	}
	return ""
}
