// internal/browser/context_utils.go
package browser

import (
	"context"
	"time"
)

// CombineContext returns a context that inherits values from ctx1 (the tab context carrying
// the CDP target) and is cancelled when either ctx1 or ctx2 (the caller's operational
// context) is done. The returned cancel must always be called.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	stop := context.AfterFunc(ctx2, cancel)
	return combinedCtx, func() {
		stop()
		cancel()
	}
}

// valueOnlyContext keeps the parent's values but drops its deadline and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context that inherits values from ctx but is not cancelled with it.
// The browser allocator is rooted here so that Ctrl+C interrupts the current action
// without killing Chromium before Close has a chance to shut it down cleanly.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
