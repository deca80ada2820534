package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/diagnostics"
	"github.com/xkilldash9x/courier-cli/internal/messenger"
	"github.com/xkilldash9x/courier-cli/internal/observability"
	"github.com/xkilldash9x/courier-cli/internal/session"
)

// shutdownTimeout bounds browser disposal, which runs even after the main context is done.
const shutdownTimeout = 30 * time.Second

// Components holds everything a run needs over one browser session. The session is
// exclusively owned here and released by Shutdown.
type Components struct {
	Session     *session.Manager
	Workflow    *messenger.Workflow
	Diagnostics *diagnostics.Capturer
}

// Shutdown closes the browser session. It is safe to call on partially built components
// and more than once.
func (c *Components) Shutdown() {
	if c == nil || c.Session == nil {
		return
	}
	logger := observability.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := c.Session.Close(ctx); err != nil {
		logger.Warn("Error during browser session shutdown.", zap.Error(err))
		return
	}
	logger.Debug("Components shut down.")
}
