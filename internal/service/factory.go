package service

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/diagnostics"
	"github.com/xkilldash9x/courier-cli/internal/messenger"
	"github.com/xkilldash9x/courier-cli/internal/session"
)

// ComponentFactory builds the components of one run. Commands depend on this interface so
// they can be tested without a browser.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

// concreteFactory launches a real browser through launch.
type concreteFactory struct {
	launch func(cfg config.Interface, logger *zap.Logger) session.Launcher
	fs     afero.Fs
}

// NewComponentFactory returns the production factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{launch: BrowserLauncher, fs: afero.NewOsFs()}
}

// NewComponentFactoryWithLauncher returns a factory that obtains its driver from launch
// and writes diagnostics to fs.
func NewComponentFactoryWithLauncher(launch session.Launcher, fs afero.Fs) ComponentFactory {
	return &concreteFactory{
		launch: func(config.Interface, *zap.Logger) session.Launcher { return launch },
		fs:     fs,
	}
}

// BrowserLauncher adapts browser.Launch to a session.Launcher using the configured
// browser section and timeouts. The headless argument wins over the config value.
func BrowserLauncher(cfg config.Interface, logger *zap.Logger) session.Launcher {
	return func(ctx context.Context, headless bool) (browser.Driver, error) {
		bc := cfg.Browser()
		bc.Headless = headless
		return browser.Launch(ctx, bc, Timeouts(cfg), logger)
	}
}

// Timeouts derives the per-call CDP bounds from configuration.
func Timeouts(cfg config.Interface) browser.Timeouts {
	t := browser.DefaultTimeouts
	if d := cfg.Workflow().ActionTimeout; d > 0 {
		t.Action = d
	}
	if d := cfg.Session().NavigationTimeout; d > 0 {
		t.Navigation = d
	}
	return t
}

// Create launches the session and wires the workflow over its driver. The login handshake
// is left to the caller.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	components := &Components{}

	// Release whatever was started if a later step fails.
	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	if cfg == nil {
		initializationErr = fmt.Errorf("configuration is required")
		return nil, initializationErr
	}

	// 1. Browser session
	mgr := session.NewManager(cfg.Session(), f.launch(cfg, logger), logger)
	components.Session = mgr
	if err := mgr.Launch(ctx, cfg.Browser().Headless); err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	logger.Debug("Browser session launched.", zap.Bool("headless", cfg.Browser().Headless))

	// 2. Diagnostics
	components.Diagnostics = diagnostics.New(f.fs, cfg.Diagnostics(), mgr.Driver(), logger)

	// 3. Workflow
	components.Workflow = messenger.NewWorkflow(messenger.Options{
		Navigator: mgr,
		Driver:    mgr.Driver(),
		Recorder:  components.Diagnostics,
		Config:    cfg.Workflow(),
		Humanoid:  cfg.Humanoid(),
		Interval:  cfg.Session().PollInterval,
		Logger:    logger,
	})
	logger.Debug("Workflow initialized.")

	return components, nil
}
