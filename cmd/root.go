// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/observability"
	"github.com/xkilldash9x/courier-cli/internal/service"
)

// flagBindings maps command flags onto config keys so a flag set on the command line
// overrides the config file and the environment.
var flagBindings = map[string]string{
	"headless": "browser.headless",
	"delay":    "batch.inter_send_delay_ms",
	"timeout":  "session.login_timeout",
}

// app is the state shared by one command tree. PersistentPreRunE fills cfg and logger.
type app struct {
	v       *viper.Viper
	fs      afero.Fs
	cfgFile string
	stdout  io.Writer

	factory   service.ComponentFactory
	newLogger func(config.LoggerConfig) *zap.Logger

	cfg    *config.Config
	logger *zap.Logger
}

func defaultApp() *app {
	return &app{
		v:       viper.New(),
		fs:      afero.NewOsFs(),
		stdout:  os.Stdout,
		factory: service.NewComponentFactory(),
		newLogger: func(cfg config.LoggerConfig) *zap.Logger {
			observability.InitializeLogger(cfg)
			return observability.GetLogger()
		},
	}
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultApp())
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "courier",
		Short:         "Courier sends one message to many WhatsApp Web contacts through a real browser.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newSendCmd(a), newLoginCmd(a), newVersionCmd())
	return rootCmd
}

// Execute runs the command tree under ctx, which should be cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// initialize reads the config file, binds env and flags, validates, and starts logging.
func (a *app) initialize(cmd *cobra.Command) error {
	if err := a.readConfig(); err != nil {
		return err
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagBindings[f.Name]; ok && bindErr == nil {
			bindErr = a.v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return fmt.Errorf("failed to bind flags: %w", bindErr)
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		// Keep a console logger so the failure itself is visible.
		a.logger = a.newLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "courier-cli"})
		return err
	}
	a.cfg = cfg
	a.logger = a.newLogger(cfg.Logger())
	a.logger.Debug("Starting courier", zap.String("version", Version), zap.String("command", cmd.Name()))
	return nil
}

// readConfig loads the config file on top of the defaults. A missing default file is fine;
// a missing explicit --config file is not.
func (a *app) readConfig() error {
	config.SetDefaults(a.v)
	a.v.SetFs(a.fs)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// progress returns the logger for operator-facing lines on stdout.
func (a *app) progress() *zap.Logger {
	return observability.NewProgressLogger(a.stdout)
}

// interrupted reports whether err is a cooperative cancellation.
func interrupted(err error) bool {
	return errors.Is(err, schemas.ErrCancelled) || errors.Is(err, context.Canceled)
}
