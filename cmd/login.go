package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/courier-cli/internal/service"
)

// newLoginCmd creates the `login` command. It opens a visible browser on the persistent
// profile and waits for the QR scan, so later headless sends start logged in.
func newLoginCmd(a *app) *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Open WhatsApp Web and wait for the QR code to be scanned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := a.progress()
			runner := service.NewRunner(a.factory, a.cfg, a.logger, progress)
			err := runner.Login(cmd.Context(), 0)
			if interrupted(err) {
				progress.Info("Login aborted.")
				return nil
			}
			return err
		},
	}
	loginCmd.Flags().Duration("timeout", 0, "how long to wait for the QR scan (default from config, 3m)")
	return loginCmd
}
