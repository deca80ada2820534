package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/recipients"
	"github.com/xkilldash9x/courier-cli/internal/service"
)

type sendOptions struct {
	recipientsFile string
	numbers        []string
	message        string
	messageFile    string
	attachments    []string
	headless       bool
	delayMs        int
}

// newSendCmd creates the `send` command.
func newSendCmd(a *app) *cobra.Command {
	opts := &sendOptions{}
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message and/or attachments to every recipient",
		Long: `Send opens WhatsApp Web in a browser with a persistent profile, waits for the
session to be logged in, and delivers the message to each recipient in turn.

Recipients come from --recipients (.xlsx, .csv or a text file with one number per line,
first column only) and/or repeated --number flags. Numbers are reduced to digits and
de-duplicated. Press Ctrl+C to stop: the recipient in progress is aborted and reported
as cancelled, and the summary covers what was sent so far.`,
		Example: `  courier send --recipients contacts.xlsx --message "Hello!"
  courier send -n "+1 (555) 123-4567" --attach ./brochure.pdf --message "See attached"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSend(cmd, opts)
		},
	}

	f := sendCmd.Flags()
	f.StringVarP(&opts.recipientsFile, "recipients", "r", "", "file with recipient numbers (.xlsx, .csv, .txt)")
	f.StringSliceVarP(&opts.numbers, "number", "n", nil, "recipient number (repeatable)")
	f.StringVarP(&opts.message, "message", "m", "", "message text, used as caption when attachments are given")
	f.StringVar(&opts.messageFile, "message-file", "", "read the message text from a file")
	f.StringSliceVarP(&opts.attachments, "attach", "a", nil, "file to attach (repeatable)")
	f.BoolVar(&opts.headless, "headless", false, "run the browser without a window")
	f.IntVar(&opts.delayMs, "delay", config.DefaultInterSendDelayMs,
		fmt.Sprintf("delay between recipients in ms (%d-%d)", config.MinInterSendDelayMs, config.MaxInterSendDelayMs))
	sendCmd.MarkFlagsMutuallyExclusive("message", "message-file")

	return sendCmd
}

func (a *app) runSend(cmd *cobra.Command, opts *sendOptions) error {
	ctx := cmd.Context()
	progress := a.progress()

	list, err := a.loadRecipients(opts)
	if err != nil {
		return err
	}
	if opts.recipientsFile != "" {
		progress.Info("File loaded. " + list.Report() + ".")
	}
	if len(list.Recipients) == 0 {
		return schemas.ErrNoRecipients
	}

	job, err := a.buildJob(opts)
	if err != nil {
		return err
	}

	a.logger.Info("Starting batch",
		zap.Int("recipients", len(list.Recipients)),
		zap.Bool("text", job.HasText()),
		zap.Int("attachments", len(job.Attachments)),
		zap.Bool("headless", a.cfg.Browser().Headless),
		zap.Duration("delay", a.cfg.Batch().InterSendDelay()))

	runner := service.NewRunner(a.factory, a.cfg, a.logger, progress)
	summary, err := runner.Send(ctx, list.Recipients, job)
	switch {
	case err == nil:
		return nil
	case interrupted(err):
		if summary.Attempted == 0 {
			progress.Info("Interrupted before any message was sent.")
		} else {
			progress.Info(fmt.Sprintf("Interrupted. Sent %d of %d.", summary.Succeeded, summary.Total))
		}
		return nil
	default:
		return err
	}
}

// loadRecipients merges the recipients file with --number values.
func (a *app) loadRecipients(opts *sendOptions) (recipients.List, error) {
	var raw []string
	rows := 0
	if opts.recipientsFile != "" {
		fromFile, err := recipients.Load(a.fs, opts.recipientsFile)
		if err != nil {
			return recipients.List{}, err
		}
		raw = append(raw, recipients.Strings(fromFile.Recipients)...)
		rows = fromFile.Rows
	}
	extra := recipients.FromRaw("--number", opts.numbers)
	raw = append(raw, opts.numbers...)

	list := recipients.FromRaw(opts.recipientsFile, raw)
	list.Rows = rows + extra.Rows
	return list, nil
}

// buildJob resolves the message text and makes attachment paths absolute.
func (a *app) buildJob(opts *sendOptions) (schemas.MessageJob, error) {
	text := opts.message
	if opts.messageFile != "" {
		b, err := afero.ReadFile(a.fs, opts.messageFile)
		if err != nil {
			return schemas.MessageJob{}, fmt.Errorf("failed to read message file: %w", err)
		}
		text = string(b)
	}

	paths := make([]string, 0, len(opts.attachments))
	for _, p := range opts.attachments {
		abs, err := filepath.Abs(p)
		if err != nil {
			return schemas.MessageJob{}, fmt.Errorf("attachment %s: %w", p, err)
		}
		info, err := a.fs.Stat(abs)
		if err != nil {
			return schemas.MessageJob{}, fmt.Errorf("attachment %s: %w", p, err)
		}
		if info.IsDir() {
			return schemas.MessageJob{}, fmt.Errorf("attachment %s is a directory", p)
		}
		paths = append(paths, abs)
	}

	job := schemas.NewMessageJob(text, paths)
	if err := job.Validate(); err != nil {
		if errors.Is(err, schemas.ErrEmptyJob) {
			return job, fmt.Errorf("%w (use --message, --message-file or --attach)", err)
		}
		return job, err
	}
	return job, nil
}
