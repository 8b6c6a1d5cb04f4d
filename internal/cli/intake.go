package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	intakeDir   string
	intakeWatch bool
)

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Capture files dropped into the inbox directory",
	Long: "Capture every supported file in the inbox and move it to processed/. " +
		"With --watch, keep running and capture new files as they appear.",
	RunE: runIntake,
}

func init() {
	intakeCmd.Flags().StringVar(&intakeDir, "dir", "", "Inbox directory (default intake.inbox)")
	intakeCmd.Flags().BoolVarP(&intakeWatch, "watch", "w", false, "Keep watching for new files")
}

func runIntake(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if intakeDir != "" {
		a.cfg.Intake.Inbox = intakeDir
	}
	if a.cfg.Intake.Inbox == "" {
		return errors.New("no inbox configured (set intake.inbox or --dir)")
	}

	inbox, err := newInbox(a)
	if err != nil {
		return err
	}
	if _, err := a.startSession(ctx); err != nil {
		return err
	}

	n, err := inbox.Scan(ctx)
	if err != nil {
		a.push(ctx) // files captured before the error still count
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "captured %d files\n", n)
	if n > 0 {
		a.push(ctx)
	} else {
		a.pushDecay(ctx)
	}

	if !intakeWatch {
		return nil
	}

	stopFollow := a.follow(ctx)
	defer stopFollow()

	fmt.Fprintf(os.Stderr, "watching %s\n", a.cfg.Intake.Inbox)
	if err := inbox.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
