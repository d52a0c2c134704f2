package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"draftpub/internal/app"
	logx "draftpub/pkg/logx"
	"draftpub/pkg/systemd"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler daemon",
	Long: `Run the scheduler and the admin API until interrupted.

The schedule resumes in the state it was left in: armed on first start,
stopped if it was stopped before the last shutdown. Under systemd
(Type=notify) readiness is reported once the schedule is restored.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	a, err := app.New(ctx, cfgPath, app.Options{LogLevel: logLevel})
	if err != nil {
		return err
	}
	log := a.Logger()

	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}
	if ok, err := systemd.Ready(); err != nil {
		log.Warn("sd_notify ready failed", logx.Err(err))
	} else if ok {
		log.Debug("notified systemd ready")
		if st := a.State(); st.Active {
			_, _ = systemd.Status("scheduled every %d min", st.IntervalMinutes)
		} else {
			_, _ = systemd.Status("schedule stopped")
		}
	}

	reason := app.StopUnknown
	var runErr error
	select {
	case s := <-sigs:
		if s == syscall.SIGTERM {
			reason = app.StopSIGTERM
		} else {
			reason = app.StopSIGINT
		}
	case <-a.Done():
		reason = app.StopFatalError
		runErr = a.Err()
	}

	_, _ = systemd.Stopping()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, reason); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
