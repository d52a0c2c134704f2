// Command draftpub publishes draft items on a recurring schedule.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"draftpub/internal/app"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "draftpub",
	Short: "Recurring draft publication scheduler",
	Long: `draftpub promotes draft items to published on a fixed interval and keeps
a bounded log of what it published.

Run "draftpub serve" for the daemon. The start, stop and status commands talk
to a running daemon over its admin API; the remaining commands open the
stores directly.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (json, yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
}

// openApp opens the stores for a one-shot command. Logs go to stderr so
// command output stays clean on stdout.
func openApp(ctx context.Context) (*app.App, error) {
	level := logLevel
	if level == "" {
		level = "warn"
	}
	return app.New(ctx, cfgPath, app.Options{LogOut: os.Stderr, LogLevel: level})
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
