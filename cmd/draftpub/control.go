package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"draftpub/internal/config"
	"draftpub/internal/report"
	"draftpub/internal/scheduler"
	"draftpub/internal/settings"
)

var adminAddr string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Arm the schedule on the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var st scheduler.State
		if err := daemonClient().do(cmd.Context(), http.MethodPost, "/start", nil, &st); err != nil {
			return err
		}
		printState(cmd.OutOrStdout(), st)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Cancel the schedule on the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var st scheduler.State
		if err := daemonClient().do(cmd.Context(), http.MethodPost, "/stop", nil, &st); err != nil {
			return err
		}
		printState(cmd.OutOrStdout(), st)
		return nil
	},
}

type statusReply struct {
	State     scheduler.State `json:"state"`
	Settings  settings.Config `json:"settings"`
	Summary   report.Summary  `json:"summary"`
	LastError string          `json:"lastError"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schedule state and log summary from the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var st statusReply
		if err := daemonClient().do(cmd.Context(), http.MethodGet, "/status", nil, &st); err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{startCmd, stopCmd, statusCmd} {
		c.Flags().StringVar(&adminAddr, "addr", "", "admin API address (default: admin.addr from config)")
		rootCmd.AddCommand(c)
	}
}

// daemonClient resolves the admin address from --addr, then the config
// file, then the built-in default.
func daemonClient() *adminClient {
	addr := adminAddr
	if addr == "" {
		m := config.NewManager(cfgPath)
		if cfg, err := m.Parse(); err == nil && cfg.Admin.Addr != "" {
			addr = cfg.Admin.Addr
		}
	}
	if addr == "" {
		addr = config.DefaultAdminAddr
	}
	return newAdminClient(addr)
}

func printState(w io.Writer, st scheduler.State) {
	if !st.Active {
		fmt.Fprintln(w, "schedule: stopped")
		return
	}
	fmt.Fprintf(w, "schedule: active, every %d min\n", st.IntervalMinutes)
	if st.NextRunAt != nil {
		fmt.Fprintf(w, "next run: %s\n", st.NextRunAt.Format(time.RFC3339))
	}
}

func printStatus(w io.Writer, st statusReply) {
	printState(w, st.State)
	fmt.Fprintf(w, "published (logged): %d\n", st.Summary.Total)
	if st.Summary.Last != nil {
		fmt.Fprintf(w, "last: %s  %s  [%s]\n", st.Summary.Last.PublishedAt, st.Summary.Last.Title, st.Summary.Last.ItemType)
	}
	for _, tc := range st.Summary.ByType {
		fmt.Fprintf(w, "  %-12s %d\n", tc.Type, tc.Count)
	}
	if st.LastError != "" {
		fmt.Fprintf(w, "last error: %s\n", st.LastError)
	}
}
