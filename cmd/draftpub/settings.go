package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"draftpub/internal/settings"
)

var (
	setInterval   int
	setItems      int
	setTypes      []string
	setCategories []int64
	setLogging    bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the schedule settings",
	RunE:  runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored schedule settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change schedule settings on the running daemon",
	Long: `Change schedule settings through the running daemon's admin API.

Only the flags given are changed. Saving always re-arms the schedule with the
new interval, so a stopped schedule becomes active.`,
	Args: cobra.NoArgs,
	RunE: runSettingsSet,
}

func init() {
	f := settingsSetCmd.Flags()
	f.IntVar(&setInterval, "interval", 0, "minutes between runs")
	f.IntVar(&setItems, "items", 0, "items published per run")
	f.StringSliceVar(&setTypes, "types", nil, "item types to publish (empty means default)")
	f.Int64SliceVar(&setCategories, "categories", nil, "category ids to restrict to")
	f.BoolVar(&setLogging, "logging", true, "record publishes in the log")
	settingsSetCmd.Flags().StringVar(&adminAddr, "addr", "", "admin API address (default: admin.addr from config)")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.Settings(ctx)
	if err != nil {
		return err
	}
	printSettings(cmd.OutOrStdout(), cfg)
	return nil
}

func runSettingsSet(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	c := daemonClient()

	var cfg settings.Config
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &cfg); err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("interval") {
		cfg.IntervalMinutes = setInterval
	}
	if f.Changed("items") {
		cfg.ItemsPerRun = setItems
	}
	if f.Changed("types") {
		cfg.TypeFilter = setTypes
	}
	if f.Changed("categories") {
		cfg.CategoryFilter = setCategories
	}
	if f.Changed("logging") {
		cfg.LoggingEnabled = setLogging
	}

	var reply statusReply
	if err := c.do(ctx, http.MethodPut, "/settings", cfg, &reply); err != nil {
		return err
	}
	printSettings(cmd.OutOrStdout(), reply.Settings)
	printState(cmd.OutOrStdout(), reply.State)
	return nil
}

func printSettings(w io.Writer, cfg settings.Config) {
	types := "(default)"
	if len(cfg.TypeFilter) > 0 {
		types = strings.Join(cfg.TypeFilter, ", ")
	}
	cats := "(any)"
	if len(cfg.CategoryFilter) > 0 {
		cats = strings.Trim(fmt.Sprint(cfg.CategoryFilter), "[]")
	}
	fmt.Fprintf(w, "interval:   %d min\n", cfg.IntervalMinutes)
	fmt.Fprintf(w, "per run:    %d\n", cfg.ItemsPerRun)
	fmt.Fprintf(w, "types:      %s\n", types)
	fmt.Fprintf(w, "categories: %s\n", cats)
	fmt.Fprintf(w, "logging:    %t\n", cfg.LoggingEnabled)
}
