package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"draftpub/internal/publog"
	"draftpub/internal/report"
)

var errNoEntries = errors.New("publish log is empty")

var (
	historyType     string
	historyPage     int
	historyPageSize int
	statsDays       int
	exportOut       string
	clearYes        bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent publish log entries, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show publish counts per type and per day",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the publish log as CSV",
	Long: `Write the publish log as UTF-8 CSV with a byte order mark.

Without -o the file is named after the current time, e.g.
publish-log-20240305-141500.csv. Use "-o -" for stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var clearLogCmd = &cobra.Command{
	Use:   "clear-log",
	Short: "Delete every publish log entry",
	Args:  cobra.NoArgs,
	RunE:  runClearLog,
}

func init() {
	historyCmd.Flags().StringVarP(&historyType, "type", "t", "", "only entries of this item type")
	historyCmd.Flags().IntVarP(&historyPage, "page", "p", 1, "page number, starting at 1")
	historyCmd.Flags().IntVar(&historyPageSize, "page-size", report.DefaultPageSize, "entries per page")
	statsCmd.Flags().IntVar(&statsDays, "days", report.DefaultWindowDays, "daily window length")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file")
	clearLogCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip confirmation")

	rootCmd.AddCommand(historyCmd, statsCmd, exportCmd, clearLogCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.Entries(ctx)
	if err != nil {
		return err
	}
	page := report.Query(entries, historyType, historyPage, historyPageSize)

	out := cmd.OutOrStdout()
	if page.Total == 0 {
		fmt.Fprintln(out, "no entries")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PUBLISHED\tID\tTYPE\tTITLE\tURL")
	for _, e := range page.Entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", e.PublishedAt, e.ItemID, e.ItemType, e.Title, e.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d of %d (%d entries)\n", page.Page, max(page.TotalPages, 1), page.Total)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	if statsDays < 1 || statsDays > 366 {
		return fmt.Errorf("--days must be between 1 and 366")
	}
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.Entries(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "total: %d\n\nby type:\n", len(entries))
	for _, tc := range report.SortedTypeCounts(report.TypeCounts(entries)) {
		fmt.Fprintf(out, "  %-12s %d\n", tc.Type, tc.Count)
	}
	fmt.Fprintf(out, "\nlast %d days:\n", statsDays)
	for _, d := range report.DailyCounts(entries, a.Now(), statsDays) {
		fmt.Fprintf(out, "  %s  %3d %s\n", d.Day, d.Count, strings.Repeat("#", min(d.Count, 60)))
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.Entries(ctx)
	if err != nil {
		return err
	}
	if exportOut == "-" {
		return exportTo(cmd.OutOrStdout(), entries)
	}

	name := exportOut
	if name == "" {
		name = report.ExportFileName(a.Now())
	}
	if len(entries) == 0 {
		return errNoEntries
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := exportTo(f, entries); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d entries to %s\n", len(entries), name)
	return nil
}

func exportTo(w io.Writer, entries []publog.Entry) error {
	err := report.Exporter{BOM: true}.WriteTo(w, entries)
	if errors.Is(err, report.ErrNoDataToExport) {
		return errNoEntries
	}
	return err
}

func runClearLog(cmd *cobra.Command, _ []string) error {
	if !clearYes {
		fmt.Fprint(cmd.OutOrStdout(), "Delete the entire publish log? [y/N]: ")
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if ans := strings.ToLower(strings.TrimSpace(line)); ans != "y" && ans != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted")
			return nil
		}
	}
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ClearLog(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "publish log cleared")
	return nil
}
