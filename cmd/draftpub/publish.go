package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"draftpub/internal/publisher"
)

var publishType string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish pending drafts now",
	Long: `Run one publish pass immediately using the stored settings.

--type restricts this pass to a single item type and is not saved.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVarP(&publishType, "type", "t", "", "publish only this item type")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.PublishNow(ctx, publishType)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "nothing to publish")
		return nil
	}
	var failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(out, "item %d: failed: %v\n", r.ItemID, r.Err)
		case r.Duplicate:
			fmt.Fprintf(out, "item %d: already published\n", r.ItemID)
		case r.Entry != nil:
			fmt.Fprintf(out, "item %d: published %q [%s]\n", r.ItemID, r.Entry.Title, r.Entry.ItemType)
		default:
			fmt.Fprintf(out, "item %d: published\n", r.ItemID)
		}
		if r.LogErr != nil {
			fmt.Fprintf(out, "item %d: log append failed: %v\n", r.ItemID, r.LogErr)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d items failed: %w", failed, len(results), publisher.ErrPublish)
	}
	return nil
}
