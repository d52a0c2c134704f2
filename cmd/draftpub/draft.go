package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"draftpub/internal/catalog"
)

var (
	draftTitle      string
	draftURL        string
	draftType       string
	draftCategories []int64
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Manage draft items in the catalog",
}

var draftAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a draft item",
	Args:  cobra.NoArgs,
	RunE:  runDraftAdd,
}

var draftCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count catalog items by status",
	Args:  cobra.NoArgs,
	RunE:  runDraftCount,
}

func init() {
	draftAddCmd.Flags().StringVar(&draftTitle, "title", "", "item title (required)")
	draftAddCmd.Flags().StringVar(&draftURL, "url", "", "item permalink")
	draftAddCmd.Flags().StringVarP(&draftType, "type", "t", "", "item type (default post)")
	draftAddCmd.Flags().Int64SliceVar(&draftCategories, "category", nil, "category id, repeatable")
	_ = draftAddCmd.MarkFlagRequired("title")

	draftCmd.AddCommand(draftAddCmd, draftCountCmd)
	rootCmd.AddCommand(draftCmd)
}

func runDraftAdd(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(draftTitle) == "" {
		return fmt.Errorf("--title must not be empty")
	}
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.Catalog().AddDraft(ctx, catalog.Draft{
		Title:      draftTitle,
		URL:        draftURL,
		Type:       draftType,
		Categories: draftCategories,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "draft %d added\n", id)
	return nil
}

func runDraftCount(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	counts, err := a.Catalog().CountByStatus(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d\n", catalog.StatusDraft, counts[catalog.StatusDraft])
	fmt.Fprintf(out, "%s: %d\n", catalog.StatusPublished, counts[catalog.StatusPublished])
	return nil
}
