/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/seckatie/linksaver/internal/core/links"
	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/spf13/cobra"
)

// editCmd represents the edit command
var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change a link's title, tags, notes or icon",
	Long: `Change the display fields of a link. Only the flags given are changed.
The URL of a link cannot be edited; add the new URL and remove the old link.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runEdit(cmd, args); err != nil {
			log.Fatalf("Edit failed: %v", err)
		}
	},
}

func runEdit(cmd *cobra.Command, args []string) error {
	from, err := cmd.Flags().GetString("from")
	if err != nil {
		return fmt.Errorf("failed to read --from: %w", err)
	}

	var patch store.ItemPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		patch.Title = &v
	}
	if flags.Changed("icon") {
		v, _ := flags.GetString("icon")
		patch.Icon = &v
	}
	if flags.Changed("notes") {
		v, _ := flags.GetString("notes")
		patch.Notes = &v
	}
	if flags.Changed("tags") {
		v, _ := flags.GetString("tags")
		patch.Tags = links.ParseTags(v)
	}
	if patch.Title == nil && patch.Icon == nil && patch.Notes == nil && patch.Tags == nil {
		return fmt.Errorf("nothing to change: pass --title, --tags, --notes or --icon")
	}

	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		entry, found, err := s.UpdateItem(ctx, links.Ref{ID: args[0], Category: from}, patch)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("link not found: %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s in %s\n", entry.URL, entry.Category)
		return nil
	})
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().String("from", "", "Category holding the link (default: search all)")
	editCmd.Flags().StringP("title", "t", "", "New title (empty resets to the URL)")
	editCmd.Flags().String("tags", "", "New comma separated tags (replaces existing)")
	editCmd.Flags().String("notes", "", "New notes")
	editCmd.Flags().String("icon", "", "New favicon URL or data URI")
}
