/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/seckatie/linksaver/internal/core"
	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/spf13/cobra"
)

// saveCmd is the scriptable external save request, the shell counterpart of
// the bookmarklet. It always saves into Unsorted.
var saveCmd = &cobra.Command{
	Use:   "save URL [TITLE]",
	Short: "Save a link into Unsorted",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSave(cmd, args); err != nil {
			log.Fatalf("Save failed: %v", err)
		}
	},
}

func runSave(cmd *cobra.Command, args []string) error {
	icon, err := cmd.Flags().GetString("icon")
	if err != nil {
		return fmt.Errorf("failed to read --icon: %w", err)
	}
	var title string
	if len(args) > 1 {
		title = args[1]
	}

	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		item, added, err := s.SaveExternal(ctx, args[0], title, icon)
		if err != nil {
			return err
		}
		if added {
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", item.URL, core.UnsortedCategory)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Already saved: %s\n", item.URL)
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().String("icon", "", "Favicon URL or data URI")
}
