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

// removeCmd represents the rm command
var removeCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRemove(cmd, args); err != nil {
			log.Fatalf("Remove failed: %v", err)
		}
	},
}

func runRemove(cmd *cobra.Command, args []string) error {
	from, err := cmd.Flags().GetString("from")
	if err != nil {
		return fmt.Errorf("failed to read --from: %w", err)
	}

	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		removed, err := s.RemoveItem(ctx, links.Ref{ID: args[0], Category: from})
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to remove.")
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(removeCmd)

	removeCmd.Flags().String("from", "", "Category holding the link (default: search all)")
}
