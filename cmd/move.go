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

// moveCmd represents the move command
var moveCmd = &cobra.Command{
	Use:   "move ID CATEGORY",
	Short: "Move a link to another category",
	Long: `Move a link to another category, creating it if needed. If the target
category already holds the same URL, the moved link is merged into it.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMove(cmd, args); err != nil {
			log.Fatalf("Move failed: %v", err)
		}
	},
}

func runMove(cmd *cobra.Command, args []string) error {
	from, err := cmd.Flags().GetString("from")
	if err != nil {
		return fmt.Errorf("failed to read --from: %w", err)
	}

	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		res, err := s.MoveItem(ctx, links.Ref{ID: args[0], Category: from}, args[1])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case !res.Moved:
			fmt.Fprintln(out, "Nothing to move.")
		case res.Absorbed:
			fmt.Fprintf(out, "%s already had %s; removed it from %s\n", res.To, res.Item.URL, res.From)
		default:
			fmt.Fprintf(out, "Moved %s from %s to %s\n", res.Item.URL, res.From, res.To)
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(moveCmd)

	moveCmd.Flags().String("from", "", "Category holding the link (default: search all)")
}
