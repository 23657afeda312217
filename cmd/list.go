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

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List links, newest first",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runList(cmd); err != nil {
			log.Fatalf("List failed: %v", err)
		}
	},
}

// listOptions reads the filter flags shared by list and watch.
func listOptions(cmd *cobra.Command) (category, q string, asJSON bool, err error) {
	if category, err = cmd.Flags().GetString("category"); err != nil {
		return "", "", false, fmt.Errorf("failed to read --category: %w", err)
	}
	if q, err = cmd.Flags().GetString("query"); err != nil {
		return "", "", false, fmt.Errorf("failed to read --query: %w", err)
	}
	if asJSON, err = cmd.Flags().GetBool("json"); err != nil {
		return "", "", false, fmt.Errorf("failed to read --json: %w", err)
	}
	return category, q, asJSON, nil
}

func runList(cmd *cobra.Command) error {
	category, q, asJSON, err := listOptions(cmd)
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		rows, err := s.Project(ctx, category, q)
		if err != nil {
			return err
		}
		return printEntries(cmd.OutOrStdout(), rows, asJSON)
	})
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("category", "c", core.AllCategories, "Category to show")
	cmd.Flags().StringP("query", "q", "", "Only links whose title, URL or tags contain this text")
	cmd.Flags().Bool("json", false, "Output as JSON")
}

func init() {
	rootCmd.AddCommand(listCmd)
	addListFlags(listCmd)
}
