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

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add URL",
	Short: "Add a link to a category",
	Long: `Add a link to a category (Unsorted by default). The category is created
if it does not exist. Adding a URL the category already holds does nothing.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAdd(cmd, args); err != nil {
			log.Fatalf("Add failed: %v", err)
		}
	},
}

func runAdd(cmd *cobra.Command, args []string) error {
	category, err := cmd.Flags().GetString("category")
	if err != nil {
		return fmt.Errorf("failed to read --category: %w", err)
	}
	title, err := cmd.Flags().GetString("title")
	if err != nil {
		return fmt.Errorf("failed to read --title: %w", err)
	}
	tags, err := cmd.Flags().GetString("tags")
	if err != nil {
		return fmt.Errorf("failed to read --tags: %w", err)
	}

	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		item, added, err := s.Add(ctx, category, links.Input{URL: args[0], Title: title, Tags: links.ParseTags(tags)})
		if err != nil {
			return err
		}
		if !added {
			fmt.Fprintf(cmd.OutOrStdout(), "Already saved: %s\n", item.URL)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), item.ID)
		return nil
	})
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringP("category", "c", "", "Category to add to (default Unsorted)")
	addCmd.Flags().StringP("title", "t", "", "Link title (default: the URL)")
	addCmd.Flags().String("tags", "", "Comma separated tags")
}
