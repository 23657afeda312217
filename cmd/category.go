/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"text/tabwriter"

	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/spf13/cobra"
)

// categoryCmd groups the category subcommands
var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"cat"},
	Short:   "Create, remove and list categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create an empty category",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCategoryAdd(cmd, args); err != nil {
			log.Fatalf("Create category failed: %v", err)
		}
	},
}

var categoryRemoveCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove a category, moving its links to Unsorted",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCategoryRemove(cmd, args); err != nil {
			log.Fatalf("Remove category failed: %v", err)
		}
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List categories with their link counts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCategoryList(cmd); err != nil {
			log.Fatalf("List categories failed: %v", err)
		}
	},
}

func runCategoryAdd(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		return s.CreateCategory(ctx, args[0])
	})
}

func runCategoryRemove(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		return s.RemoveCategory(ctx, args[0])
	})
}

func runCategoryList(cmd *cobra.Command) error {
	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		cats, err := s.Load(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, name := range cats.Names() {
			fmt.Fprintf(tw, "%s\t%d\n", name, len(cats[name]))
		}
		return tw.Flush()
	})
}

func init() {
	rootCmd.AddCommand(categoryCmd)
	categoryCmd.AddCommand(categoryAddCmd, categoryRemoveCmd, categoryListCmd)
}
