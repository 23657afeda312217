/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/spf13/cobra"
)

// migrateCmd converts a legacy flat link list into categories. Every command
// does this on first read; migrate does it on its own and reports the result.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move a legacy flat link list into the Unsorted category",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMigrate(cmd); err != nil {
			log.Fatalf("Migrate failed: %v", err)
		}
	},
}

func runMigrate(cmd *cobra.Command) error {
	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		migrated := 0
		s.RegisterEventListener(store.OnDocumentMigratedEvent, func(event store.Event) error {
			migrated = event.(store.DocumentMigratedEvent).Count
			return nil
		})

		cats, err := s.Migrate(ctx)
		if err != nil {
			return err
		}
		if migrated == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Nothing to migrate: %d link(s) in %d categories.\n", cats.Count(), len(cats))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d link(s).\n", migrated)
		return nil
	})
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
