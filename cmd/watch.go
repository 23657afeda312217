/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/seckatie/linksaver/internal/core/db"
	"github.com/spf13/cobra"
)

// watchCmd re-lists links whenever the document file changes, whichever
// process changed it. It works with file and SQLite documents.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "List links and list them again whenever they change",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWatch(cmd); err != nil {
			log.Fatalf("Watch failed: %v", err)
		}
	},
}

func runWatch(cmd *cobra.Command) error {
	category, q, asJSON, err := listOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	s, gw, err := initStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer gw.Close()

	path, ok := db.PathOf(gw)
	if !ok {
		return fmt.Errorf("cannot watch %s: not a file or SQLite document", cfg.DB)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	render := func() {
		rows, err := s.Project(ctx, category, q)
		if err != nil {
			log.Printf("Failed to read links: %v", err)
			return
		}
		if !asJSON {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if err := printEntries(cmd.OutOrStdout(), rows, asJSON); err != nil {
			log.Printf("Failed to print links: %v", err)
		}
	}

	render()
	log.Printf("Watching %s for changes", path)
	return db.Watch(ctx, path, render)
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addListFlags(watchCmd)
}
