/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/seckatie/linksaver/internal/config"
	"github.com/seckatie/linksaver/internal/core/db"
	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/seckatie/linksaver/internal/core/web"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "linksaver",
	Short: "Save links into categories and find them again",
	Long: `linksaver keeps your saved links in named categories inside one small
document. Running it without a subcommand serves the link panel and a
bookmarklet endpoint; the subcommands work on the same document from the
shell.

Every change reads the document fresh and writes it back whole, so the panel,
the CLI and other machines sharing the document see each other's changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		s, gw, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}

		registerLogListeners(s)

		resolver := cfg.NewResolver()
		if resolver != nil && cfg.EnrichWorkers > 0 {
			// Workers run for the life of the server.
			startEnrichers(context.Background(), s, resolver, cfg.EnrichWorkers)
		}

		// Start the web server
		err = web.StartServer(cfg.Addr(), s, resolver)
		if cerr := gw.Close(); cerr != nil {
			log.Printf("Failed to close store: %v", cerr)
		}
		if err != nil {
			log.Fatalf("Web server failed: %v", err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: $XDG_CONFIG_HOME/linksaver/config.yaml)")
	rootCmd.PersistentFlags().StringP("db", "d", "linksaver.db", "Document location: a .json or .db path, or a memory://, file://, sqlite:// or postgres:// DSN")
	rootCmd.PersistentFlags().Bool("strict", false, "Reject writes based on a stale read instead of overwriting")
	rootCmd.PersistentFlags().String("quota", config.QuotaNone, "Storage quota preset: none or sync")
	rootCmd.PersistentFlags().String("id-generator", config.IDUUIDv7, "Id scheme for new links: uuidv7, uuidv4 or time")

	rootCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.Flags().String("host", "localhost", "Host to listen on")
	rootCmd.Flags().String("resolver", config.ResolverHTTP, "Page resolver for tab saves and enrichment: http, browser or none")

	// Enrichment workers flags
	rootCmd.Flags().IntP("enrich-workers", "w", 1, "Number of workers filling in titles and icons of new links")
}

// loadConfig merges the config file, environment and the flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to read --config: %w", err)
	}
	return config.Load(configFile, cmd.Flags())
}

// initStore opens the configured gateway and builds a Store on it. The caller
// closes the returned gateway.
func initStore(cfg *config.Config) (*store.Store, db.Gateway, error) {
	gw, err := db.Open(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.DB, err)
	}
	gw = db.WithQuota(gw, cfg.Quota)

	opts := []store.Option{store.WithIDGenerator(cfg.NewIDGenerator())}
	if cfg.Strict {
		opts = append(opts, store.WithOptimisticRevisions())
	}
	s, err := store.New(gw, opts...)
	if err != nil {
		gw.Close()
		return nil, nil, err
	}
	return s, gw, nil
}

// registerLogListeners logs every change the store makes.
func registerLogListeners(s *store.Store) {
	s.RegisterEventListener(store.OnLinkAddedEvent, func(event store.Event) error {
		ev := event.(store.LinkAddedEvent)
		log.Printf("Saved %s into %q", ev.Item.URL, ev.Category)
		return nil
	})
	s.RegisterEventListener(store.OnLinkDuplicateEvent, func(event store.Event) error {
		ev := event.(store.LinkDuplicateEvent)
		log.Printf("%s is already in %q, nothing saved", ev.URL, ev.Category)
		return nil
	})
	s.RegisterEventListener(store.OnLinkMovedEvent, func(event store.Event) error {
		ev := event.(store.LinkMovedEvent)
		log.Printf("Moved %s from %q to %q", ev.Item.URL, ev.From, ev.To)
		return nil
	})
	s.RegisterEventListener(store.OnLinkAbsorbedEvent, func(event store.Event) error {
		ev := event.(store.LinkAbsorbedEvent)
		log.Printf("Moved %s out of %q; %q already had it", ev.Item.URL, ev.From, ev.To)
		return nil
	})
	s.RegisterEventListener(store.OnLinkRemovedEvent, func(event store.Event) error {
		ev := event.(store.LinkRemovedEvent)
		log.Printf("Deleted %s from %q", ev.Item.URL, ev.Category)
		return nil
	})
	s.RegisterEventListener(store.OnCategoryCreatedEvent, func(event store.Event) error {
		log.Printf("Created category %q", event.(store.CategoryCreatedEvent).Name)
		return nil
	})
	s.RegisterEventListener(store.OnCategoryRemovedEvent, func(event store.Event) error {
		ev := event.(store.CategoryRemovedEvent)
		log.Printf("Removed category %q: %d link(s) moved to Unsorted, %d duplicate(s) dropped", ev.Name, len(ev.Rehomed), ev.Dropped)
		return nil
	})
	s.RegisterEventListener(store.OnDocumentMigratedEvent, func(event store.Event) error {
		log.Printf("Migrated %d legacy link(s)", event.(store.DocumentMigratedEvent).Count)
		return nil
	})
}
