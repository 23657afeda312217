/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/

// The resolve command shows what the panel's "save tab" would store for a URL:
// its final address, title and favicon.
//
// Example usage:
//
//	linksaver resolve https://go.dev
//	linksaver resolve --resolver=browser --wait-selector="main" --headful https://example.com
//	linksaver resolve --save -c Reading https://example.com
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime"

	"github.com/seckatie/linksaver/internal/config"
	"github.com/seckatie/linksaver/internal/core/links"
	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/seckatie/linksaver/internal/core/tab"
	"github.com/spf13/cobra"
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve URL",
	Short: "Fetch a page's title and icon, optionally saving it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runResolve(cmd, args); err != nil {
			log.Fatalf("Resolve failed: %v", err)
		}
	},
}

// newResolver builds the resolver for the resolve command. Unlike the server,
// "none" is not accepted: resolving is the whole point of the command.
func newResolver(cmd *cobra.Command, cfg *config.Config) (tab.Resolver, error) {
	waitSelector, err := cmd.Flags().GetString("wait-selector")
	if err != nil {
		return nil, fmt.Errorf("failed to read --wait-selector: %w", err)
	}

	switch cfg.Resolver.Mode {
	case config.ResolverBrowser:
		chromePath := cfg.Resolver.ChromePath
		if chromePath == "" && runtime.GOOS == "darwin" {
			// Best-effort default for macOS.
			chromePath = "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
		}
		return &tab.BrowserResolver{
			ChromePath:   chromePath,
			Headless:     !cfg.Resolver.Headful,
			Timeout:      cfg.Resolver.Timeout,
			WaitSelector: waitSelector,
			InlineIcon:   cfg.Resolver.InlineIcon,
		}, nil
	case config.ResolverHTTP:
		return cfg.NewResolver(), nil
	default:
		return nil, fmt.Errorf("--resolver must be http or browser, got %q", cfg.Resolver.Mode)
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	resolver, err := newResolver(cmd, cfg)
	if err != nil {
		return err
	}
	save, err := cmd.Flags().GetBool("save")
	if err != nil {
		return fmt.Errorf("failed to read --save: %w", err)
	}
	category, err := cmd.Flags().GetString("category")
	if err != nil {
		return fmt.Errorf("failed to read --category: %w", err)
	}

	t, err := resolver.Resolve(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return err
	}
	if !save {
		return nil
	}

	return withStore(cmd, func(ctx context.Context, s *store.Store) error {
		item, added, err := s.Add(ctx, category, links.Input{URL: t.URL, Title: t.Title, Icon: t.FavIconURL})
		if err != nil {
			return err
		}
		if added {
			log.Printf("Saved %s as %s", item.URL, item.ID)
		} else {
			log.Printf("Already saved: %s", item.URL)
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().String("resolver", config.ResolverHTTP, "How to load the page: http or browser")
	resolveCmd.Flags().Duration("timeout", 0, "Per-page timeout (default 10s for http, 35s for browser)")
	resolveCmd.Flags().String("wait-selector", "", "Optional CSS selector to wait for (browser only, useful for JS-heavy pages)")
	resolveCmd.Flags().String("chrome-path", "", "Path to Chrome/Chromium executable")
	resolveCmd.Flags().Bool("headful", false, "Run Chrome with a visible window (not headless)")
	resolveCmd.Flags().Bool("inline-icon", true, "Store the favicon as a data URI")
	resolveCmd.Flags().Bool("save", false, "Save the resolved page")
	resolveCmd.Flags().StringP("category", "c", "", "Category to save into (default Unsorted)")
}
