/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/
package cmd

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/seckatie/linksaver/internal/core/links"
	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/seckatie/linksaver/internal/core/tab"
)

// needsEnrichment reports whether a link was saved without a real title or
// without an icon.
func needsEnrichment(it links.Item) bool {
	return it.Title == it.URL || strings.TrimSpace(it.Icon) == ""
}

// startEnrichers queues every newly added link that needs a title or icon and
// starts numWorkers workers that resolve it and patch the link in place. The
// returned WaitGroup is done once ctx is canceled and the workers have
// drained.
func startEnrichers(ctx context.Context, s *store.Store, resolver tab.Resolver, numWorkers int) *sync.WaitGroup {
	// Buffer for multiple links
	workQueue := make(chan links.Entry, numWorkers*10)

	s.RegisterEventListener(store.OnLinkAddedEvent, func(event store.Event) error {
		ev := event.(store.LinkAddedEvent)
		if !needsEnrichment(ev.Item) {
			return nil
		}
		select {
		case workQueue <- links.Entry{Item: ev.Item, Category: ev.Category}:
			log.Printf("Queued %s for enrichment", ev.Item.URL)
		default:
			log.Printf("Warning: enrichment queue full, %s keeps its saved title", ev.Item.URL)
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		workerID := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Enrichment worker %d started", workerID)
			for {
				select {
				case <-ctx.Done():
					log.Printf("Enrichment worker %d stopped", workerID)
					return
				case entry := <-workQueue:
					if err := enrich(ctx, s, resolver, entry); err != nil {
						log.Printf("Worker %d: enrichment failed for %s: %v", workerID, entry.URL, err)
					}
				}
			}
		}()
	}
	return &wg
}

// enrich resolves one link and fills in whatever it is still missing. The
// title and icon are only filled if the stored link still lacks them when the
// update is written, so an edit made while the link was queued wins. The link
// is addressed by id only, so a move made in the meantime does not lose the
// update.
func enrich(ctx context.Context, s *store.Store, resolver tab.Resolver, entry links.Entry) error {
	t, err := resolver.Resolve(ctx, entry.URL)
	if err != nil {
		return err
	}

	var patch store.ItemPatch
	if strings.TrimSpace(t.Title) != "" {
		patch.FillTitle = &t.Title
	}
	if t.FavIconURL != "" {
		patch.FillIcon = &t.FavIconURL
	}
	if patch.FillTitle == nil && patch.FillIcon == nil {
		return nil
	}

	_, found, err := s.UpdateItem(ctx, links.Ref{ID: entry.ID}, patch)
	if err != nil {
		return err
	}
	if !found {
		log.Printf("Link %s was deleted before it could be enriched", entry.URL)
	}
	return nil
}
