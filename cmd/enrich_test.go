/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/
package cmd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seckatie/linksaver/internal/core"
	"github.com/seckatie/linksaver/internal/core/db"
	"github.com/seckatie/linksaver/internal/core/links"
	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/seckatie/linksaver/internal/core/tab"
)

type stubResolver struct {
	mu    sync.Mutex
	tabs  map[string]tab.Tab
	calls []string
}

func (r *stubResolver) Resolve(ctx context.Context, rawURL string) (tab.Tab, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, rawURL)
	t, ok := r.tabs[rawURL]
	if !ok {
		return tab.Tab{}, errors.New("unreachable")
	}
	return t, nil
}

func (r *stubResolver) called() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(db.NewMemoryGateway())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

// waitFor polls cond until it holds or a deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNeedsEnrichment(t *testing.T) {
	tests := []struct {
		name string
		item links.Item
		want bool
	}{
		{"bare url", links.Item{URL: "u", Title: "u", Icon: "i"}, true},
		{"no icon", links.Item{URL: "u", Title: "T"}, true},
		{"complete", links.Item{URL: "u", Title: "T", Icon: "i"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsEnrichment(tt.item); got != tt.want {
				t.Errorf("needsEnrichment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnrichers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestStore(t)
	resolver := &stubResolver{tabs: map[string]tab.Tab{
		"https://example.com": {URL: "https://example.com", Title: "Example Domain", FavIconURL: "https://example.com/favicon.ico"},
	}}
	wg := startEnrichers(ctx, s, resolver, 2)
	defer func() {
		cancel()
		wg.Wait()
	}()

	item, _, err := s.Add(ctx, "", links.Input{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}

	waitFor(t, func() bool {
		cats, err := s.Load(ctx)
		if err != nil {
			return false
		}
		_, idx, ok := cats.Find(links.Ref{ID: item.ID})
		return ok && cats[core.UnsortedCategory][idx].Title == "Example Domain"
	})

	cats, _ := s.Load(ctx)
	got := cats[core.UnsortedCategory][0]
	if got.Icon != "https://example.com/favicon.ico" {
		t.Errorf("expected icon to be filled in, got %q", got.Icon)
	}
}

func TestEnrichKeepsUserTitle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	resolver := &stubResolver{tabs: map[string]tab.Tab{
		"https://example.com": {URL: "https://example.com", Title: "Example Domain", FavIconURL: "https://example.com/favicon.ico"},
	}}

	item, _, err := s.Add(ctx, "Work", links.Input{URL: "https://example.com", Title: "My title"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	if err := enrich(ctx, s, resolver, links.Entry{Item: item, Category: "Work"}); err != nil {
		t.Fatalf("enrich failed: %v", err)
	}

	cats, _ := s.Load(ctx)
	got := cats["Work"][0]
	if got.Title != "My title" {
		t.Errorf("expected user title kept, got %q", got.Title)
	}
	if got.Icon == "" {
		t.Error("expected icon filled in")
	}
}

func TestEnrichKeepsEditMadeWhileQueued(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	resolver := &stubResolver{tabs: map[string]tab.Tab{
		"https://example.com": {URL: "https://example.com", Title: "Example Domain", FavIconURL: "https://example.com/favicon.ico"},
	}}

	item, _, err := s.Add(ctx, "", links.Input{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	queued := links.Entry{Item: item, Category: core.UnsortedCategory}
	if !needsEnrichment(queued.Item) {
		t.Fatal("expected bare link to need enrichment")
	}

	edit := "My edit"
	if _, _, err := s.UpdateItem(ctx, links.Ref{ID: item.ID}, store.ItemPatch{Title: &edit}); err != nil {
		t.Fatalf("failed to edit: %v", err)
	}

	if err := enrich(ctx, s, resolver, queued); err != nil {
		t.Fatalf("enrich failed: %v", err)
	}

	cats, _ := s.Load(ctx)
	got := cats[core.UnsortedCategory][0]
	if got.Title != "My edit" {
		t.Errorf("expected edited title to survive enrichment, got %q", got.Title)
	}
	if got.Icon != "https://example.com/favicon.ico" {
		t.Errorf("expected missing icon to be filled in, got %q", got.Icon)
	}
}

func TestEnrichErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	resolver := &stubResolver{}

	item := links.Item{ID: "x", URL: "https://down.example", Title: "https://down.example"}
	if err := enrich(ctx, s, resolver, links.Entry{Item: item}); err == nil {
		t.Error("expected resolver error")
	}
	if calls := resolver.called(); len(calls) != 1 {
		t.Errorf("expected 1 resolve call, got %d", len(calls))
	}
}
