package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seckatie/linksaver/internal/core"
	"github.com/seckatie/linksaver/internal/core/db"
	"github.com/seckatie/linksaver/internal/core/links"
)

func sequentialIDs() links.Generator {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestStore(t *testing.T, gw db.Gateway, opts ...Option) *Store {
	t.Helper()
	fixed := time.UnixMilli(1700000000000)
	opts = append([]Option{WithIDGenerator(sequentialIDs()), WithClock(func() time.Time { return fixed })}, opts...)
	s, err := New(gw, opts...)
	require.NoError(t, err)
	return s
}

func persisted(t *testing.T, gw db.Gateway) links.Categories {
	t.Helper()
	doc, err := gw.Get(context.Background(), core.KeyCategories)
	require.NoError(t, err)
	var cats links.Categories
	if raw, ok := doc[core.KeyCategories]; ok {
		require.NoError(t, json.Unmarshal(raw, &cats))
	}
	return cats
}

func TestStoreAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("persists new link", func(t *testing.T) {
		gw := db.NewMemoryGateway()
		s := newTestStore(t, gw)

		item, added, err := s.Add(ctx, "", links.Input{URL: " https://a.com ", Tags: []string{"go"}})
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, "id-1", item.ID)
		assert.Equal(t, "https://a.com", item.URL)
		assert.Equal(t, "https://a.com", item.Title)
		assert.Equal(t, int64(1700000000000), item.CreatedAt)

		cats := persisted(t, gw)
		require.Len(t, cats[core.UnsortedCategory], 1)
		assert.Equal(t, item, cats[core.UnsortedCategory][0])
	})

	t.Run("duplicate does not write", func(t *testing.T) {
		mem := db.NewMemoryGateway()
		gw := &countingGateway{Gateway: mem}
		s := newTestStore(t, gw)

		_, _, err := s.Add(ctx, "Work", links.Input{URL: "https://a.com"})
		require.NoError(t, err)
		_, added, err := s.Add(ctx, "Work", links.Input{URL: "https://a.com"})
		require.NoError(t, err)
		assert.False(t, added)
		assert.Equal(t, 1, gw.sets)
	})

	t.Run("validation", func(t *testing.T) {
		s := newTestStore(t, db.NewMemoryGateway())

		_, _, err := s.Add(ctx, "", links.Input{URL: "  "})
		assert.ErrorIs(t, err, ErrEmptyURL)
		_, _, err = s.Add(ctx, core.AllCategories, links.Input{URL: "https://a.com"})
		assert.ErrorIs(t, err, ErrReservedCategory)
	})

	t.Run("save external always targets Unsorted", func(t *testing.T) {
		gw := db.NewMemoryGateway()
		s := newTestStore(t, gw)
		require.NoError(t, s.CreateCategory(ctx, "Work"))

		item, added, err := s.SaveExternal(ctx, "https://a.com", "", "data:image/png;base64,AA==")
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, "https://a.com", item.Title)
		assert.Len(t, persisted(t, gw)[core.UnsortedCategory], 1)
		assert.Empty(t, persisted(t, gw)["Work"])
	})

	t.Run("clears the legacy key on write", func(t *testing.T) {
		gw := db.NewMemoryGateway()
		seed(t, gw, map[string]any{
			core.KeyCategories: map[string]any{core.UnsortedCategory: []any{}},
			core.KeyLinks:      []map[string]any{{"id": "old", "url": "old"}},
		})
		s := newTestStore(t, gw)

		_, _, err := s.Add(ctx, "", links.Input{URL: "https://a.com"})
		require.NoError(t, err)
		doc, err := gw.Get(ctx)
		require.NoError(t, err)
		assert.NotContains(t, doc, core.KeyLinks)
	})
}

func TestStoreCategoryOperations(t *testing.T) {
	ctx := context.Background()
	gw := db.NewMemoryGateway()
	s := newTestStore(t, gw)

	require.NoError(t, s.CreateCategory(ctx, "Work"))
	require.NoError(t, s.CreateCategory(ctx, "Work"), "existing category is a no-op")
	_, _, err := s.Add(ctx, "Work", links.Input{URL: "http://work.com"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.CreateCategory(ctx, " "), ErrBlankCategory)
	assert.ErrorIs(t, s.RemoveCategory(ctx, core.UnsortedCategory), ErrUnsortedProtected)
	require.NoError(t, s.RemoveCategory(ctx, "Missing"))

	require.NoError(t, s.RemoveCategory(ctx, "Work"))
	cats := persisted(t, gw)
	assert.NotContains(t, cats, "Work")
	assert.Equal(t, []string{"http://work.com"}, urls(cats[core.UnsortedCategory]))
}

func TestStoreMoveRemoveUpdate(t *testing.T) {
	ctx := context.Background()
	gw := db.NewMemoryGateway()
	s := newTestStore(t, gw)

	x, _, err := s.Add(ctx, "Work", links.Input{URL: "X"})
	require.NoError(t, err)
	_, _, err = s.Add(ctx, core.UnsortedCategory, links.Input{URL: "X"})
	require.NoError(t, err)

	res, err := s.MoveItem(ctx, links.Ref{ID: x.ID, Category: "Work"}, core.UnsortedCategory)
	require.NoError(t, err)
	assert.True(t, res.Absorbed)
	cats := persisted(t, gw)
	assert.Empty(t, cats["Work"])
	assert.Len(t, cats[core.UnsortedCategory], 1)

	res, err = s.MoveItem(ctx, links.Ref{ID: x.ID, Category: "Work"}, "Other")
	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.NotContains(t, persisted(t, gw), "Other")

	_, err = s.MoveItem(ctx, links.Ref{ID: x.ID}, core.AllCategories)
	assert.ErrorIs(t, err, ErrReservedCategory)

	y, _, err := s.Add(ctx, "", links.Input{URL: "Y"})
	require.NoError(t, err)
	res, err = s.MoveItem(ctx, links.Ref{ID: y.ID}, "Later")
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.Equal(t, []string{"Y"}, urls(persisted(t, gw)["Later"]))

	notes := "check"
	entry, found, err := s.UpdateItem(ctx, links.Ref{ID: y.ID}, ItemPatch{Notes: &notes})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Later", entry.Category)
	assert.Equal(t, "check", persisted(t, gw)["Later"][0].Notes)

	removed, err := s.RemoveItem(ctx, links.Ref{ID: y.ID, Category: "Later"})
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.RemoveItem(ctx, links.Ref{ID: y.ID, Category: "Later"})
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, persisted(t, gw)["Later"])
}

func TestStoreProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, db.NewMemoryGateway())

	_, _, err := s.Add(ctx, "Work", links.Input{URL: "https://go.dev", Title: "Go"})
	require.NoError(t, err)
	_, _, err = s.Add(ctx, "", links.Input{URL: "https://example.com", Title: "Example"})
	require.NoError(t, err)

	rows, err := s.Project(ctx, core.AllCategories, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.Project(ctx, core.AllCategories, "go")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Work", rows[0].Category)
}

func TestStorePersistenceFailure(t *testing.T) {
	ctx := context.Background()
	mem := db.NewMemoryGateway()
	s := newTestStore(t, db.WithQuota(mem, db.Quota{BytesPerItem: 300}))

	_, _, err := s.Add(ctx, "", links.Input{URL: "https://a.com"})
	require.NoError(t, err)
	before := persisted(t, mem)

	events := 0
	s.RegisterEventListener(OnLinkAddedEvent, func(Event) error { events++; return nil })

	long := "https://example.com/" + strings.Repeat("abcdefghij", 40)
	_, _, err = s.Add(ctx, "", links.Input{URL: long})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, db.ErrQuotaExceeded)
	assert.Equal(t, before, persisted(t, mem), "document unchanged after a refused write")
	assert.Zero(t, events, "no event for a failed write")
}

func TestStoreReadsFreshState(t *testing.T) {
	ctx := context.Background()
	gw := db.NewMemoryGateway()
	a := newTestStore(t, gw)
	b := newTestStore(t, gw, WithIDGenerator(func() string { return "b" }))

	_, _, err := a.Add(ctx, "", links.Input{URL: "from-a"})
	require.NoError(t, err)
	_, _, err = b.Add(ctx, "", links.Input{URL: "from-b"})
	require.NoError(t, err)

	cats, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"from-b", "from-a"}, urls(cats[core.UnsortedCategory]))
}

// staleGateway serves a fixed snapshot to Get, simulating a writer that read
// before another process wrote.
type staleGateway struct {
	*db.MemoryGateway
	stale db.Document
}

func (g *staleGateway) Get(ctx context.Context, keys ...string) (db.Document, error) {
	return g.stale, nil
}

func TestStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	mem := db.NewMemoryGateway()
	s := newTestStore(t, mem)
	_, _, err := s.Add(ctx, "", links.Input{URL: "first"})
	require.NoError(t, err)

	stale, err := mem.Get(ctx)
	require.NoError(t, err)
	_, _, err = s.Add(ctx, "", links.Input{URL: "second"})
	require.NoError(t, err)

	late := newTestStore(t, &staleGateway{MemoryGateway: mem, stale: stale}, WithIDGenerator(func() string { return "late" }))
	_, _, err = late.Add(ctx, "", links.Input{URL: "third"})
	require.NoError(t, err)

	assert.Equal(t, []string{"third", "first"}, urls(persisted(t, mem)[core.UnsortedCategory]),
		"the later write replaces the concurrent one")
}

func TestStoreOptimisticRevisions(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects stale write", func(t *testing.T) {
		mem := db.NewMemoryGateway()
		s := newTestStore(t, mem, WithOptimisticRevisions())
		_, _, err := s.Add(ctx, "", links.Input{URL: "first"})
		require.NoError(t, err)

		stale, err := mem.Get(ctx)
		require.NoError(t, err)
		_, _, err = s.Add(ctx, "", links.Input{URL: "second"})
		require.NoError(t, err)

		late := newTestStore(t, &staleGateway{MemoryGateway: mem, stale: stale}, WithOptimisticRevisions())
		_, _, err = late.Add(ctx, "", links.Input{URL: "third"})
		assert.ErrorIs(t, err, ErrPersistence)
		assert.ErrorIs(t, err, db.ErrRevisionConflict)
		assert.Equal(t, []string{"second", "first"}, urls(persisted(t, mem)[core.UnsortedCategory]))
	})

	t.Run("increments revision", func(t *testing.T) {
		mem := db.NewMemoryGateway()
		s := newTestStore(t, mem, WithOptimisticRevisions())
		require.NoError(t, s.CreateCategory(ctx, "A"))
		require.NoError(t, s.CreateCategory(ctx, "B"))

		doc, err := mem.Get(ctx, core.KeyRevision)
		require.NoError(t, err)
		assert.JSONEq(t, "2", string(doc[core.KeyRevision]))
	})

	t.Run("works through a quota wrapper", func(t *testing.T) {
		_, err := New(db.WithQuota(db.NewMemoryGateway(), db.SyncQuota), WithOptimisticRevisions())
		assert.NoError(t, err)
	})

	t.Run("requires compare-and-set", func(t *testing.T) {
		gw, err := db.NewFileGateway(filepath.Join(t.TempDir(), "links.json"))
		require.NoError(t, err)
		_, err = New(gw, WithOptimisticRevisions())
		assert.ErrorIs(t, err, ErrRevisionsUnsupported)
	})
}

func TestStoreConcurrentAddsInProcess(t *testing.T) {
	ctx := context.Background()
	gw := db.NewMemoryGateway()
	s := newTestStore(t, gw)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := s.Add(ctx, "", links.Input{URL: fmt.Sprintf("https://%d.example", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, persisted(t, gw)[core.UnsortedCategory], 20, "in-process writes are serialized")
}

func TestStoreMigrateEmitsEvent(t *testing.T) {
	ctx := context.Background()
	gw := db.NewMemoryGateway()
	seed(t, gw, map[string]any{
		core.KeyLinks: []map[string]any{{"id": "1", "url": "x"}, {"id": "2", "url": "y"}},
	})
	s := newTestStore(t, gw)

	var count int
	s.RegisterEventListener(OnDocumentMigratedEvent, func(e Event) error {
		count = e.(DocumentMigratedEvent).Count
		return nil
	})

	cats, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, cats[core.UnsortedCategory], 2)
}

func TestStoreUpdateFillUsesStoredItem(t *testing.T) {
	ctx := context.Background()
	gw := &countingGateway{Gateway: db.NewMemoryGateway()}
	s := newTestStore(t, gw)

	item, _, err := s.Add(ctx, "", links.Input{URL: "https://example.com"})
	require.NoError(t, err)

	edit := "My edit"
	_, found, err := s.UpdateItem(ctx, links.Ref{ID: item.ID}, ItemPatch{Title: &edit})
	require.NoError(t, err)
	require.True(t, found)

	updates := 0
	s.RegisterEventListener(OnLinkUpdatedEvent, func(Event) error {
		updates++
		return nil
	})

	fetched, icon := "Example Domain", "https://example.com/favicon.ico"
	entry, found, err := s.UpdateItem(ctx, links.Ref{ID: item.ID}, ItemPatch{FillTitle: &fetched, FillIcon: &icon})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "My edit", entry.Title)
	assert.Equal(t, icon, entry.Icon)
	assert.Equal(t, "My edit", persisted(t, gw)[core.UnsortedCategory][0].Title)
	assert.Equal(t, 1, updates)

	writes := gw.sets
	entry, found, err = s.UpdateItem(ctx, links.Ref{ID: item.ID}, ItemPatch{FillTitle: &fetched, FillIcon: &icon})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "My edit", entry.Title)
	assert.Equal(t, writes, gw.sets, "a patch that changes nothing is not written")
	assert.Equal(t, 1, updates, "and emits no event")
}
