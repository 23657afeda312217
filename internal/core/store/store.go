// Package store owns the category document: its schema, the migration from
// the legacy flat list, the invariant-preserving transforms, and the Store
// service that applies them through a db.Gateway.
//
// Every Store mutation reads the whole document fresh, applies one pure
// transform and writes the whole category map back. Mutations inside one
// process are serialized. Between processes there is no lock: if another
// process writes between this process's read and write, the later write
// replaces the earlier one. With optimistic revisions enabled the stale write
// is rejected with db.ErrRevisionConflict instead.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/seckatie/linksaver/internal/core"
	"github.com/seckatie/linksaver/internal/core/db"
	"github.com/seckatie/linksaver/internal/core/links"
	"github.com/seckatie/linksaver/internal/core/query"
)

type Store struct {
	gw   db.Gateway
	swap db.Swapper // set when optimistic revisions are enabled
	ids  links.Generator
	now  func() time.Time

	revisions bool
	mu        sync.Mutex

	listenersMu    sync.Mutex
	eventListeners map[EventKind][]EventListener
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the item id generator. The default is links.Strong.
func WithIDGenerator(gen links.Generator) Option {
	return func(s *Store) { s.ids = gen }
}

// WithClock sets the time source used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithOptimisticRevisions makes every write conditional on the document
// revision read before it.
func WithOptimisticRevisions() Option {
	return func(s *Store) { s.revisions = true }
}

func New(gw db.Gateway, opts ...Option) (*Store, error) {
	s := &Store{
		gw:             gw,
		ids:            links.Strong(),
		now:            time.Now,
		eventListeners: make(map[EventKind][]EventListener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.revisions {
		swap, ok := db.AsSwapper(gw)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrRevisionsUnsupported, gw)
		}
		s.swap = swap
	}
	return s, nil
}

// Migrate runs the legacy migration if the document still needs it and
// returns the current categories.
func (s *Store) Migrate(ctx context.Context) (links.Categories, error) {
	return s.Load(ctx)
}

// Load reads the current categories.
func (s *Store) Load(ctx context.Context) (links.Categories, error) {
	s.mu.Lock()
	snap, err := loadSnapshot(ctx, s.gw, s.ids)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if snap.migrated > 0 {
		s.emit(DocumentMigratedEvent{Count: snap.migrated})
	}
	return snap.cats, nil
}

// Project reads the document and returns the rows for filter and q.
func (s *Store) Project(ctx context.Context, filter, q string) ([]links.Entry, error) {
	cats, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return query.Project(cats, filter, q), nil
}

// Add creates an item from in and adds it to category (Unsorted when blank).
// If the category already holds the URL nothing is written and added is
// false.
func (s *Store) Add(ctx context.Context, category string, in links.Input) (item links.Item, added bool, err error) {
	if strings.TrimSpace(in.URL) == "" {
		return links.Item{}, false, ErrEmptyURL
	}
	category = categoryOrUnsorted(category)
	if category == core.AllCategories {
		return links.Item{}, false, ErrReservedCategory
	}
	item = links.New(s.ids, s.now, in)

	err = s.mutate(ctx, func(cats links.Categories) (links.Categories, []Event, error) {
		next, ok := AddToCategory(cats, category, item)
		if !ok {
			return nil, []Event{LinkDuplicateEvent{URL: item.URL, Category: category}}, nil
		}
		added = true
		return next, []Event{LinkAddedEvent{Item: item, Category: category}}, nil
	})
	if err != nil {
		return links.Item{}, false, err
	}
	return item, added, nil
}

// SaveExternal handles a save request from outside the panel. It always
// targets Unsorted; a blank title falls back to the URL.
func (s *Store) SaveExternal(ctx context.Context, url, title, icon string) (links.Item, bool, error) {
	return s.Add(ctx, core.UnsortedCategory, links.Input{URL: url, Title: title, Icon: icon})
}

// CreateCategory adds an empty category. Existing names are a no-op.
func (s *Store) CreateCategory(ctx context.Context, name string) error {
	if _, err := validCategoryName(name); err != nil {
		return err
	}
	return s.mutate(ctx, func(cats links.Categories) (links.Categories, []Event, error) {
		next, created, err := CreateCategory(cats, name)
		if err != nil || !created {
			return nil, nil, err
		}
		return next, []Event{CategoryCreatedEvent{Name: strings.TrimSpace(name)}}, nil
	})
}

// RemoveCategory removes a category, rehoming its links into Unsorted.
func (s *Store) RemoveCategory(ctx context.Context, name string) error {
	// Refuse before reading so a rejection never depends on storage.
	if _, _, _, err := RemoveCategory(links.Empty(), name); err != nil {
		return err
	}
	return s.mutate(ctx, func(cats links.Categories) (links.Categories, []Event, error) {
		before := len(cats[strings.TrimSpace(name)])
		next, removed, rehomed, err := RemoveCategory(cats, name)
		if err != nil || !removed {
			return nil, nil, err
		}
		return next, []Event{CategoryRemovedEvent{
			Name:    strings.TrimSpace(name),
			Rehomed: rehomed,
			Dropped: before - len(rehomed),
		}}, nil
	})
}

// MoveItem moves the referenced link to category to.
func (s *Store) MoveItem(ctx context.Context, ref links.Ref, to string) (MoveResult, error) {
	if _, err := validCategoryName(to); err != nil {
		return MoveResult{}, err
	}
	var res MoveResult
	err := s.mutate(ctx, func(cats links.Categories) (links.Categories, []Event, error) {
		next, r, err := MoveItem(cats, ref, to)
		if err != nil || !r.Moved {
			return nil, nil, err
		}
		res = r
		if r.Absorbed {
			return next, []Event{LinkAbsorbedEvent{Item: r.Item, From: r.From, To: r.To}}, nil
		}
		return next, []Event{LinkMovedEvent{Item: r.Item, From: r.From, To: r.To}}, nil
	})
	return res, err
}

// RemoveItem deletes the referenced link. A missing link is not an error;
// removed reports whether anything was deleted.
func (s *Store) RemoveItem(ctx context.Context, ref links.Ref) (removed bool, err error) {
	err = s.mutate(ctx, func(cats links.Categories) (links.Categories, []Event, error) {
		next, entry, ok := RemoveItem(cats, ref)
		if !ok {
			return nil, nil, nil
		}
		removed = true
		return next, []Event{LinkRemovedEvent{Item: entry.Item, Category: entry.Category}}, nil
	})
	return removed, err
}

// UpdateItem changes display fields of the referenced link. A patch that
// changes nothing is not written and emits no event.
func (s *Store) UpdateItem(ctx context.Context, ref links.Ref, patch ItemPatch) (links.Entry, bool, error) {
	var (
		updated links.Entry
		found   bool
	)
	err := s.mutate(ctx, func(cats links.Categories) (links.Categories, []Event, error) {
		next, entry, ok, changed := UpdateItem(cats, ref, patch)
		if !ok {
			return nil, nil, nil
		}
		updated, found = entry, true
		if !changed {
			return nil, nil, nil
		}
		return next, []Event{LinkUpdatedEvent{Item: entry.Item, Category: entry.Category}}, nil
	})
	return updated, found, err
}

// transform computes the next category map. A nil map means nothing changed
// and nothing is written; events are still emitted.
type transform func(cats links.Categories) (links.Categories, []Event, error)

func (s *Store) mutate(ctx context.Context, fn transform) error {
	events, err := s.commit(ctx, fn)
	for _, ev := range events {
		s.emit(ev)
	}
	return err
}

// commit runs one read-transform-write cycle under the process lock and
// returns the events to emit once the lock is released.
func (s *Store) commit(ctx context.Context, fn transform) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := loadSnapshot(ctx, s.gw, s.ids)
	if err != nil {
		return nil, err
	}
	var events []Event
	if snap.migrated > 0 {
		events = append(events, DocumentMigratedEvent{Count: snap.migrated})
	}

	next, produced, err := fn(snap.cats)
	if err != nil {
		return events, err
	}
	if next == nil {
		return append(events, produced...), nil
	}
	if err := s.write(ctx, snap, next); err != nil {
		return events, err
	}
	return append(events, produced...), nil
}

func (s *Store) write(ctx context.Context, snap snapshot, cats links.Categories) error {
	raw, err := json.Marshal(cats)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	patch := db.Document{
		core.KeyCategories: raw,
		core.KeyLinks:      nil,
	}

	if s.swap == nil {
		if err := s.gw.Set(ctx, patch); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return nil
	}

	rev, err := parseRevision(snap.revision)
	if err != nil {
		return err
	}
	patch[core.KeyRevision] = json.RawMessage(strconv.FormatInt(rev+1, 10))
	if err := s.swap.CompareAndSet(ctx, core.KeyRevision, snap.revision, patch); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func parseRevision(raw json.RawMessage) (int64, error) {
	if isAbsent(raw) {
		return 0, nil
	}
	var rev int64
	if err := json.Unmarshal(raw, &rev); err != nil {
		return 0, fmt.Errorf("%w: revision: %v", ErrInvalidDocument, err)
	}
	return rev, nil
}
