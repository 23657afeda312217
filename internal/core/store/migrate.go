package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/seckatie/linksaver/internal/core"
	"github.com/seckatie/linksaver/internal/core/db"
	"github.com/seckatie/linksaver/internal/core/links"
)

// snapshot is one fresh read of the persisted document.
type snapshot struct {
	cats     links.Categories
	revision json.RawMessage
	// migrated is the number of legacy items moved into the current shape
	// by this read, or 0.
	migrated int
}

// LoadCurrentShape reads the document and returns its categories in the
// current shape, migrating the legacy flat list first if needed:
//
//   - a non-empty current shape is returned as is; legacy data is ignored;
//   - otherwise a non-empty legacy list becomes {"Unsorted": list}, which is
//     written back with the legacy key cleared in the same write;
//   - otherwise an empty Unsorted category is returned and nothing is written.
//
// Running it again after a migration performs no write.
func LoadCurrentShape(ctx context.Context, gw db.Gateway) (links.Categories, error) {
	snap, err := loadSnapshot(ctx, gw, links.Strong())
	if err != nil {
		return nil, err
	}
	return snap.cats, nil
}

// loadSnapshot implements LoadCurrentShape. gen assigns ids to legacy items
// saved without one.
func loadSnapshot(ctx context.Context, gw db.Gateway, gen links.Generator) (snapshot, error) {
	doc, err := gw.Get(ctx, core.KeyCategories, core.KeyLinks, core.KeyRevision)
	if err != nil {
		return snapshot{}, fmt.Errorf("failed to read document: %w", err)
	}
	snap := snapshot{revision: doc[core.KeyRevision]}

	cats, err := decodeCategories(doc[core.KeyCategories])
	if err != nil {
		return snapshot{}, err
	}
	if len(cats) > 0 {
		snap.cats = normalizeCategories(cats)
		return snap, nil
	}

	legacy := decodeLegacy(doc[core.KeyLinks])
	if len(legacy) == 0 {
		snap.cats = links.Empty()
		return snap, nil
	}

	unsorted := make([]links.Item, 0, len(legacy))
	seen := make(map[string]bool, len(legacy))
	for _, it := range legacy {
		if seen[it.URL] {
			continue
		}
		seen[it.URL] = true
		if it.ID == "" {
			it.ID = gen()
		}
		unsorted = append(unsorted, it.Normalize())
	}
	cats = links.Categories{core.UnsortedCategory: unsorted}

	raw, err := json.Marshal(cats)
	if err != nil {
		return snapshot{}, fmt.Errorf("failed to encode categories: %w", err)
	}
	if err := gw.Set(ctx, db.Document{core.KeyCategories: raw, core.KeyLinks: nil}); err != nil {
		return snapshot{}, fmt.Errorf("%w: failed to persist migrated document: %w", ErrPersistence, err)
	}
	log.Printf("Migrated %d legacy link(s) into %q", len(unsorted), core.UnsortedCategory)

	snap.cats = cats
	snap.migrated = len(unsorted)
	return snap, nil
}

func decodeCategories(raw json.RawMessage) (links.Categories, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	if err := validateRaw(categoriesSchema, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var cats links.Categories
	if err := json.Unmarshal(raw, &cats); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return cats, nil
}

// decodeLegacy returns the legacy list, or nil if it is absent or not a list
// of items.
func decodeLegacy(raw json.RawMessage) []links.Item {
	if isAbsent(raw) {
		return nil
	}
	if err := validateRaw(legacySchema, raw); err != nil {
		log.Printf("Ignoring malformed legacy %q value: %v", core.KeyLinks, err)
		return nil
	}
	var items []links.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Printf("Ignoring malformed legacy %q value: %v", core.KeyLinks, err)
		return nil
	}
	return items
}

func normalizeCategories(cats links.Categories) links.Categories {
	for name, items := range cats {
		if items == nil {
			items = []links.Item{}
		}
		for i := range items {
			items[i] = items[i].Normalize()
		}
		cats[name] = items
	}
	if _, ok := cats[core.UnsortedCategory]; !ok {
		cats[core.UnsortedCategory] = []links.Item{}
	}
	return cats
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
