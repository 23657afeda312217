// Package links defines the bookmark item model: items, the category map that
// holds them, and the annotated entries handed to rendering.
package links

import (
	"sort"
	"strings"
	"time"

	"github.com/seckatie/linksaver/internal/core"
)

// Item is a saved link. The category an item belongs to is not stored on the
// item; it is implied by the category list that contains it.
type Item struct {
	ID    string   `json:"id"`
	URL   string   `json:"url"`
	Title string   `json:"title"`
	Icon  string   `json:"icon"`
	Tags  []string `json:"tags"`
	Notes string   `json:"notes"`
	// CreatedAt is epoch milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// Input carries the caller supplied fields of a new item.
type Input struct {
	URL   string
	Title string
	Icon  string
	Tags  []string
}

// New builds an item with a fresh id from gen and a creation time from now.
func New(gen Generator, now func() time.Time, in Input) Item {
	url := strings.TrimSpace(in.URL)
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = url
	}
	tags := make([]string, len(in.Tags))
	copy(tags, in.Tags)
	return Item{
		ID:        gen(),
		URL:       url,
		Title:     title,
		Icon:      in.Icon,
		Tags:      tags,
		Notes:     "",
		CreatedAt: now().UnixMilli(),
	}
}

// ParseTags splits a comma separated tag string. Entries are trimmed and empty
// entries dropped; order and duplicates are kept.
func ParseTags(s string) []string {
	tags := []string{}
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Normalize fills defaults on an item decoded from storage.
func (it Item) Normalize() Item {
	if strings.TrimSpace(it.Title) == "" {
		it.Title = it.URL
	}
	if it.Tags == nil {
		it.Tags = []string{}
	}
	return it
}

// Clone returns a copy that shares no slices with it.
func (it Item) Clone() Item {
	out := it
	out.Tags = make([]string, len(it.Tags))
	copy(out.Tags, it.Tags)
	return out
}

// Created returns the creation time.
func (it Item) Created() time.Time {
	return time.UnixMilli(it.CreatedAt)
}

// Entry is an item annotated with the category that holds it. Entries exist
// only in query results and as move/remove arguments; they are never persisted.
type Entry struct {
	Item
	Category string `json:"category"`
}

// Ref returns the reference addressing this entry.
func (e Entry) Ref() Ref {
	return Ref{ID: e.ID, Category: e.Category}
}

// Ref addresses an item by id. An empty Category means "any category".
type Ref struct {
	ID       string
	Category string
}

// Categories maps a category name to its items, most recently added first.
type Categories map[string][]Item

// Clone deep-copies the map so transforms never alias their input.
func (c Categories) Clone() Categories {
	out := make(Categories, len(c))
	for name, items := range c {
		cp := make([]Item, len(items))
		for i, it := range items {
			cp[i] = it.Clone()
		}
		out[name] = cp
	}
	return out
}

// Names returns category names in display order: Unsorted first, then the
// rest lexically.
func (c Categories) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		if name != core.UnsortedCategory {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := c[core.UnsortedCategory]; ok {
		names = append([]string{core.UnsortedCategory}, names...)
	}
	return names
}

// Count returns the total number of items across all categories.
func (c Categories) Count() int {
	n := 0
	for _, items := range c {
		n += len(items)
	}
	return n
}

// Find locates an item by ref. It returns the owning category and the index
// within it, or ok=false.
func (c Categories) Find(ref Ref) (category string, index int, ok bool) {
	if ref.Category != "" {
		for i, it := range c[ref.Category] {
			if it.ID == ref.ID {
				return ref.Category, i, true
			}
		}
		return "", -1, false
	}
	for _, name := range c.Names() {
		for i, it := range c[name] {
			if it.ID == ref.ID {
				return name, i, true
			}
		}
	}
	return "", -1, false
}

// HasURL reports whether the named category already holds url.
func (c Categories) HasURL(category, url string) bool {
	for _, it := range c[category] {
		if it.URL == url {
			return true
		}
	}
	return false
}

// Empty returns a category map holding only an empty Unsorted category.
func Empty() Categories {
	return Categories{core.UnsortedCategory: []Item{}}
}
