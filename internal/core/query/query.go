// Package query projects the category store into the ordered rows a panel
// renders. Everything here is pure and cheap enough to run on every keystroke.
package query

import (
	"sort"
	"strings"

	"github.com/seckatie/linksaver/internal/core"
	"github.com/seckatie/linksaver/internal/core/links"
)

// Project returns the items of the selected category (every category for
// "All" or an empty filter) that match q, newest first. Items with equal
// creation times keep their store order: categories in display order, items
// in category order.
func Project(cats links.Categories, filter string, q string) []links.Entry {
	var names []string
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == core.AllCategories {
		names = cats.Names()
	} else if _, ok := cats[filter]; ok {
		names = []string{filter}
	}

	q = normalize(q)
	rows := []links.Entry{}
	for _, name := range names {
		for _, it := range cats[name] {
			if matches(it, q) {
				rows = append(rows, links.Entry{Item: it.Clone(), Category: name})
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt > rows[j].CreatedAt
	})
	return rows
}

// matches reports whether q occurs in the item's title, URL or any tag,
// ignoring case. q must already be normalized; an empty q matches everything.
func matches(it links.Item, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(it.Title), q) || strings.Contains(strings.ToLower(it.URL), q) {
		return true
	}
	for _, t := range it.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// normalize lowercases q and trims surrounding space, so "go " searches for
// "go".
func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
