package store

import (
	"slices"
	"strings"

	"github.com/seckatie/linksaver/internal/core"
	"github.com/seckatie/linksaver/internal/core/links"
)

// The transforms in this file are pure: they never modify their input and
// return a new category map. Persisting the result is the caller's job.

// AddToCategory prepends item to the named category, creating the category if
// needed. If the category already holds item's URL nothing is added and added
// is false. A blank name means Unsorted.
func AddToCategory(cats links.Categories, name string, item links.Item) (out links.Categories, added bool) {
	name = categoryOrUnsorted(name)
	out = cats.Clone()
	if _, ok := out[name]; !ok {
		out[name] = []links.Item{}
	}
	if out.HasURL(name, item.URL) {
		return out, false
	}
	out[name] = append([]links.Item{item.Clone()}, out[name]...)
	return out, true
}

// CreateCategory adds an empty category. Existing names are left alone.
func CreateCategory(cats links.Categories, name string) (links.Categories, bool, error) {
	name, err := validCategoryName(name)
	if err != nil {
		return cats, false, err
	}
	out := cats.Clone()
	if _, ok := out[name]; ok {
		return out, false, nil
	}
	out[name] = []links.Item{}
	return out, true, nil
}

// RemoveCategory deletes a category and appends its items to the end of
// Unsorted. Items whose URL Unsorted already holds are dropped. Removing
// Unsorted is refused; removing a missing category does nothing.
func RemoveCategory(cats links.Categories, name string) (out links.Categories, removed bool, rehomed []links.Item, err error) {
	name = strings.TrimSpace(name)
	switch name {
	case core.UnsortedCategory:
		return cats, false, nil, ErrUnsortedProtected
	case core.AllCategories:
		return cats, false, nil, ErrReservedCategory
	case "":
		return cats, false, nil, ErrBlankCategory
	}

	out = cats.Clone()
	items, ok := out[name]
	if !ok {
		return out, false, nil, nil
	}
	if out[core.UnsortedCategory] == nil {
		out[core.UnsortedCategory] = []links.Item{}
	}
	for _, it := range items {
		if out.HasURL(core.UnsortedCategory, it.URL) {
			continue
		}
		out[core.UnsortedCategory] = append(out[core.UnsortedCategory], it)
		rehomed = append(rehomed, it)
	}
	delete(out, name)
	return out, true, rehomed, nil
}

// MoveResult reports what MoveItem did.
type MoveResult struct {
	Item links.Item
	From string
	To   string
	// Moved is set when the item left its source category.
	Moved bool
	// Absorbed is set when the destination already held the item's URL: the
	// item was removed from the source and not added to the destination.
	Absorbed bool
}

// MoveItem moves the referenced item to category to. It does nothing when the
// item is already there or cannot be found. When to already holds the item's
// URL the item is absorbed: it leaves the source and the existing copy in the
// destination is kept.
func MoveItem(cats links.Categories, ref links.Ref, to string) (links.Categories, MoveResult, error) {
	to, err := validCategoryName(to)
	if err != nil {
		return cats, MoveResult{}, err
	}
	if ref.Category == to {
		return cats, MoveResult{}, nil
	}
	from, idx, ok := cats.Find(ref)
	if !ok || from == to {
		return cats, MoveResult{}, nil
	}

	out := cats.Clone()
	item := out[from][idx]
	out[from] = append(out[from][:idx:idx], out[from][idx+1:]...)

	res := MoveResult{Item: item, From: from, To: to, Moved: true}
	out, added := AddToCategory(out, to, item)
	res.Absorbed = !added
	return out, res, nil
}

// RemoveItem deletes the referenced item. A missing item is not an error.
func RemoveItem(cats links.Categories, ref links.Ref) (links.Categories, links.Entry, bool) {
	from, idx, ok := cats.Find(ref)
	if !ok {
		return cats, links.Entry{}, false
	}
	out := cats.Clone()
	removed := links.Entry{Item: out[from][idx], Category: from}
	out[from] = append(out[from][:idx:idx], out[from][idx+1:]...)
	return out, removed, true
}

// ItemPatch lists display fields to change. Nil fields are left alone. The URL
// cannot change, which keeps per-category URL uniqueness intact.
//
// FillTitle and FillIcon only apply to the item as it is stored at write
// time: FillTitle replaces a title that still equals the URL, FillIcon sets
// an icon that is still empty.
type ItemPatch struct {
	Title *string
	Icon  *string
	Tags  []string
	Notes *string

	FillTitle *string
	FillIcon  *string
}

// apply returns it with the patch applied and whether anything changed.
func (p ItemPatch) apply(it links.Item) (links.Item, bool) {
	before := it
	if p.Title != nil {
		it.Title = strings.TrimSpace(*p.Title)
	}
	if p.FillTitle != nil && (it.Title == it.URL || strings.TrimSpace(it.Title) == "") {
		if title := strings.TrimSpace(*p.FillTitle); title != "" {
			it.Title = title
		}
	}
	if p.Icon != nil {
		it.Icon = *p.Icon
	}
	if p.FillIcon != nil && strings.TrimSpace(it.Icon) == "" {
		it.Icon = *p.FillIcon
	}
	if p.Tags != nil {
		it.Tags = append([]string{}, p.Tags...)
	}
	if p.Notes != nil {
		it.Notes = *p.Notes
	}
	it = it.Normalize()

	changed := it.Title != before.Title || it.Icon != before.Icon || it.Notes != before.Notes ||
		!slices.Equal(it.Tags, before.Tags)
	return it, changed
}

// UpdateItem applies patch to the referenced item in place. changed is false
// when the patch left the item as it was; the input map is then returned.
func UpdateItem(cats links.Categories, ref links.Ref, patch ItemPatch) (out links.Categories, entry links.Entry, found, changed bool) {
	from, idx, ok := cats.Find(ref)
	if !ok {
		return cats, links.Entry{}, false, false
	}
	it, changed := patch.apply(cats[from][idx])
	if !changed {
		return cats, links.Entry{Item: cats[from][idx].Clone(), Category: from}, true, false
	}
	out = cats.Clone()
	out[from][idx] = it.Clone()
	return out, links.Entry{Item: it.Clone(), Category: from}, true, true
}

func validCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch name {
	case "":
		return "", ErrBlankCategory
	case core.AllCategories:
		return "", ErrReservedCategory
	}
	return name, nil
}

func categoryOrUnsorted(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.UnsortedCategory
	}
	return name
}
