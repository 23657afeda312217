package web

import (
	"html/template"
	"strings"
	"time"

	"github.com/seckatie/linksaver/internal/core"
	"github.com/seckatie/linksaver/internal/core/links"
)

type categoryView struct {
	Name     string
	Count    int
	Selected bool
}

type linkView struct {
	ID       string
	URL      string
	Title    string
	Icon     template.URL
	Tags     []string
	Notes    string
	Category string
	Created  string
}

// panelView is everything the panel templates render. Filter is the selected
// category ("All" for every category) and Query the live search text.
type panelView struct {
	ActivePage string
	Filter     string
	Query      string
	Categories []categoryView
	// Targets are the categories a link can be moved to.
	Targets []string
	Links   []linkView
	Total   int
	Error   string
}

func newPanelView(cats links.Categories, rows []links.Entry, filter, q string) panelView {
	v := panelView{
		ActivePage: "links",
		Filter:     filter,
		Query:      q,
		Total:      cats.Count(),
		Categories: []categoryView{{Name: core.AllCategories, Count: cats.Count(), Selected: filter == core.AllCategories}},
		Links:      make([]linkView, 0, len(rows)),
	}
	for _, name := range cats.Names() {
		v.Categories = append(v.Categories, categoryView{Name: name, Count: len(cats[name]), Selected: name == filter})
		v.Targets = append(v.Targets, name)
	}
	for _, e := range rows {
		v.Links = append(v.Links, linkView{
			ID:       e.ID,
			URL:      e.URL,
			Title:    e.Title,
			Icon:     iconURL(e.Icon),
			Tags:     e.Tags,
			Notes:    e.Notes,
			Category: e.Category,
			Created:  formatCreated(e.Created()),
		})
	}
	return v
}

// iconURL passes favicon URLs and inline image data URIs through to the
// template. Anything else is dropped.
func iconURL(icon string) template.URL {
	lower := strings.ToLower(icon)
	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "data:image/") {
		return template.URL(icon)
	}
	return ""
}

// formatCreated renders a creation time for the link list. Links without a
// recorded time render nothing.
func formatCreated(created time.Time) string {
	if created.UnixMilli() <= 0 {
		return ""
	}
	return created.Format("2006-01-02 15:04")
}

type bookmarkletView struct {
	ActivePage  string
	Bookmarklet template.URL
}

type bookmarkletAddView struct {
	URL      string
	Title    string
	Added    bool
	Category string
	Error    string
}
