// Package tab resolves what a browser tab would show for a URL: its final
// address, title and favicon. The panel uses it to save the "current tab" and
// the enrichment workers use it to fill in titles and icons after a quick add.
package tab

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrInvalidURL is returned when a URL cannot be resolved as a page.
var ErrInvalidURL = errors.New("invalid URL")

// Tab describes a resolved page.
type Tab struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	FavIconURL string `json:"favIconUrl"`
}

// Resolver turns a URL into a Tab.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (Tab, error)
}

// ValidateURL accepts only absolute http and https URLs with a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return nil
}

// parsePage extracts the title and favicon from a page's HTML. pageURL is the
// final URL of the page and is used to resolve relative icon references. When
// the page declares no icon, /favicon.ico on the same host is assumed.
func parsePage(html, pageURL string) (Tab, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return Tab{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Tab{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	t := Tab{URL: pageURL}

	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		t.Title = collapseSpace(og)
	}
	if t.Title == "" {
		t.Title = collapseSpace(doc.Find("title").First().Text())
	}

	doc.Find("link[rel][href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !isIconRel(rel) {
			return true
		}
		href, _ := s.Attr("href")
		if resolved := resolveURL(base, href); resolved != "" {
			t.FavIconURL = resolved
			return false
		}
		return true
	})
	if t.FavIconURL == "" && base.Host != "" {
		t.FavIconURL = (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/favicon.ico"}).String()
	}

	return t, nil
}

// isIconRel matches rel="icon", rel="shortcut icon" and rel="apple-touch-icon".
func isIconRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "icon" || token == "apple-touch-icon" {
			return true
		}
	}
	return false
}

// resolveURL resolves a potentially relative URL against a base URL. Inline
// data URIs are returned as they are; javascript: references are dropped.
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "javascript:") {
		return ""
	}
	if strings.HasPrefix(ref, "data:") {
		return ref
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	return base.ResolveReference(refURL).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
