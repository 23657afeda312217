package web

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/seckatie/linksaver/internal/core"
)

func (ws *Server) handleBookmarklet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ws.renderTemplate(w, "bookmarklet.html", bookmarkletView{
		ActivePage:  "bookmarklet",
		Bookmarklet: template.URL(bookmarkletJS(requestOrigin(r))),
	})
}

// handleBookmarkletAdd is the external save request: whatever page the
// bookmarklet was clicked on is saved into Unsorted.
func (ws *Server) handleBookmarkletAdd(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	url := strings.TrimSpace(q.Get("url"))
	if url == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}

	item, added, err := ws.store.SaveExternal(r.Context(), url, q.Get("title"), q.Get("icon"))
	if err != nil {
		log.Printf("Failed to save %s: %v", url, err)
		ws.renderTemplateStatus(w, statusFor(err), "bookmarklet_add.html", bookmarkletAddView{
			URL:   url,
			Title: q.Get("title"),
			Error: err.Error(),
		})
		return
	}

	ws.renderTemplate(w, "bookmarklet_add.html", bookmarkletAddView{
		URL:      item.URL,
		Title:    item.Title,
		Added:    added,
		Category: core.UnsortedCategory,
	})
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func bookmarkletJS(origin string) string {
	return fmt.Sprintf("javascript:(function(){"+
		"var i=document.querySelector('link[rel~=\"icon\"]');"+
		"window.open('%s/bookmarklet/add?url='+encodeURIComponent(location.href)"+
		"+'&title='+encodeURIComponent(document.title)"+
		"+'&icon='+encodeURIComponent(i?i.href:''),'_blank','width=420,height=240');"+
		"})();", origin)
}
