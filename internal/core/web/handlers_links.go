package web

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/seckatie/linksaver/internal/core/links"
	"github.com/seckatie/linksaver/internal/core/tab"
)

func (ws *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	view, err := ws.panelState(r.Context(), r.URL.Query().Get("category"), r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Printf("Failed to load links: %v", err)
		return
	}
	ws.renderTemplate(w, "index.html", view)
}

func (ws *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		ws.createLink(w, r)
		return
	case http.MethodGet:
		ws.listLinks(w, r)
		return
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
}

// listLinks renders the link list fragment. It backs the category sidebar
// and the live search box.
func (ws *Server) listLinks(w http.ResponseWriter, r *http.Request) {
	view, err := ws.panelState(r.Context(), r.URL.Query().Get("category"), r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Printf("Failed to load links: %v", err)
		return
	}
	ws.renderTemplate(w, "panel", view)
}

// createLink is the quick-add form.
func (ws *Server) createLink(w http.ResponseWriter, r *http.Request) {
	in := links.Input{
		URL:   strings.TrimSpace(r.FormValue("url")),
		Title: r.FormValue("title"),
		Tags:  links.ParseTags(r.FormValue("tags")),
	}
	category := r.FormValue("category")

	item, added, err := ws.store.Add(r.Context(), category, in)
	if err == nil && added {
		log.Printf("Added %s", item.URL)
	}
	ws.respondPanel(w, r, err)
}

// handleSaveTab saves a page the way the browser would show it: the URL is
// resolved for its final address, title and favicon, then added. If resolving
// fails for any reason other than a bad URL, the bare URL is saved.
func (ws *Server) handleSaveTab(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	rawURL := strings.TrimSpace(r.FormValue("url"))
	in := links.Input{URL: rawURL}

	if err := tab.ValidateURL(rawURL); err != nil {
		ws.respondPanel(w, r, err)
		return
	}
	if ws.resolver != nil {
		t, err := ws.resolver.Resolve(r.Context(), rawURL)
		switch {
		case errors.Is(err, tab.ErrInvalidURL):
			ws.respondPanel(w, r, err)
			return
		case err != nil:
			log.Printf("Failed to resolve %s: %v (saving bare URL)", rawURL, err)
		default:
			in = links.Input{URL: t.URL, Title: t.Title, Icon: t.FavIconURL}
		}
	}

	_, _, err := ws.store.Add(r.Context(), r.FormValue("category"), in)
	ws.respondPanel(w, r, err)
}

func (ws *Server) handleMoveLink(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	ref := links.Ref{ID: r.PathValue("id"), Category: r.FormValue("from")}
	res, err := ws.store.MoveItem(r.Context(), ref, r.FormValue("to"))
	if err == nil && res.Absorbed {
		log.Printf("Moved link %s was already in %q and has been merged", res.Item.URL, res.To)
	}
	ws.respondPanel(w, r, err)
}

func (ws *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	ref := links.Ref{ID: r.PathValue("id"), Category: r.FormValue("from")}
	_, err := ws.store.RemoveItem(r.Context(), ref)
	ws.respondPanel(w, r, err)
}
