// Package web serves the link panel: the category sidebar, the filtered link
// list with live search, and the bookmarklet endpoint that saves the page a
// browser is on.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/seckatie/linksaver/internal/core/tab"
)

//go:embed templates/*.html static/*.css
var templatesFS embed.FS

type Server struct {
	store     *store.Store
	resolver  tab.Resolver // nil disables resolving; tab saves keep the bare URL
	templates *template.Template
	staticFS  http.FileSystem
}

// StartServer serves the panel on addr until the listener fails, and returns
// that failure.
func StartServer(addr string, s *store.Store, resolver tab.Resolver) error {
	ws, err := NewServer(s, resolver)
	if err != nil {
		return fmt.Errorf("failed to initialize web server: %w", err)
	}

	log.Printf("Starting web server at %s", addr)
	return http.ListenAndServe(addr, ws.Handler())
}

func NewServer(s *store.Store, resolver tab.Resolver) (*Server, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	staticSub, err := fs.Sub(templatesFS, "static")
	if err != nil {
		return nil, err
	}

	return &Server{
		store:     s,
		resolver:  resolver,
		templates: templates,
		staticFS:  http.FS(staticSub),
	}, nil
}

// Handler returns the panel's routes.
func (ws *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	ws.registerRoutes(mux)
	return mux
}

func (ws *Server) registerRoutes(mux *http.ServeMux) {
	ws.registerStaticRoutes(mux)

	mux.HandleFunc("/{$}", ws.handleIndex)
	mux.HandleFunc("/links", ws.handleLinks)
	mux.HandleFunc("/links/tab", ws.handleSaveTab)
	mux.HandleFunc("/links/{id}/move", ws.handleMoveLink)
	mux.HandleFunc("/links/{id}/delete", ws.handleDeleteLink)
	mux.HandleFunc("/categories", ws.handleCreateCategory)
	mux.HandleFunc("/categories/delete", ws.handleDeleteCategory)
	mux.HandleFunc("/bookmarklet/add", ws.handleBookmarkletAdd)
	mux.HandleFunc("/bookmarklet", ws.handleBookmarklet)
}

func (ws *Server) registerStaticRoutes(mux *http.ServeMux) {
	// Serve embedded static assets (CSS, etc)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(ws.staticFS)))
}
