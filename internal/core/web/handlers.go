package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/seckatie/linksaver/internal/core"
	"github.com/seckatie/linksaver/internal/core/db"
	"github.com/seckatie/linksaver/internal/core/query"
	"github.com/seckatie/linksaver/internal/core/store"
	"github.com/seckatie/linksaver/internal/core/tab"
)

// renderTemplate renders a template with the standard HTML content-type header.
// If template execution fails, it logs the error and returns a 500 response.
func (ws *Server) renderTemplate(w http.ResponseWriter, templateName string, data any) {
	ws.renderTemplateStatus(w, http.StatusOK, templateName, data)
}

func (ws *Server) renderTemplateStatus(w http.ResponseWriter, status int, templateName string, data any) {
	var buf strings.Builder
	if err := ws.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Printf("Failed to execute %s template: %v", templateName, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// requireMethod checks if the request method matches the expected method.
// Returns true if the method matches, false otherwise (and sends 405 response).
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// statusFor maps store and resolver errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation), errors.Is(err, tab.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrRevisionConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrPersistence):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// panelState reads the document and builds the panel for filter and q. An
// unknown filter falls back to "All".
func (ws *Server) panelState(ctx context.Context, filter, q string) (panelView, error) {
	cats, err := ws.store.Load(ctx)
	if err != nil {
		return panelView{}, err
	}
	filter = strings.TrimSpace(filter)
	if _, ok := cats[filter]; !ok {
		filter = core.AllCategories
	}
	return newPanelView(cats, query.Project(cats, filter, q), filter, q), nil
}

// filterFrom returns the panel filter and search text carried by a request,
// either as query parameters or as hidden form fields.
func filterFrom(r *http.Request) (string, string) {
	return r.FormValue("filter"), r.FormValue("q")
}

// respondPanel answers a panel mutation. htmx requests get the refreshed link
// list; plain form posts are redirected back to the panel. A failed mutation
// re-reads the persisted state and renders it with the error and its status.
func (ws *Server) respondPanel(w http.ResponseWriter, r *http.Request, opErr error) {
	filter, q := filterFrom(r)
	status := http.StatusOK
	if opErr != nil {
		status = statusFor(opErr)
		log.Printf("Panel action %s %s failed: %v", r.Method, r.URL.Path, opErr)
	}

	if r.Header.Get("HX-Request") != "true" && opErr == nil {
		target := url.URL{Path: "/", RawQuery: url.Values{"category": {filter}, "q": {q}}.Encode()}
		http.Redirect(w, r, target.String(), http.StatusSeeOther)
		return
	}

	view, err := ws.panelState(r.Context(), filter, q)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Printf("Failed to load links: %v", err)
		return
	}
	if opErr != nil {
		view.Error = opErr.Error()
	}
	name := "panel"
	if r.Header.Get("HX-Request") != "true" {
		name = "index.html"
	}
	ws.renderTemplateStatus(w, status, name, view)
}
