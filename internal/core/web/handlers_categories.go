package web

import (
	"net/http"
)

func (ws *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	err := ws.store.CreateCategory(r.Context(), r.FormValue("name"))
	ws.respondPanel(w, r, err)
}

func (ws *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	name := r.FormValue("name")
	err := ws.store.RemoveCategory(r.Context(), name)
	if err == nil && r.FormValue("filter") == name {
		// The selected category is gone; show everything.
		r.Form.Set("filter", "")
	}
	ws.respondPanel(w, r, err)
}
