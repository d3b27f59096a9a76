package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jredh-dev/easyhope/internal/nav"
	"github.com/jredh-dev/easyhope/internal/session"
)

// SearchActions returns actions matching the query parameter "q", filtered
// by the visitor's auth state.
func (h *Handler) SearchActions(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	results := h.actions.Search(r.URL.Query().Get("q"), nav.Viewer{
		LoggedIn: s.Authenticated(),
		IsAdmin:  s.IsAdmin(),
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(results); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
