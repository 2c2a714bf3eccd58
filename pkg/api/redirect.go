package api

import "net/http"

// HandleRedirect sends visitors of the root path to the project page
func (h *Handler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.redirectURL, http.StatusFound)
}
