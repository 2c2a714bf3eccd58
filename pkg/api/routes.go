package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/data", h.HandleWriteData).Methods("POST")
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
	router.HandleFunc("/", h.HandleRedirect).Methods("GET")
}
