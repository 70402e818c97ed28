package productions

import "github.com/go-chi/chi/v5"

// MountRoutes registers production routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/add-production", h.Create)
	r.Get("/", h.List)
	r.Get("/production-detail", h.ListPage)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}
