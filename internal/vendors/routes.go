package vendors

import "github.com/go-chi/chi/v5"

// MountRoutes registers vendor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/add-vendor", h.Create)
	r.Get("/", h.List)
	r.Get("/vendors-detail", h.ListPage)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}
