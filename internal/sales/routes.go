package sales

import "github.com/go-chi/chi/v5"

// MountRoutes registers sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/add-sale", h.Create)
	r.Get("/", h.List)
	r.Get("/sales-detail", h.ListPage)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}
