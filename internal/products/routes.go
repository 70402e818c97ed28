package products

import "github.com/go-chi/chi/v5"

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/add-product", h.Create)
	r.Get("/", h.List)
	r.Get("/product-detail", h.ListPage)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}
