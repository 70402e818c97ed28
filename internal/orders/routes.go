package orders

import "github.com/go-chi/chi/v5"

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/add-order", h.Create)
	r.Get("/", h.List)
	r.Get("/orders-detail", h.ListPage)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/receive/{id}", h.Receive)
}
