package materials

import "github.com/go-chi/chi/v5"

// MountRoutes registers material routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/add-material", h.Create)
	r.Get("/", h.List)
	r.Get("/materials-detail", h.ListPage)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}
