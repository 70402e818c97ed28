package products

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fabrica-erp/fabrica-erp/internal/platform/httpx"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

// Handler wires product endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency shared.IdempotencyGuard
	validate    *validator.Validate
}

// NewHandler constructs the Handler.
func NewHandler(logger *slog.Logger, service *Service, idempotency shared.IdempotencyGuard) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idempotency, validate: validator.New()}
}

type createProductRequest struct {
	Name         string   `json:"name" validate:"required"`
	Quantity     int64    `json:"quantity" validate:"gte=0"`
	PricePerUnit float64  `json:"pricePerUnit" validate:"required,gt=0"`
	RawMaterials []string `json:"rawMaterials"`
}

type updateProductRequest struct {
	Name         *string   `json:"name,omitempty"`
	PricePerUnit *float64  `json:"pricePerUnit,omitempty"`
	RawMaterials *[]string `json:"rawMaterials,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid input. Ensure all fields are provided.", err)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "products"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Error(w, http.StatusConflict, "Duplicate request", err)
				return
			}
			h.logger.Error("idempotency check failed", slog.Any("error", err))
			httpx.Error(w, http.StatusInternalServerError, "Error adding product", nil)
			return
		}
	}

	product, err := h.service.Create(r.Context(), CreateProductInput{
		Name:         req.Name,
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		RawMaterials: req.RawMaterials,
	})
	if err != nil {
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key, "products")
		}
		h.respondError(w, err, "Error adding product")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "Product added successfully",
		"product": product,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err, "Error retrieving products")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":  "Products retrieved successfully",
		"products": items,
	})
}

func (h *Handler) ListPage(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	items, pagination, err := h.service.ListPage(r.Context(), page)
	if err != nil {
		h.respondError(w, err, "Error retrieving products")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":       "Products retrieved successfully",
		"products":      items,
		"currentPage":   pagination.Page,
		"totalPages":    pagination.TotalPages,
		"totalProducts": pagination.Total,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid product ID", err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "Error retrieving product")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Product retrieved successfully",
		"product": product,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid product ID", err)
		return
	}
	var req updateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product, err := h.service.Update(r.Context(), id, UpdateProductInput{
		Name:         req.Name,
		PricePerUnit: req.PricePerUnit,
		RawMaterials: req.RawMaterials,
	})
	if err != nil {
		h.respondError(w, err, "Error updating product")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Product updated successfully",
		"product": product,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid product ID", err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err, "Error deleting product")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Product deleted successfully"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	var missing *MissingMaterialsError
	switch {
	case errors.As(err, &missing):
		httpx.JSON(w, http.StatusNotFound, map[string]any{
			"message":             "Some raw materials not found",
			"missingRawMaterials": missing.Names,
		})
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Product not found", err)
	case errors.Is(err, ErrDuplicate):
		httpx.Error(w, http.StatusConflict, "Product already exists", err)
	case errors.Is(err, ErrValidation):
		httpx.Error(w, http.StatusBadRequest, "Invalid input", err)
	default:
		h.logger.Error("products request failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, fallback, nil)
	}
}
