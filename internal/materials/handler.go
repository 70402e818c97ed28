package materials

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

// Handler wires material endpoints.
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

type createMaterialRequest struct {
	Name        string  `json:"name" validate:"required"`
	Stock       float64 `json:"stock" validate:"gte=0"`
	Unit        string  `json:"unit" validate:"required"`
	Threshold   float64 `json:"threshold" validate:"gte=0"`
	Description string  `json:"description"`
}

type updateMaterialRequest struct {
	Name        *string  `json:"name,omitempty"`
	Stock       *float64 `json:"stock,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	Threshold   *float64 `json:"threshold,omitempty"`
	Description *string  `json:"description,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMaterialRequest
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
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "materials"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Error(w, http.StatusConflict, "Duplicate request", err)
				return
			}
			h.logger.Error("idempotency check failed", slog.Any("error", err))
			httpx.Error(w, http.StatusInternalServerError, "Error adding material", nil)
			return
		}
	}

	material, err := h.service.Create(r.Context(), CreateMaterialInput{
		Name:        req.Name,
		Stock:       req.Stock,
		Unit:        req.Unit,
		Threshold:   req.Threshold,
		Description: req.Description,
	})
	if err != nil {
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key, "materials")
		}
		h.respondError(w, err, "Error adding material")
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Material added successfully",
		"material": material,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err, "Error fetching materials")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":   "Materials retrieved successfully",
		"materials": items,
	})
}

func (h *Handler) ListPage(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	items, pagination, err := h.service.ListPage(r.Context(), page)
	if err != nil {
		h.respondError(w, err, "Error fetching materials")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":        "Materials retrieved successfully",
		"materials":      items,
		"currentPage":    pagination.Page,
		"totalPages":     pagination.TotalPages,
		"totalMaterials": pagination.Total,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid material ID", err)
		return
	}
	material, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "Error fetching material")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":  "Material fetched successfully",
		"material": material,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid material ID", err)
		return
	}
	var req updateMaterialRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	material, err := h.service.Update(r.Context(), id, UpdateMaterialInput{
		Name:        req.Name,
		Stock:       req.Stock,
		Unit:        req.Unit,
		Threshold:   req.Threshold,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(w, err, "Error updating material")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":  "Material updated successfully",
		"material": material,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid material ID", err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err, "Error deleting material")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Material deleted successfully"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Material not found", err)
	case errors.Is(err, ErrDuplicate):
		httpx.Error(w, http.StatusConflict, "Material already exists", err)
	case errors.Is(err, ErrValidation):
		httpx.Error(w, http.StatusBadRequest, "Invalid input", err)
	default:
		h.logger.Error("materials request failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, fallback, nil)
	}
}
