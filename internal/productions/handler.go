package productions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fabrica-erp/fabrica-erp/internal/platform/httpx"
	"github.com/fabrica-erp/fabrica-erp/internal/products"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

// Handler wires production endpoints.
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

type consumptionRequest struct {
	RawMaterialName string  `json:"rawMaterialName" validate:"required"`
	Quantity        float64 `json:"quantity" validate:"gte=0"`
}

type productionRequest struct {
	ProductName   string               `json:"productName" validate:"required"`
	UnitsProduced int64                `json:"noOfUnitsProduced" validate:"required,gte=1"`
	RawMaterials  []consumptionRequest `json:"quantityOfRawMaterials" validate:"dive"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "productions"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Error(w, http.StatusConflict, "Duplicate request", err)
				return
			}
			h.logger.Error("idempotency check failed", slog.Any("error", err))
			httpx.Error(w, http.StatusInternalServerError, "Error adding production", nil)
			return
		}
	}

	production, err := h.service.Create(r.Context(), input, actorID(r))
	if err != nil {
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key, "productions")
		}
		h.respondError(w, err, "Error adding production")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message":    "Production added successfully",
		"production": production,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err, "Error retrieving productions")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":     "Productions retrieved successfully",
		"productions": items,
	})
}

func (h *Handler) ListPage(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	items, pagination, err := h.service.ListPage(r.Context(), page)
	if err != nil {
		h.respondError(w, err, "Error retrieving productions")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":          "Productions retrieved successfully",
		"productions":      items,
		"currentPage":      pagination.Page,
		"totalPages":       pagination.TotalPages,
		"totalProductions": pagination.Total,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid production ID", err)
		return
	}
	production, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "Error retrieving production")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":    "Production retrieved successfully",
		"production": production,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid production ID", err)
		return
	}
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	production, err := h.service.Update(r.Context(), id, input, actorID(r))
	if err != nil {
		h.respondError(w, err, "Error updating production")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":    "Production updated successfully",
		"production": production,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid production ID", err)
		return
	}
	if err := h.service.Delete(r.Context(), id, actorID(r)); err != nil {
		h.respondError(w, err, "Error deleting production")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Production deleted successfully"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (ProductionInput, bool) {
	var req productionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", err)
		return ProductionInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid input. Ensure all fields are provided.", err)
		return ProductionInput{}, false
	}
	input := ProductionInput{
		ProductName:   req.ProductName,
		UnitsProduced: req.UnitsProduced,
	}
	for _, c := range req.RawMaterials {
		input.RawMaterials = append(input.RawMaterials, ConsumptionInput{
			RawMaterialName: c.RawMaterialName,
			Quantity:        c.Quantity,
		})
	}
	return input, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	var invalid *InvalidMaterialsError
	var insufficient *InsufficientMaterialsError
	switch {
	case errors.As(err, &invalid):
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"message":          "Some raw materials are not part of this product",
			"invalidMaterials": invalid.Names,
		})
	case errors.As(err, &insufficient):
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"message":               "Insufficient stock for some raw materials",
			"insufficientMaterials": insufficient.Items,
		})
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Production not found", err)
	case errors.Is(err, products.ErrNotFound), errors.Is(err, ErrProductGone):
		httpx.Error(w, http.StatusNotFound, "Product not found", err)
	case errors.Is(err, ErrMaterialGone):
		httpx.Error(w, http.StatusNotFound, "Material not found", err)
	case errors.Is(err, ErrValidation), errors.Is(err, products.ErrValidation):
		httpx.Error(w, http.StatusBadRequest, "Invalid input", err)
	default:
		h.logger.Error("productions request failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, fallback, nil)
	}
}

func actorID(r *http.Request) int64 {
	if session := shared.SessionFromContext(r.Context()); session != nil {
		return session.UserID
	}
	return 0
}
