package sales

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

// Handler wires sale endpoints.
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

type saleRequest struct {
	ProductName  string `json:"productName" validate:"required"`
	CustomerName string `json:"customerName" validate:"required"`
	UnitsSold    int64  `json:"noOfUnitsSold" validate:"gte=0"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "sales"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Error(w, http.StatusConflict, "Duplicate request", err)
				return
			}
			h.logger.Error("idempotency check failed", slog.Any("error", err))
			httpx.Error(w, http.StatusInternalServerError, "Error adding sale", nil)
			return
		}
	}

	sale, err := h.service.Create(r.Context(), input, actorID(r))
	if err != nil {
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key, "sales")
		}
		h.respondError(w, err, "Error adding sale")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "Sale added successfully",
		"sale":    sale,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err, "Error retrieving sales")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Sales retrieved successfully",
		"sales":   items,
	})
}

func (h *Handler) ListPage(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	items, pagination, err := h.service.ListPage(r.Context(), page)
	if err != nil {
		h.respondError(w, err, "Error retrieving sales")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":     "Sales retrieved successfully",
		"sales":       items,
		"currentPage": pagination.Page,
		"totalPages":  pagination.TotalPages,
		"totalSales":  pagination.Total,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid sale ID", err)
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "Error retrieving sale")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Sale retrieved successfully",
		"sale":    sale,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid sale ID", err)
		return
	}
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	sale, err := h.service.Update(r.Context(), id, input, actorID(r))
	if err != nil {
		h.respondError(w, err, "Error updating sale")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Sale updated successfully",
		"sale":    sale,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid sale ID", err)
		return
	}
	if err := h.service.Delete(r.Context(), id, actorID(r)); err != nil {
		h.respondError(w, err, "Error deleting sale")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Sale deleted successfully"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (SaleInput, bool) {
	var req saleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", err)
		return SaleInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid input. Ensure all fields are provided.", err)
		return SaleInput{}, false
	}
	return SaleInput{
		ProductName:  req.ProductName,
		CustomerName: req.CustomerName,
		UnitsSold:    req.UnitsSold,
	}, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Sale not found", err)
	case errors.Is(err, products.ErrNotFound), errors.Is(err, ErrProductGone):
		httpx.Error(w, http.StatusNotFound, "Product not found", err)
	case errors.Is(err, ErrInsufficientStock):
		httpx.Error(w, http.StatusBadRequest, "Insufficient product stock", err)
	case errors.Is(err, ErrValidation), errors.Is(err, products.ErrValidation):
		httpx.Error(w, http.StatusBadRequest, "Invalid input", err)
	default:
		h.logger.Error("sales request failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, fallback, nil)
	}
}

func actorID(r *http.Request) int64 {
	if session := shared.SessionFromContext(r.Context()); session != nil {
		return session.UserID
	}
	return 0
}
