package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fabrica-erp/fabrica-erp/internal/materials"
	"github.com/fabrica-erp/fabrica-erp/internal/platform/httpx"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
	"github.com/fabrica-erp/fabrica-erp/internal/vendors"
)

// Handler wires order endpoints.
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

type orderRequest struct {
	VendorName   string `json:"vendorName" validate:"required"`
	MaterialName string `json:"materialName" validate:"required"`
	Quantity     int64  `json:"quantity" validate:"required,gte=1"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
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
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "orders"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Error(w, http.StatusConflict, "Duplicate request", err)
				return
			}
			h.logger.Error("idempotency check failed", slog.Any("error", err))
			httpx.Error(w, http.StatusInternalServerError, "Error adding order", nil)
			return
		}
	}

	order, err := h.service.Create(r.Context(), OrderInput{
		VendorName:   req.VendorName,
		MaterialName: req.MaterialName,
		Quantity:     req.Quantity,
	})
	if err != nil {
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key, "orders")
		}
		h.respondError(w, err, "Error adding order")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "Order added successfully",
		"order":   order,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err, "Error retrieving orders")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Orders retrieved successfully",
		"orders":  items,
	})
}

func (h *Handler) ListPage(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	items, pagination, err := h.service.ListPage(r.Context(), page)
	if err != nil {
		h.respondError(w, err, "Error retrieving orders")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":     "Orders retrieved successfully",
		"orders":      items,
		"currentPage": pagination.Page,
		"totalPages":  pagination.TotalPages,
		"totalOrders": pagination.Total,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid order ID", err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "Error retrieving order")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Order retrieved successfully",
		"order":   order,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid order ID", err)
		return
	}
	var req orderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid input. Ensure all fields are provided.", err)
		return
	}

	order, err := h.service.Update(r.Context(), id, OrderInput{
		VendorName:   req.VendorName,
		MaterialName: req.MaterialName,
		Quantity:     req.Quantity,
	})
	if err != nil {
		h.respondError(w, err, "Error updating order")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Order updated successfully",
		"order":   order,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid order ID", err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err, "Error deleting order")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Order deleted successfully"})
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid order ID", err)
		return
	}
	var actorID int64
	if session := shared.SessionFromContext(r.Context()); session != nil {
		actorID = session.UserID
	}
	order, err := h.service.Receive(r.Context(), id, actorID)
	if err != nil {
		h.respondError(w, err, "Error receiving order")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Order received successfully",
		"order":   order,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Order not found", err)
	case errors.Is(err, vendors.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Vendor not found", err)
	case errors.Is(err, materials.ErrNotFound), errors.Is(err, ErrMaterialGone):
		httpx.Error(w, http.StatusNotFound, "Material not found", err)
	case errors.Is(err, ErrNotSupplied):
		httpx.Error(w, http.StatusNotFound, "Vendor does not supply this material", err)
	case errors.Is(err, ErrAlreadyReceived):
		httpx.Error(w, http.StatusConflict, "Order has already been received", err)
	case errors.Is(err, ErrValidation), errors.Is(err, vendors.ErrValidation), errors.Is(err, materials.ErrValidation):
		httpx.Error(w, http.StatusBadRequest, "Invalid input", err)
	default:
		h.logger.Error("orders request failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, fallback, nil)
	}
}
