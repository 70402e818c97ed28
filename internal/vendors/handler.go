package vendors

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

// Handler wires vendor endpoints.
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

type priceEntryRequest struct {
	MaterialName string  `json:"materialName" validate:"required"`
	CostPerUnit  float64 `json:"costPerUnit" validate:"required,gt=0"`
}

type createVendorRequest struct {
	Name      string              `json:"name" validate:"required"`
	Contact   string              `json:"contact" validate:"required"`
	Email     string              `json:"email" validate:"required,email"`
	Address   string              `json:"address" validate:"required"`
	Materials []priceEntryRequest `json:"materials" validate:"dive"`
}

type updateVendorRequest struct {
	Name      *string              `json:"name,omitempty"`
	Contact   *string              `json:"contact,omitempty"`
	Email     *string              `json:"email,omitempty"`
	Address   *string              `json:"address,omitempty"`
	Materials *[]priceEntryRequest `json:"materials,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createVendorRequest
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
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "vendors"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Error(w, http.StatusConflict, "Duplicate request", err)
				return
			}
			h.logger.Error("idempotency check failed", slog.Any("error", err))
			httpx.Error(w, http.StatusInternalServerError, "Error adding vendor", nil)
			return
		}
	}

	vendor, err := h.service.Create(r.Context(), CreateVendorInput{
		Name:      req.Name,
		Contact:   req.Contact,
		Email:     req.Email,
		Address:   req.Address,
		Materials: toPriceInputs(req.Materials),
	})
	if err != nil {
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key, "vendors")
		}
		h.respondError(w, err, "Error adding vendor")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "Vendor added successfully",
		"vendor":  vendor,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err, "Error retrieving vendors")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Vendors retrieved successfully",
		"vendors": items,
	})
}

func (h *Handler) ListPage(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	items, pagination, err := h.service.ListPage(r.Context(), page)
	if err != nil {
		h.respondError(w, err, "Error retrieving vendors")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":      "Vendors retrieved successfully",
		"vendors":      items,
		"currentPage":  pagination.Page,
		"totalPages":   pagination.TotalPages,
		"totalVendors": pagination.Total,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid vendor ID", err)
		return
	}
	vendor, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "Error retrieving vendor")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Vendor retrieved successfully",
		"vendor":  vendor,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid vendor ID", err)
		return
	}
	var req updateVendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input := UpdateVendorInput{
		Name:    req.Name,
		Contact: req.Contact,
		Email:   req.Email,
		Address: req.Address,
	}
	if req.Materials != nil {
		prices := toPriceInputs(*req.Materials)
		input.Materials = &prices
	}

	vendor, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err, "Error updating vendor")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Vendor updated successfully",
		"vendor":  vendor,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid vendor ID", err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err, "Error deleting vendor")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Vendor deleted successfully"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	var missing *MissingMaterialsError
	switch {
	case errors.As(err, &missing):
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"message":          "Some materials not found",
			"missingMaterials": missing.Names,
		})
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Vendor not found", err)
	case errors.Is(err, ErrDuplicate):
		httpx.Error(w, http.StatusConflict, "Vendor already exists", err)
	case errors.Is(err, ErrValidation):
		httpx.Error(w, http.StatusBadRequest, "Invalid input", err)
	default:
		h.logger.Error("vendors request failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, fallback, nil)
	}
}

func toPriceInputs(entries []priceEntryRequest) []PriceInput {
	inputs := make([]PriceInput, 0, len(entries))
	for _, entry := range entries {
		inputs = append(inputs, PriceInput{MaterialName: entry.MaterialName, CostPerUnit: entry.CostPerUnit})
	}
	return inputs
}
