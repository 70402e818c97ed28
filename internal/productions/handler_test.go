package productions

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

type memoryGuard struct {
	seen map[string]bool
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: make(map[string]bool)}
}

func (g *memoryGuard) CheckAndInsert(ctx context.Context, key, module string) error {
	if g.seen[key+"/"+module] {
		return shared.ErrIdempotencyConflict
	}
	g.seen[key+"/"+module] = true
	return nil
}

func (g *memoryGuard) Delete(ctx context.Context, key, module string) error {
	delete(g.seen, key+"/"+module)
	return nil
}

func postProduction(h *Handler, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/productions/add-production", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	res := httptest.NewRecorder()
	h.Create(res, req)
	return res
}

func TestCreateProductionIdempotencyKeyReplay(t *testing.T) {
	svc, repo := newTestService()
	guard := newMemoryGuard()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, guard)

	body := `{"productName":"Widget","noOfUnitsProduced":10,"quantityOfRawMaterials":[{"rawMaterialName":"Steel","quantity":40}]}`

	res := postProduction(handler, body, "req-1")
	require.Equal(t, http.StatusCreated, res.Code)
	require.Equal(t, float64(60), repo.materials[1].Stock)

	// The replay must not debit the materials a second time.
	res = postProduction(handler, body, "req-1")
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, float64(60), repo.materials[1].Stock)
}

func TestCreateProductionReleasesKeyOnFailure(t *testing.T) {
	svc, repo := newTestService()
	guard := newMemoryGuard()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, guard)

	res := postProduction(handler, `{"productName":"Widget","noOfUnitsProduced":10,"quantityOfRawMaterials":[{"rawMaterialName":"Steel","quantity":500}]}`, "req-2")
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.False(t, guard.seen["req-2/productions"], "failed create must release its key")

	res = postProduction(handler, `{"productName":"Widget","noOfUnitsProduced":10,"quantityOfRawMaterials":[{"rawMaterialName":"Steel","quantity":40}]}`, "req-2")
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Equal(t, float64(60), repo.materials[1].Stock)
}
