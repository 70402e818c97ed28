package sales

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

func newTestHandler() (*Handler, *memoryRepo, *memoryGuard) {
	svc, repo := newTestService()
	guard := newMemoryGuard()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, svc, guard), repo, guard
}

func postSale(h *Handler, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/sales/add-sale", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	res := httptest.NewRecorder()
	h.Create(res, req)
	return res
}

func TestCreateSaleIdempotencyKeyReplay(t *testing.T) {
	handler, repo, _ := newTestHandler()
	body := `{"productName":"Widget","customerName":"Evans","noOfUnitsSold":5}`

	res := postSale(handler, body, "req-1")
	require.Equal(t, http.StatusCreated, res.Code)
	require.Equal(t, int64(5), repo.products[5].Quantity)

	// The replay must not debit the product a second time.
	res = postSale(handler, body, "req-1")
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, int64(5), repo.products[5].Quantity)
}

func TestCreateSaleReleasesKeyOnFailure(t *testing.T) {
	handler, repo, guard := newTestHandler()

	res := postSale(handler, `{"productName":"Widget","customerName":"Evans","noOfUnitsSold":99}`, "req-2")
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.False(t, guard.seen["req-2/sales"], "failed create must release its key")

	// A corrected retry with the same key goes through.
	res = postSale(handler, `{"productName":"Widget","customerName":"Evans","noOfUnitsSold":5}`, "req-2")
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Equal(t, int64(5), repo.products[5].Quantity)
}

func TestCreateSaleKeyScopedToModule(t *testing.T) {
	handler, _, guard := newTestHandler()

	// The same key already recorded by another module must not block a sale,
	// and releasing the sale's key must leave the other module's row alone.
	require.NoError(t, guard.CheckAndInsert(context.Background(), "req-3", "orders"))

	res := postSale(handler, `{"productName":"Widget","customerName":"Evans","noOfUnitsSold":99}`, "req-3")
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.True(t, guard.seen["req-3/orders"])
	assert.False(t, guard.seen["req-3/sales"])
}
