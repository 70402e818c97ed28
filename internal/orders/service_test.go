package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrica-erp/fabrica-erp/internal/materials"
	"github.com/fabrica-erp/fabrica-erp/internal/vendors"
)

type memoryRepo struct {
	orders    map[int64]*Order
	nextID    int64
	materials map[int64]float64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:    make(map[int64]*Order),
		nextID:    1,
		materials: make(map[int64]float64),
	}
}

func (m *memoryRepo) List(ctx context.Context) ([]Order, error) {
	result := []Order{}
	for _, o := range m.orders {
		result = append(result, *o)
	}
	return result, nil
}

func (m *memoryRepo) ListPage(ctx context.Context, limit, offset int) ([]Order, int, error) {
	items, _ := m.List(ctx)
	return items, len(items), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

func (m *memoryRepo) Create(ctx context.Context, order Order) (Order, error) {
	order.ID = m.nextID
	m.nextID++
	stored := order
	m.orders[order.ID] = &stored
	return order, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, order Order) (Order, error) {
	if _, ok := m.orders[id]; !ok {
		return Order{}, ErrNotFound
	}
	order.ID = id
	stored := order
	m.orders[id] = &stored
	return order, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: m})
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryTx) MarkReceived(ctx context.Context, id int64) error {
	o, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = StatusReceived
	return nil
}

func (t *memoryTx) CreditMaterial(ctx context.Context, materialID, quantity int64) error {
	if _, ok := t.repo.materials[materialID]; !ok {
		return ErrMaterialGone
	}
	t.repo.materials[materialID] += float64(quantity)
	return nil
}

type fakeVendors struct {
	byName map[string]vendors.Vendor
}

func (f *fakeVendors) GetByName(ctx context.Context, name string) (vendors.Vendor, error) {
	v, ok := f.byName[name]
	if !ok {
		return vendors.Vendor{}, vendors.ErrNotFound
	}
	return v, nil
}

type fakeMaterials struct {
	byName map[string]materials.Material
}

func (f *fakeMaterials) GetByName(ctx context.Context, name string) (materials.Material, error) {
	m, ok := f.byName[name]
	if !ok {
		return materials.Material{}, materials.ErrNotFound
	}
	return m, nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	repo.materials[7] = 0

	vendorStore := &fakeVendors{byName: map[string]vendors.Vendor{
		"Acme Supplies": {
			ID:   3,
			Name: "Acme Supplies",
			Materials: []vendors.PriceEntry{
				{MaterialID: 7, MaterialName: "Steel", CostPerUnit: 3},
			},
		},
	}}
	materialStore := &fakeMaterials{byName: map[string]materials.Material{
		"Steel":  {ID: 7, Name: "Steel", Unit: "kg"},
		"Copper": {ID: 9, Name: "Copper", Unit: "kg"},
	}}

	return NewService(repo, vendorStore, materialStore, nil), repo
}

func TestCreateOrderComputesTotalCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	order, err := svc.Create(ctx, OrderInput{VendorName: "Acme Supplies", MaterialName: "Steel", Quantity: 4})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, float64(3), order.CostPerUnit)
	assert.Equal(t, float64(12), order.TotalCost)
	require.NotNil(t, order.MaterialID)
	assert.Equal(t, int64(7), *order.MaterialID)
}

func TestCreateOrderUnknownVendor(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), OrderInput{VendorName: "Nobody", MaterialName: "Steel", Quantity: 1})
	require.ErrorIs(t, err, vendors.ErrNotFound)
}

func TestCreateOrderUnknownMaterial(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), OrderInput{VendorName: "Acme Supplies", MaterialName: "Unobtainium", Quantity: 1})
	require.ErrorIs(t, err, materials.ErrNotFound)
}

func TestCreateOrderVendorDoesNotSupply(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), OrderInput{VendorName: "Acme Supplies", MaterialName: "Copper", Quantity: 1})
	require.ErrorIs(t, err, ErrNotSupplied)
}

func TestCreateOrderRejectsZeroQuantity(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), OrderInput{VendorName: "Acme Supplies", MaterialName: "Steel", Quantity: 0})
	require.ErrorIs(t, err, ErrValidation)
}

func TestReceiveOrderCreditsStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	order, err := svc.Create(ctx, OrderInput{VendorName: "Acme Supplies", MaterialName: "Steel", Quantity: 4})
	require.NoError(t, err)

	received, err := svc.Receive(ctx, order.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, StatusReceived, received.Status)
	assert.Equal(t, float64(4), repo.materials[7])
}

func TestReceiveTwiceFailsWithConflict(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	order, err := svc.Create(ctx, OrderInput{VendorName: "Acme Supplies", MaterialName: "Steel", Quantity: 4})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, order.ID, 1)
	require.NoError(t, err)

	_, err = svc.Receive(ctx, order.ID, 1)
	require.ErrorIs(t, err, ErrAlreadyReceived)
	assert.Equal(t, float64(4), repo.materials[7], "second receive must not credit again")
}

func TestUpdateOrderNeverTouchesStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	order, err := svc.Create(ctx, OrderInput{VendorName: "Acme Supplies", MaterialName: "Steel", Quantity: 4})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, order.ID, 1)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, order.ID, OrderInput{VendorName: "Acme Supplies", MaterialName: "Steel", Quantity: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(10), updated.Quantity)
	assert.Equal(t, float64(30), updated.TotalCost)
	assert.Equal(t, float64(4), repo.materials[7], "editing a received order leaves the credit in place")
}

func TestDeleteOrderKeepsStockCredit(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	order, err := svc.Create(ctx, OrderInput{VendorName: "Acme Supplies", MaterialName: "Steel", Quantity: 4})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, order.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, order.ID))

	_, err = svc.Get(ctx, order.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, float64(4), repo.materials[7])
}

func TestReceiveMissingOrder(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Receive(context.Background(), 99, 1)
	require.ErrorIs(t, err, ErrNotFound)
}
