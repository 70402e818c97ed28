package productions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrica-erp/fabrica-erp/internal/products"
)

type memoryRepo struct {
	productions map[int64]*Production
	nextID      int64
	materials   map[int64]*MaterialBalance
	products    map[int64]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		productions: make(map[int64]*Production),
		nextID:      1,
		materials:   make(map[int64]*MaterialBalance),
		products:    make(map[int64]int64),
	}
}

func (m *memoryRepo) List(ctx context.Context) ([]Production, error) {
	result := []Production{}
	for _, p := range m.productions {
		result = append(result, *p)
	}
	return result, nil
}

func (m *memoryRepo) ListPage(ctx context.Context, limit, offset int) ([]Production, int, error) {
	items, _ := m.List(ctx)
	return items, len(items), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Production, error) {
	p, ok := m.productions[id]
	if !ok {
		return Production{}, ErrNotFound
	}
	return *p, nil
}

// WithTx applies fn against a snapshot-backed view: an error restores every
// map, mirroring a database rollback.
func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	savedProductions := make(map[int64]*Production, len(m.productions))
	for id, p := range m.productions {
		cp := *p
		cp.RawMaterials = append([]ConsumedMaterial(nil), p.RawMaterials...)
		savedProductions[id] = &cp
	}
	savedMaterials := make(map[int64]*MaterialBalance, len(m.materials))
	for id, b := range m.materials {
		cb := *b
		savedMaterials[id] = &cb
	}
	savedProducts := make(map[int64]int64, len(m.products))
	for id, q := range m.products {
		savedProducts[id] = q
	}
	savedNext := m.nextID

	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.productions = savedProductions
		m.materials = savedMaterials
		m.products = savedProducts
		m.nextID = savedNext
		return err
	}
	return nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetProductionForUpdate(ctx context.Context, id int64) (Production, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryTx) InsertProduction(ctx context.Context, p Production) (int64, error) {
	p.ID = t.repo.nextID
	t.repo.nextID++
	stored := p
	t.repo.productions[p.ID] = &stored
	return p.ID, nil
}

func (t *memoryTx) UpdateProduction(ctx context.Context, id int64, p Production) error {
	if _, ok := t.repo.productions[id]; !ok {
		return ErrNotFound
	}
	p.ID = id
	stored := p
	t.repo.productions[id] = &stored
	return nil
}

func (t *memoryTx) DeleteProduction(ctx context.Context, id int64) error {
	if _, ok := t.repo.productions[id]; !ok {
		return ErrNotFound
	}
	delete(t.repo.productions, id)
	return nil
}

func (t *memoryTx) MaterialForUpdate(ctx context.Context, id int64) (MaterialBalance, error) {
	b, ok := t.repo.materials[id]
	if !ok {
		return MaterialBalance{}, ErrMaterialGone
	}
	return *b, nil
}

func (t *memoryTx) AdjustMaterialStock(ctx context.Context, id int64, delta float64) error {
	b, ok := t.repo.materials[id]
	if !ok {
		return ErrMaterialGone
	}
	b.Stock += delta
	if b.Stock < 0 {
		b.Stock = 0
	}
	return nil
}

func (t *memoryTx) ProductForUpdate(ctx context.Context, id int64) (int64, error) {
	q, ok := t.repo.products[id]
	if !ok {
		return 0, ErrProductGone
	}
	return q, nil
}

func (t *memoryTx) AdjustProductQuantity(ctx context.Context, id int64, delta int64) error {
	q, ok := t.repo.products[id]
	if !ok {
		return ErrProductGone
	}
	q += delta
	if q < 0 {
		q = 0
	}
	t.repo.products[id] = q
	return nil
}

type fakeProducts struct {
	byName map[string]products.Product
}

func (f *fakeProducts) GetByName(ctx context.Context, name string) (products.Product, error) {
	p, ok := f.byName[name]
	if !ok {
		return products.Product{}, products.ErrNotFound
	}
	return p, nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	repo.materials[1] = &MaterialBalance{ID: 1, Name: "Steel", Stock: 100}
	repo.materials[2] = &MaterialBalance{ID: 2, Name: "Paint", Stock: 30}
	repo.products[5] = 0

	productStore := &fakeProducts{byName: map[string]products.Product{
		"Widget": {
			ID:   5,
			Name: "Widget",
			RawMaterials: []products.MaterialRef{
				{MaterialID: 1, Name: "Steel"},
				{MaterialID: 2, Name: "Paint"},
			},
		},
	}}

	return NewService(repo, productStore, nil), repo
}

func widgetInput(units int64, steel, paint float64) ProductionInput {
	return ProductionInput{
		ProductName:   "Widget",
		UnitsProduced: units,
		RawMaterials: []ConsumptionInput{
			{RawMaterialName: "Steel", Quantity: steel},
			{RawMaterialName: "Paint", Quantity: paint},
		},
	}
}

func TestCreateProductionMovesStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	production, err := svc.Create(ctx, widgetInput(10, 40, 5), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(10), production.UnitsProduced)
	assert.Equal(t, float64(60), repo.materials[1].Stock)
	assert.Equal(t, float64(25), repo.materials[2].Stock)
	assert.Equal(t, int64(10), repo.products[5])
}

func TestCreateProductionInvalidMaterials(t *testing.T) {
	svc, repo := newTestService()

	input := ProductionInput{
		ProductName:   "Widget",
		UnitsProduced: 1,
		RawMaterials: []ConsumptionInput{
			{RawMaterialName: "Glass", Quantity: 1},
			{RawMaterialName: "Steel", Quantity: 1},
			{RawMaterialName: "Rubber", Quantity: 2},
		},
	}
	_, err := svc.Create(context.Background(), input, 1)

	var invalid *InvalidMaterialsError
	require.ErrorAs(t, err, &invalid)
	assert.ElementsMatch(t, []string{"Glass", "Rubber"}, invalid.Names)
	assert.Equal(t, float64(100), repo.materials[1].Stock, "no debit on validation failure")
}

func TestCreateProductionInsufficientStock(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Create(context.Background(), widgetInput(1, 150, 40), 1)

	var insufficient *InsufficientMaterialsError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Items, 2)
	assert.Equal(t, InsufficientMaterial{RawMaterialName: "Steel", RequiredQuantity: 150, AvailableStock: 100}, insufficient.Items[0])
	assert.Equal(t, InsufficientMaterial{RawMaterialName: "Paint", RequiredQuantity: 40, AvailableStock: 30}, insufficient.Items[1])
	assert.Equal(t, float64(100), repo.materials[1].Stock)
	assert.Equal(t, float64(30), repo.materials[2].Stock)
	assert.Equal(t, int64(0), repo.products[5])
}

func TestDeleteProductionRestoresBalances(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	production, err := svc.Create(ctx, widgetInput(10, 40, 5), 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, production.ID, 1))

	assert.Equal(t, float64(100), repo.materials[1].Stock)
	assert.Equal(t, float64(30), repo.materials[2].Stock)
	assert.Equal(t, int64(0), repo.products[5])
	_, err = svc.Get(ctx, production.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProductionClampsProductAtZero(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	production, err := svc.Create(ctx, widgetInput(10, 40, 5), 1)
	require.NoError(t, err)

	// Simulate sales draining the product below the produced units.
	repo.products[5] = 3

	require.NoError(t, svc.Delete(ctx, production.ID, 1))
	assert.Equal(t, int64(0), repo.products[5])
	assert.Equal(t, float64(100), repo.materials[1].Stock)
}

func TestUpdateProductionUnchangedIsNoop(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	production, err := svc.Create(ctx, widgetInput(10, 40, 5), 1)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, production.ID, widgetInput(10, 40, 5), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(10), updated.UnitsProduced)
	assert.Equal(t, float64(60), repo.materials[1].Stock)
	assert.Equal(t, float64(25), repo.materials[2].Stock)
	assert.Equal(t, int64(10), repo.products[5])
}

func TestUpdateProductionReappliesDeltas(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	production, err := svc.Create(ctx, widgetInput(10, 40, 5), 1)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, production.ID, widgetInput(4, 10, 2), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(4), updated.UnitsProduced)
	assert.Equal(t, float64(90), repo.materials[1].Stock)
	assert.Equal(t, float64(28), repo.materials[2].Stock)
	assert.Equal(t, int64(4), repo.products[5])
}

func TestUpdateProductionRollsBackRevertOnFailure(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	production, err := svc.Create(ctx, widgetInput(10, 40, 5), 1)
	require.NoError(t, err)

	// More steel than even the reverted stock can cover.
	_, err = svc.Update(ctx, production.ID, widgetInput(10, 500, 5), 1)
	var insufficient *InsufficientMaterialsError
	require.ErrorAs(t, err, &insufficient)

	// The failed update must leave the original production fully applied.
	assert.Equal(t, float64(60), repo.materials[1].Stock)
	assert.Equal(t, float64(25), repo.materials[2].Stock)
	assert.Equal(t, int64(10), repo.products[5])
	got, err := svc.Get(ctx, production.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.UnitsProduced)
}

func TestCreateProductionRejectsZeroUnits(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), widgetInput(0, 1, 1), 1)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateProductionUnknownProduct(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), ProductionInput{ProductName: "Gadget", UnitsProduced: 1}, 1)
	require.ErrorIs(t, err, products.ErrNotFound)
}
