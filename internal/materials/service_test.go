package materials

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

type memoryRepo struct {
	items  map[int64]*Material
	byName map[string]int64
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:  make(map[int64]*Material),
		byName: make(map[string]int64),
		nextID: 1,
	}
}

// sorted returns materials in low-stock-first order: below-threshold ones
// lead, then ascending threshold, then ascending stock.
func (m *memoryRepo) sorted() []Material {
	result := make([]Material, 0, len(m.items))
	for _, item := range m.items {
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool {
		li, lj := result[i].LowStock(), result[j].LowStock()
		if li != lj {
			return li
		}
		if result[i].Threshold != result[j].Threshold {
			return result[i].Threshold < result[j].Threshold
		}
		return result[i].Stock < result[j].Stock
	})
	return result
}

func (m *memoryRepo) List(ctx context.Context) ([]Material, error) {
	return m.sorted(), nil
}

func (m *memoryRepo) ListPage(ctx context.Context, limit, offset int) ([]Material, int, error) {
	all := m.sorted()
	total := len(all)
	if offset >= total {
		return []Material{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Material, error) {
	item, ok := m.items[id]
	if !ok {
		return Material{}, ErrNotFound
	}
	return *item, nil
}

func (m *memoryRepo) GetByName(ctx context.Context, name string) (Material, error) {
	id, ok := m.byName[name]
	if !ok {
		return Material{}, ErrNotFound
	}
	return *m.items[id], nil
}

func (m *memoryRepo) Create(ctx context.Context, material Material) (Material, error) {
	if _, exists := m.byName[material.Name]; exists {
		return Material{}, ErrDuplicate
	}
	material.ID = m.nextID
	m.nextID++
	stored := material
	m.items[material.ID] = &stored
	m.byName[material.Name] = material.ID
	return material, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, material Material) (Material, error) {
	existing, ok := m.items[id]
	if !ok {
		return Material{}, ErrNotFound
	}
	if other, exists := m.byName[material.Name]; exists && other != id {
		return Material{}, ErrDuplicate
	}
	delete(m.byName, existing.Name)
	material.ID = id
	stored := material
	m.items[id] = &stored
	m.byName[material.Name] = id
	return material, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	existing, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byName, existing.Name)
	delete(m.items, id)
	return nil
}

func TestCreateMaterial(t *testing.T) {
	svc := NewService(newMemoryRepo())

	material, err := svc.Create(context.Background(), CreateMaterialInput{
		Name:      "  Steel  ",
		Stock:     20,
		Unit:      "kg",
		Threshold: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, "Steel", material.Name)
	assert.Equal(t, float64(20), material.Stock)
	assert.False(t, material.LowStock())
}

func TestCreateMaterialDuplicate(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateMaterialInput{Name: "Steel", Unit: "kg"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateMaterialInput{Name: "Steel", Unit: "kg"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateMaterialValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateMaterialInput{Name: "", Unit: "kg"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateMaterialInput{Name: "Steel", Unit: ""})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateMaterialInput{Name: "Steel", Unit: "kg", Stock: -1})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateMaterialPartial(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	material, err := svc.Create(ctx, CreateMaterialInput{Name: "Steel", Stock: 20, Unit: "kg", Threshold: 5})
	require.NoError(t, err)

	stock := 3.0
	updated, err := svc.Update(ctx, material.ID, UpdateMaterialInput{Stock: &stock})
	require.NoError(t, err)

	assert.Equal(t, "Steel", updated.Name, "unset fields stay unchanged")
	assert.Equal(t, float64(3), updated.Stock)
	assert.True(t, updated.LowStock())
}

func TestListOrdersLowStockFirst(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateMaterialInput{Name: "Plenty", Stock: 100, Unit: "kg", Threshold: 10})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateMaterialInput{Name: "Short", Stock: 2, Unit: "kg", Threshold: 10})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateMaterialInput{Name: "Critical", Stock: 1, Unit: "kg", Threshold: 4})
	require.NoError(t, err)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Critical", items[0].Name)
	assert.Equal(t, "Short", items[1].Name)
	assert.Equal(t, "Plenty", items[2].Name)
}

func TestListPagePagination(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"} {
		_, err := svc.Create(ctx, CreateMaterialInput{Name: name, Stock: 50, Unit: "kg", Threshold: 1})
		require.NoError(t, err)
	}

	items, pagination, err := svc.ListPage(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, items, shared.PageSize)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 2, pagination.TotalPages)
	assert.Equal(t, 12, pagination.Total)

	items, pagination, err = svc.ListPage(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, pagination.Page)
}

func TestGetMaterialNotFound(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMaterial(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	material, err := svc.Create(ctx, CreateMaterialInput{Name: "Steel", Unit: "kg"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, material.ID))
	_, err = svc.Get(ctx, material.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
