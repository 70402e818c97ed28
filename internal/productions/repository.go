package productions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort is the persistence surface the production service works
// against.
type RepositoryPort interface {
	List(ctx context.Context) ([]Production, error)
	ListPage(ctx context.Context, limit, offset int) ([]Production, int, error)
	Get(ctx context.Context, id int64) (Production, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// MaterialBalance is a locked material row's identity and stock.
type MaterialBalance struct {
	ID    int64
	Name  string
	Stock float64
}

// TxRepository exposes the operations the stock workflows need inside one
// transaction. Row locks are taken by the *ForUpdate methods and held to
// commit.
type TxRepository interface {
	GetProductionForUpdate(ctx context.Context, id int64) (Production, error)
	InsertProduction(ctx context.Context, p Production) (int64, error)
	UpdateProduction(ctx context.Context, id int64, p Production) error
	DeleteProduction(ctx context.Context, id int64) error

	MaterialForUpdate(ctx context.Context, id int64) (MaterialBalance, error)
	AdjustMaterialStock(ctx context.Context, id int64, delta float64) error
	ProductForUpdate(ctx context.Context, id int64) (int64, error)
	AdjustProductQuantity(ctx context.Context, id int64, delta int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectProduction = `
	SELECT pr.id, pr.product_id, p.name, pr.units_produced, pr.created_at, pr.updated_at
	FROM productions pr
	JOIN products p ON p.id = pr.product_id`

func (r *Repository) List(ctx context.Context) ([]Production, error) {
	rows, err := r.pool.Query(ctx, selectProduction+` ORDER BY pr.created_at DESC, pr.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectProductions(rows)
	if err != nil {
		return nil, err
	}
	return attachConsumed(ctx, r.pool, items)
}

func (r *Repository) ListPage(ctx context.Context, limit, offset int) ([]Production, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM productions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, selectProduction+` ORDER BY pr.created_at DESC, pr.id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectProductions(rows)
	if err != nil {
		return nil, 0, err
	}
	items, err = attachConsumed(ctx, r.pool, items)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Production, error) {
	row := r.pool.QueryRow(ctx, selectProduction+` WHERE pr.id = $1`, id)
	p, err := scanProduction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Production{}, ErrNotFound
	}
	if err != nil {
		return Production{}, err
	}
	items, err := attachConsumed(ctx, r.pool, []Production{p})
	if err != nil {
		return Production{}, err
	}
	return items[0], nil
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (t *txRepo) GetProductionForUpdate(ctx context.Context, id int64) (Production, error) {
	var p Production
	err := t.tx.QueryRow(ctx,
		`SELECT id, product_id, units_produced, created_at, updated_at FROM productions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&p.ID, &p.ProductID, &p.UnitsProduced, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Production{}, ErrNotFound
	}
	if err != nil {
		return Production{}, err
	}

	rows, err := t.tx.Query(ctx,
		`SELECT pm.material_id, m.name, pm.quantity
		 FROM production_materials pm
		 LEFT JOIN materials m ON m.id = pm.material_id
		 WHERE pm.production_id = $1
		 ORDER BY pm.id`, id)
	if err != nil {
		return Production{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var c ConsumedMaterial
		if err := rows.Scan(&c.MaterialID, &c.Name, &c.Quantity); err != nil {
			return Production{}, err
		}
		p.RawMaterials = append(p.RawMaterials, c)
	}
	return p, rows.Err()
}

func (t *txRepo) InsertProduction(ctx context.Context, p Production) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO productions (product_id, units_produced) VALUES ($1, $2) RETURNING id`,
		p.ProductID, p.UnitsProduced,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, insertConsumed(ctx, t.tx, id, p.RawMaterials)
}

func (t *txRepo) UpdateProduction(ctx context.Context, id int64, p Production) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE productions SET product_id = $1, units_produced = $2, updated_at = now() WHERE id = $3`,
		p.ProductID, p.UnitsProduced, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM production_materials WHERE production_id = $1`, id); err != nil {
		return err
	}
	return insertConsumed(ctx, t.tx, id, p.RawMaterials)
}

func (t *txRepo) DeleteProduction(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM productions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) MaterialForUpdate(ctx context.Context, id int64) (MaterialBalance, error) {
	var b MaterialBalance
	err := t.tx.QueryRow(ctx, `SELECT id, name, stock FROM materials WHERE id = $1 FOR UPDATE`, id).
		Scan(&b.ID, &b.Name, &b.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return MaterialBalance{}, ErrMaterialGone
	}
	return b, err
}

func (t *txRepo) AdjustMaterialStock(ctx context.Context, id int64, delta float64) error {
	// Clamped at zero; reverts of stale records must not drive stock negative.
	_, err := t.tx.Exec(ctx,
		`UPDATE materials SET stock = GREATEST(stock + $1, 0), updated_at = now() WHERE id = $2`, delta, id)
	return err
}

func (t *txRepo) ProductForUpdate(ctx context.Context, id int64) (int64, error) {
	var quantity int64
	err := t.tx.QueryRow(ctx, `SELECT quantity FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductGone
	}
	return quantity, err
}

func (t *txRepo) AdjustProductQuantity(ctx context.Context, id int64, delta int64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE products SET quantity = GREATEST(quantity + $1, 0), updated_at = now() WHERE id = $2`, delta, id)
	return err
}

func insertConsumed(ctx context.Context, tx pgx.Tx, productionID int64, lines []ConsumedMaterial) error {
	for _, line := range lines {
		_, err := tx.Exec(ctx,
			`INSERT INTO production_materials (production_id, material_id, quantity) VALUES ($1, $2, $3)`,
			productionID, line.MaterialID, line.Quantity,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func attachConsumed(ctx context.Context, pool *pgxpool.Pool, items []Production) ([]Production, error) {
	if len(items) == 0 {
		return items, nil
	}
	ids := make([]int64, 0, len(items))
	index := make(map[int64]int, len(items))
	for i := range items {
		items[i].RawMaterials = []ConsumedMaterial{}
		ids = append(ids, items[i].ID)
		index[items[i].ID] = i
	}

	rows, err := pool.Query(ctx,
		`SELECT pm.production_id, pm.material_id, m.name, pm.quantity
		 FROM production_materials pm
		 LEFT JOIN materials m ON m.id = pm.material_id
		 WHERE pm.production_id = ANY($1)
		 ORDER BY pm.id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var productionID int64
		var c ConsumedMaterial
		if err := rows.Scan(&productionID, &c.MaterialID, &c.Name, &c.Quantity); err != nil {
			return nil, err
		}
		i := index[productionID]
		items[i].RawMaterials = append(items[i].RawMaterials, c)
	}
	return items, rows.Err()
}

func scanProduction(row pgx.Row) (Production, error) {
	var p Production
	err := row.Scan(&p.ID, &p.ProductID, &p.ProductName, &p.UnitsProduced, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProductions(rows pgx.Rows) ([]Production, error) {
	var items []Production
	for rows.Next() {
		p, err := scanProduction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
