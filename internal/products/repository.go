package products

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabrica-erp/fabrica-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for products. Delete is a
// soft delete; rows stay behind sales history.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListPage(ctx context.Context, limit, offset int) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetByName(ctx context.Context, name string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product, replaceMaterials bool) (Product, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectProduct = `SELECT id, name, quantity, price_per_unit, is_available, created_at, updated_at FROM products`

func (r *repository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, selectProduct+` WHERE is_available ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	return r.attachMaterials(ctx, items)
}

func (r *repository) ListPage(ctx context.Context, limit, offset int) ([]Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_available`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, selectProduct+` WHERE is_available ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	items, err = r.attachMaterials(ctx, items)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, selectProduct+` WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	items, err := r.attachMaterials(ctx, []Product{p})
	if err != nil {
		return Product{}, err
	}
	return items[0], nil
}

func (r *repository) GetByName(ctx context.Context, name string) (Product, error) {
	row := r.pool.QueryRow(ctx, selectProduct+` WHERE name = $1 AND is_available`, name)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	items, err := r.attachMaterials(ctx, []Product{p})
	if err != nil {
		return Product{}, err
	}
	return items[0], nil
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO products (name, quantity, price_per_unit, is_available) VALUES ($1, $2, $3, TRUE)
			 RETURNING id, is_available, created_at, updated_at`,
			product.Name, product.Quantity, product.PricePerUnit,
		).Scan(&product.ID, &product.IsAvailable, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return err
		}
		return insertMaterialRefs(ctx, tx, product.ID, product.RawMaterials)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicate
		}
		return Product{}, err
	}
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product, replaceMaterials bool) (Product, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// quantity is deliberately not in the SET list: the ledger balance
		// belongs to the production/sale transactions and a stale read here
		// must not overwrite their committed debits.
		tag, err := tx.Exec(ctx,
			`UPDATE products SET name = $1, price_per_unit = $2, updated_at = now() WHERE id = $3`,
			product.Name, product.PricePerUnit, id,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if !replaceMaterials {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_materials WHERE product_id = $1`, id); err != nil {
			return err
		}
		return insertMaterialRefs(ctx, tx, id, product.RawMaterials)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicate
		}
		return Product{}, err
	}
	return r.Get(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_available = FALSE, updated_at = now() WHERE id = $1 AND is_available`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) attachMaterials(ctx context.Context, items []Product) ([]Product, error) {
	if len(items) == 0 {
		return items, nil
	}
	ids := make([]int64, 0, len(items))
	index := make(map[int64]int, len(items))
	for i := range items {
		items[i].RawMaterials = []MaterialRef{}
		ids = append(ids, items[i].ID)
		index[items[i].ID] = i
	}

	rows, err := r.pool.Query(ctx,
		`SELECT pm.product_id, pm.material_id, m.name
		 FROM product_materials pm
		 JOIN materials m ON m.id = pm.material_id
		 WHERE pm.product_id = ANY($1)
		 ORDER BY pm.id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var productID int64
		var ref MaterialRef
		if err := rows.Scan(&productID, &ref.MaterialID, &ref.Name); err != nil {
			return nil, err
		}
		i := index[productID]
		items[i].RawMaterials = append(items[i].RawMaterials, ref)
	}
	return items, rows.Err()
}

func insertMaterialRefs(ctx context.Context, tx pgx.Tx, productID int64, refs []MaterialRef) error {
	for _, ref := range refs {
		_, err := tx.Exec(ctx,
			`INSERT INTO product_materials (product_id, material_id) VALUES ($1, $2)`,
			productID, ref.MaterialID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Quantity, &p.PricePerUnit, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
