package sales

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort is the persistence surface the sales service works against.
type RepositoryPort interface {
	List(ctx context.Context) ([]Sale, error)
	ListPage(ctx context.Context, limit, offset int) ([]Sale, int, error)
	Get(ctx context.Context, id int64) (Sale, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// ProductBalance is a locked product row's stock and price.
type ProductBalance struct {
	ID           int64
	Quantity     int64
	PricePerUnit float64
}

// TxRepository exposes the operations the sales workflow needs inside one
// transaction.
type TxRepository interface {
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	UpdateSale(ctx context.Context, id int64, sale Sale) error
	DeleteSale(ctx context.Context, id int64) error

	ProductForUpdate(ctx context.Context, id int64) (ProductBalance, error)
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

const selectSale = `
	SELECT s.id, s.product_id, p.name, s.customer_name, s.units_sold, s.total_sale, s.created_at, s.updated_at
	FROM sales s
	JOIN products p ON p.id = s.product_id`

func (r *Repository) List(ctx context.Context) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, selectSale+` ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

func (r *Repository) ListPage(ctx context.Context, limit, offset int) ([]Sale, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, selectSale+` ORDER BY s.created_at DESC, s.id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectSales(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, selectSale+` WHERE s.id = $1`, id)
	s, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	return s, err
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

func (t *txRepo) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	var s Sale
	err := t.tx.QueryRow(ctx,
		`SELECT id, product_id, customer_name, units_sold, total_sale, created_at, updated_at
		 FROM sales WHERE id = $1 FOR UPDATE`, id,
	).Scan(&s.ID, &s.ProductID, &s.CustomerName, &s.UnitsSold, &s.TotalSale, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	return s, err
}

func (t *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO sales (product_id, customer_name, units_sold, total_sale) VALUES ($1, $2, $3, $4) RETURNING id`,
		sale.ProductID, sale.CustomerName, sale.UnitsSold, sale.TotalSale,
	).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateSale(ctx context.Context, id int64, sale Sale) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE sales SET product_id = $1, customer_name = $2, units_sold = $3, total_sale = $4, updated_at = now()
		 WHERE id = $5`,
		sale.ProductID, sale.CustomerName, sale.UnitsSold, sale.TotalSale, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteSale(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ProductForUpdate(ctx context.Context, id int64) (ProductBalance, error) {
	var b ProductBalance
	err := t.tx.QueryRow(ctx, `SELECT id, quantity, price_per_unit FROM products WHERE id = $1 FOR UPDATE`, id).
		Scan(&b.ID, &b.Quantity, &b.PricePerUnit)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductBalance{}, ErrProductGone
	}
	return b, err
}

func (t *txRepo) AdjustProductQuantity(ctx context.Context, id int64, delta int64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE products SET quantity = quantity + $1, updated_at = now() WHERE id = $2`, delta, id)
	return err
}

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.ProductID, &s.ProductName, &s.CustomerName, &s.UnitsSold, &s.TotalSale, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func collectSales(rows pgx.Rows) ([]Sale, error) {
	var items []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
