package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort is the persistence surface the order service works against.
type RepositoryPort interface {
	List(ctx context.Context) ([]Order, error)
	ListPage(ctx context.Context, limit, offset int) ([]Order, int, error)
	Get(ctx context.Context, id int64) (Order, error)
	Create(ctx context.Context, order Order) (Order, error)
	Update(ctx context.Context, id int64, order Order) (Order, error)
	Delete(ctx context.Context, id int64) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations receive needs inside one transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	MarkReceived(ctx context.Context, id int64) error
	CreditMaterial(ctx context.Context, materialID, quantity int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectOrder = `
	SELECT o.id, o.vendor_id, v.name, o.material_id, m.name,
	       o.quantity, o.cost_per_unit, o.total_cost, o.status, o.created_at, o.updated_at
	FROM orders o
	LEFT JOIN vendors v ON v.id = o.vendor_id
	LEFT JOIN materials m ON m.id = o.material_id`

func (r *Repository) List(ctx context.Context) ([]Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+` ORDER BY o.status, o.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *Repository) ListPage(ctx context.Context, limit, offset int) ([]Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, selectOrder+` ORDER BY o.status, o.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, selectOrder+` WHERE o.id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *Repository) Create(ctx context.Context, order Order) (Order, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO orders (vendor_id, material_id, quantity, cost_per_unit, total_cost, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		order.VendorID, order.MaterialID, order.Quantity, order.CostPerUnit, order.TotalCost, order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (r *Repository) Update(ctx context.Context, id int64, order Order) (Order, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET vendor_id = $1, material_id = $2, quantity = $3, cost_per_unit = $4, total_cost = $5, updated_at = now()
		 WHERE id = $6`,
		order.VendorID, order.MaterialID, order.Quantity, order.CostPerUnit, order.TotalCost, id,
	)
	if err != nil {
		return Order{}, err
	}
	if tag.RowsAffected() == 0 {
		return Order{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
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

// GetForUpdate locks the order row for the rest of the transaction.
func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := t.tx.QueryRow(ctx,
		`SELECT id, vendor_id, material_id, quantity, cost_per_unit, total_cost, status, created_at, updated_at
		 FROM orders WHERE id = $1 FOR UPDATE`, id,
	).Scan(&o.ID, &o.VendorID, &o.MaterialID, &o.Quantity, &o.CostPerUnit, &o.TotalCost, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (t *txRepo) MarkReceived(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`, StatusReceived, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreditMaterial locks the material row and adds the received quantity to its
// stock.
func (t *txRepo) CreditMaterial(ctx context.Context, materialID, quantity int64) error {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM materials WHERE id = $1 FOR UPDATE`, materialID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMaterialGone
	}
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `UPDATE materials SET stock = stock + $1, updated_at = now() WHERE id = $2`, quantity, materialID)
	return err
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.VendorID, &o.VendorName, &o.MaterialID, &o.MaterialName,
		&o.Quantity, &o.CostPerUnit, &o.TotalCost, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
