package vendors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabrica-erp/fabrica-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for vendors and their
// price lists.
type Repository interface {
	List(ctx context.Context) ([]Vendor, error)
	ListPage(ctx context.Context, limit, offset int) ([]Vendor, int, error)
	Get(ctx context.Context, id int64) (Vendor, error)
	GetByName(ctx context.Context, name string) (Vendor, error)
	Create(ctx context.Context, vendor Vendor) (Vendor, error)
	Update(ctx context.Context, id int64, vendor Vendor, replacePrices bool) (Vendor, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context) ([]Vendor, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, contact, email, address FROM vendors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vendors, err := collectVendors(rows)
	if err != nil {
		return nil, err
	}
	return r.attachPrices(ctx, vendors)
}

func (r *repository) ListPage(ctx context.Context, limit, offset int) ([]Vendor, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name, contact, email, address FROM vendors ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	vendors, err := collectVendors(rows)
	if err != nil {
		return nil, 0, err
	}
	vendors, err = r.attachPrices(ctx, vendors)
	if err != nil {
		return nil, 0, err
	}
	return vendors, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Vendor, error) {
	var v Vendor
	err := r.pool.QueryRow(ctx, `SELECT id, name, contact, email, address FROM vendors WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.Contact, &v.Email, &v.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, ErrNotFound
	}
	if err != nil {
		return Vendor{}, err
	}
	vendors, err := r.attachPrices(ctx, []Vendor{v})
	if err != nil {
		return Vendor{}, err
	}
	return vendors[0], nil
}

func (r *repository) GetByName(ctx context.Context, name string) (Vendor, error) {
	var v Vendor
	err := r.pool.QueryRow(ctx, `SELECT id, name, contact, email, address FROM vendors WHERE name = $1`, name).
		Scan(&v.ID, &v.Name, &v.Contact, &v.Email, &v.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, ErrNotFound
	}
	if err != nil {
		return Vendor{}, err
	}
	vendors, err := r.attachPrices(ctx, []Vendor{v})
	if err != nil {
		return Vendor{}, err
	}
	return vendors[0], nil
}

func (r *repository) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO vendors (name, contact, email, address) VALUES ($1, $2, $3, $4) RETURNING id`,
			vendor.Name, vendor.Contact, vendor.Email, vendor.Address,
		).Scan(&vendor.ID)
		if err != nil {
			return err
		}
		return insertPrices(ctx, tx, vendor.ID, vendor.Materials)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Vendor{}, ErrDuplicate
		}
		return Vendor{}, err
	}
	return vendor, nil
}

func (r *repository) Update(ctx context.Context, id int64, vendor Vendor, replacePrices bool) (Vendor, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE vendors SET name = $1, contact = $2, email = $3, address = $4 WHERE id = $5`,
			vendor.Name, vendor.Contact, vendor.Email, vendor.Address, id,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if !replacePrices {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM vendor_materials WHERE vendor_id = $1`, id); err != nil {
			return err
		}
		return insertPrices(ctx, tx, id, vendor.Materials)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Vendor{}, ErrDuplicate
		}
		return Vendor{}, err
	}
	return r.Get(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) attachPrices(ctx context.Context, vendors []Vendor) ([]Vendor, error) {
	if len(vendors) == 0 {
		return vendors, nil
	}
	ids := make([]int64, 0, len(vendors))
	index := make(map[int64]int, len(vendors))
	for i := range vendors {
		vendors[i].Materials = []PriceEntry{}
		ids = append(ids, vendors[i].ID)
		index[vendors[i].ID] = i
	}

	rows, err := r.pool.Query(ctx,
		`SELECT vm.vendor_id, vm.material_id, m.name, vm.cost_per_unit
		 FROM vendor_materials vm
		 JOIN materials m ON m.id = vm.material_id
		 WHERE vm.vendor_id = ANY($1)
		 ORDER BY vm.id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var vendorID int64
		var entry PriceEntry
		if err := rows.Scan(&vendorID, &entry.MaterialID, &entry.MaterialName, &entry.CostPerUnit); err != nil {
			return nil, err
		}
		i := index[vendorID]
		vendors[i].Materials = append(vendors[i].Materials, entry)
	}
	return vendors, rows.Err()
}

func insertPrices(ctx context.Context, tx pgx.Tx, vendorID int64, entries []PriceEntry) error {
	for _, entry := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO vendor_materials (vendor_id, material_id, cost_per_unit) VALUES ($1, $2, $3)`,
			vendorID, entry.MaterialID, entry.CostPerUnit,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func collectVendors(rows pgx.Rows) ([]Vendor, error) {
	var vendors []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Contact, &v.Email, &v.Address); err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
