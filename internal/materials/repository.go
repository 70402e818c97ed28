package materials

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for materials.
type Repository interface {
	List(ctx context.Context) ([]Material, error)
	ListPage(ctx context.Context, limit, offset int) ([]Material, int, error)
	Get(ctx context.Context, id int64) (Material, error)
	GetByName(ctx context.Context, name string) (Material, error)
	Create(ctx context.Context, material Material) (Material, error)
	Update(ctx context.Context, id int64, material Material) (Material, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const materialColumns = `id, name, stock, unit, threshold, description, created_at, updated_at`

// Low-stock materials first, then by tightest threshold, then by lowest stock.
const lowStockOrder = `ORDER BY (stock < threshold) DESC, threshold ASC, stock ASC`

func scanMaterial(row pgx.Row) (Material, error) {
	var m Material
	err := row.Scan(&m.ID, &m.Name, &m.Stock, &m.Unit, &m.Threshold, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Material{}, ErrNotFound
	}
	return m, err
}

func (r *repository) List(ctx context.Context) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+materialColumns+` FROM materials `+lowStockOrder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMaterials(rows)
}

func (r *repository) ListPage(ctx context.Context, limit, offset int) ([]Material, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM materials`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+materialColumns+` FROM materials `+lowStockOrder+` LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectMaterials(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Material, error) {
	return scanMaterial(r.pool.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id))
}

func (r *repository) GetByName(ctx context.Context, name string) (Material, error) {
	return scanMaterial(r.pool.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE name = $1`, name))
}

func (r *repository) Create(ctx context.Context, material Material) (Material, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO materials (name, stock, unit, threshold, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		material.Name, material.Stock, material.Unit, material.Threshold, material.Description, now,
	).Scan(&material.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Material{}, ErrDuplicate
		}
		return Material{}, err
	}
	material.CreatedAt = now
	material.UpdatedAt = now
	return material, nil
}

func (r *repository) Update(ctx context.Context, id int64, material Material) (Material, error) {
	now := time.Now()
	tag, err := r.pool.Exec(ctx,
		`UPDATE materials SET name = $1, stock = $2, unit = $3, threshold = $4, description = $5, updated_at = $6 WHERE id = $7`,
		material.Name, material.Stock, material.Unit, material.Threshold, material.Description, now, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Material{}, ErrDuplicate
		}
		return Material{}, err
	}
	if tag.RowsAffected() == 0 {
		return Material{}, ErrNotFound
	}
	material.ID = id
	material.UpdatedAt = now
	return material, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectMaterials(rows pgx.Rows) ([]Material, error) {
	var items []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Stock, &m.Unit, &m.Threshold, &m.Description, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
