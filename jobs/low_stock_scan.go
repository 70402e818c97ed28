package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LowStockScanJob surfaces materials sitting below their reorder threshold,
// using the same ranking the materials API exposes.
type LowStockScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// NewLowStockScanJob initialises the low-stock scan handler.
func NewLowStockScanJob(pool *pgxpool.Pool, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{Pool: pool, Logger: logger}
}

// Handle executes the scan and logs every short material.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = 20
	}

	rows, err := j.Pool.Query(ctx,
		`SELECT name, stock, threshold, unit FROM materials
		 WHERE stock < threshold
		 ORDER BY threshold ASC, stock ASC
		 LIMIT $1`, payload.Limit)
	if err != nil {
		j.Logger.Error("low stock scan query", slog.Any("error", err))
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var name, unit string
		var stock, threshold float64
		if err := rows.Scan(&name, &stock, &threshold, &unit); err != nil {
			return err
		}
		count++
		j.Logger.Warn("material below reorder threshold",
			slog.String("material", name),
			slog.Float64("stock", stock),
			slog.Float64("threshold", threshold),
			slog.String("unit", unit),
		)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	j.Logger.Info("low stock scan finished", slog.Int("materials_below_threshold", count))
	return nil
}
