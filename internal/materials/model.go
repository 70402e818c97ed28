package materials

import (
	"errors"
	"time"
)

// Material is a raw material tracked by the stock ledger. Stock is the sole
// mutable balance; only the order and production workflows move it.
type Material struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Stock       float64   `json:"stock"`
	Unit        string    `json:"unit"`
	Threshold   float64   `json:"threshold"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LowStock reports whether the material sits below its reorder threshold.
func (m Material) LowStock() bool {
	return m.Stock < m.Threshold
}

var (
	// ErrNotFound indicates the material does not exist.
	ErrNotFound = errors.New("materials: not found")
	// ErrDuplicate indicates a unique-name collision.
	ErrDuplicate = errors.New("materials: already exists")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("materials: invalid input")
)
