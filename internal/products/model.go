package products

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Product is a manufactured good. Quantity counts produced-but-unsold units
// and is moved only by the production and sales workflows.
type Product struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Quantity     int64         `json:"quantity"`
	PricePerUnit float64       `json:"pricePerUnit"`
	RawMaterials []MaterialRef `json:"rawMaterials"`
	IsAvailable  bool          `json:"isAvailable"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// MaterialRef names one raw material the product is built from. The product
// does not fix per-unit consumption; each production run states its own
// quantities.
type MaterialRef struct {
	MaterialID int64  `json:"materialId"`
	Name       string `json:"name"`
}

var (
	// ErrNotFound indicates the product does not exist.
	ErrNotFound = errors.New("products: not found")
	// ErrDuplicate indicates a unique-name collision.
	ErrDuplicate = errors.New("products: already exists")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("products: invalid input")
)

// MissingMaterialsError reports rawMaterials entries naming unknown materials.
type MissingMaterialsError struct {
	Names []string
}

func (e *MissingMaterialsError) Error() string {
	return fmt.Sprintf("some raw materials were not found: %s", strings.Join(e.Names, ", "))
}
