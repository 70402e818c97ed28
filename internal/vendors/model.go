package vendors

import (
	"errors"
	"fmt"
	"strings"
)

// Vendor supplies raw materials at vendor-specific prices.
type Vendor struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Contact   string       `json:"contact"`
	Email     string       `json:"email"`
	Address   string       `json:"address"`
	Materials []PriceEntry `json:"materials"`
}

// PriceEntry fixes the cost per unit this vendor charges for one material.
// The same material may appear more than once; order pricing uses the first
// matching entry.
type PriceEntry struct {
	MaterialID   int64   `json:"materialId"`
	MaterialName string  `json:"materialName"`
	CostPerUnit  float64 `json:"costPerUnit"`
}

var (
	// ErrNotFound indicates the vendor does not exist.
	ErrNotFound = errors.New("vendors: not found")
	// ErrDuplicate indicates a unique name or email collision.
	ErrDuplicate = errors.New("vendors: already exists")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("vendors: invalid input")
)

// MissingMaterialsError reports price-list entries naming unknown materials.
type MissingMaterialsError struct {
	Names []string
}

func (e *MissingMaterialsError) Error() string {
	return fmt.Sprintf("some materials not found: %s", strings.Join(e.Names, ", "))
}
