package productions

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Production records one manufacturing event: the materials it consumed and
// the product units it yielded. Editing or deleting a production reverses its
// stock effect before reapplying or removing it.
type Production struct {
	ID            int64              `json:"id"`
	ProductID     int64              `json:"productId"`
	ProductName   string             `json:"productName"`
	UnitsProduced int64              `json:"noOfUnitsProduced"`
	RawMaterials  []ConsumedMaterial `json:"quantityOfRawMaterials"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// ConsumedMaterial is one line of a production's material consumption. The
// material reference goes null when the material is later deleted; the
// consumed quantity stays for the record.
type ConsumedMaterial struct {
	MaterialID *int64  `json:"materialId"`
	Name       *string `json:"name"`
	Quantity   float64 `json:"quantity"`
}

var (
	// ErrNotFound indicates the production does not exist.
	ErrNotFound = errors.New("productions: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("productions: invalid input")
	// ErrMaterialGone indicates a referenced material row no longer exists.
	ErrMaterialGone = errors.New("productions: material no longer exists")
	// ErrProductGone indicates the product row no longer exists.
	ErrProductGone = errors.New("productions: product no longer exists")
)

// InvalidMaterialsError reports consumption lines naming materials that are
// not on the product's bill of materials.
type InvalidMaterialsError struct {
	Names []string
}

func (e *InvalidMaterialsError) Error() string {
	return fmt.Sprintf("materials not part of the product: %s", strings.Join(e.Names, ", "))
}

// InsufficientMaterial describes one material whose stock cannot cover the
// requested consumption.
type InsufficientMaterial struct {
	RawMaterialName  string  `json:"rawMaterialName"`
	RequiredQuantity float64 `json:"requiredQuantity"`
	AvailableStock   float64 `json:"availableStock"`
}

// InsufficientMaterialsError reports every short material at once.
type InsufficientMaterialsError struct {
	Items []InsufficientMaterial
}

func (e *InsufficientMaterialsError) Error() string {
	names := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		names = append(names, item.RawMaterialName)
	}
	return fmt.Sprintf("insufficient stock for: %s", strings.Join(names, ", "))
}
