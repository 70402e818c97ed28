package sales

import (
	"errors"
	"time"
)

// Sale records units sold from a product's produced stock. TotalSale is fixed
// at write time from the product's price.
type Sale struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"productId"`
	ProductName  string    `json:"productName"`
	CustomerName string    `json:"customerName"`
	UnitsSold    int64     `json:"noOfUnitsSold"`
	TotalSale    float64   `json:"totalSale"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	// ErrNotFound indicates the sale does not exist.
	ErrNotFound = errors.New("sales: not found")
	// ErrInsufficientStock indicates the product cannot cover the requested
	// units.
	ErrInsufficientStock = errors.New("sales: insufficient product stock")
	// ErrProductGone indicates the product row no longer exists.
	ErrProductGone = errors.New("sales: product no longer exists")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("sales: invalid input")
)
