package orders

import (
	"errors"
	"time"
)

// Status tracks the purchase-order lifecycle. Received is terminal.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusReceived Status = "Received"
)

// Order is a purchase order for one material from one vendor. The price is
// fixed at creation from the vendor's price list; Material stock is credited
// once, when the order is received.
type Order struct {
	ID           int64     `json:"id"`
	VendorID     *int64    `json:"vendorId"`
	VendorName   *string   `json:"vendorName"`
	MaterialID   *int64    `json:"materialId"`
	MaterialName *string   `json:"materialName"`
	Quantity     int64     `json:"quantity"`
	CostPerUnit  float64   `json:"costPerUnit"`
	TotalCost    float64   `json:"totalCost"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("orders: not found")
	// ErrAlreadyReceived indicates a second receive on the same order.
	ErrAlreadyReceived = errors.New("orders: already received")
	// ErrNotSupplied indicates the vendor's price list has no entry for the
	// requested material.
	ErrNotSupplied = errors.New("orders: vendor does not supply material")
	// ErrMaterialGone indicates the order's material was deleted before receipt.
	ErrMaterialGone = errors.New("orders: material no longer exists")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("orders: invalid input")
)
