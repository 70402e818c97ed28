package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fabrica-erp/fabrica-erp/internal/materials"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
	"github.com/fabrica-erp/fabrica-erp/internal/vendors"
)

// VendorResolver resolves vendors, price list included.
type VendorResolver interface {
	GetByName(ctx context.Context, name string) (vendors.Vendor, error)
}

// MaterialResolver resolves materials by name.
type MaterialResolver interface {
	GetByName(ctx context.Context, name string) (materials.Material, error)
}

// Service holds purchase-order business rules.
type Service struct {
	repo      RepositoryPort
	vendors   VendorResolver
	materials MaterialResolver
	audit     *shared.AuditLogger
}

// NewService constructs the Service.
func NewService(repo RepositoryPort, vendors VendorResolver, materials MaterialResolver, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, vendors: vendors, materials: materials, audit: audit}
}

// OrderInput names the vendor and material of an order; the price comes from
// the vendor's price list at resolution time.
type OrderInput struct {
	VendorName   string
	MaterialName string
	Quantity     int64
}

// List returns every order, pending ones first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.repo.List(ctx)
}

// ListPage returns one page of orders plus pagination metadata.
func (s *Service) ListPage(ctx context.Context, page int) ([]Order, shared.Pagination, error) {
	p := shared.NewPagination(page, 0)
	items, total, err := s.repo.ListPage(ctx, shared.PageSize, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, total), nil
}

// Get fetches an order by id.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	if id <= 0 {
		return Order{}, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create resolves vendor, material and price, then persists a Pending order.
// Stock does not move until the order is received.
func (s *Service) Create(ctx context.Context, input OrderInput) (Order, error) {
	vendorID, materialID, costPerUnit, err := s.resolve(ctx, input)
	if err != nil {
		return Order{}, err
	}
	order := Order{
		VendorID:    &vendorID,
		MaterialID:  &materialID,
		Quantity:    input.Quantity,
		CostPerUnit: costPerUnit,
		TotalCost:   float64(input.Quantity) * costPerUnit,
		Status:      StatusPending,
	}
	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return Order{}, err
	}
	return s.repo.Get(ctx, created.ID)
}

// Update re-resolves vendor, material and price exactly as Create and
// overwrites the order. It never touches stock, even on a Received order;
// receipts are not reversed.
func (s *Service) Update(ctx context.Context, id int64, input OrderInput) (Order, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	vendorID, materialID, costPerUnit, err := s.resolve(ctx, input)
	if err != nil {
		return Order{}, err
	}
	existing.VendorID = &vendorID
	existing.MaterialID = &materialID
	existing.Quantity = input.Quantity
	existing.CostPerUnit = costPerUnit
	existing.TotalCost = float64(input.Quantity) * costPerUnit
	return s.repo.Update(ctx, id, existing)
}

// Delete removes the order unconditionally. A prior receipt's stock credit
// stays in place.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// Receive marks a pending order received and credits the material's stock.
// Both writes happen in one transaction with the order and material rows
// locked, so a concurrent second receive fails instead of double-crediting.
func (s *Service) Receive(ctx context.Context, id int64, actorID int64) (Order, error) {
	if id <= 0 {
		return Order{}, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status == StatusReceived {
			return ErrAlreadyReceived
		}
		if order.MaterialID == nil {
			return ErrMaterialGone
		}
		if err := tx.CreditMaterial(ctx, *order.MaterialID, order.Quantity); err != nil {
			return err
		}
		return tx.MarkReceived(ctx, id)
	})
	if err != nil {
		return Order{}, err
	}

	received, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "order.received",
		Entity:   "order",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"quantity": received.Quantity, "materialId": received.MaterialID},
	})
	return received, nil
}

// resolve maps vendor and material names to ids and looks the price up in the
// vendor's list. The first entry for the material wins when the list carries
// duplicates.
func (s *Service) resolve(ctx context.Context, input OrderInput) (vendorID, materialID int64, costPerUnit float64, err error) {
	if input.Quantity < 1 {
		return 0, 0, 0, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	vendor, err := s.vendors.GetByName(ctx, strings.TrimSpace(input.VendorName))
	if err != nil {
		return 0, 0, 0, err
	}
	material, err := s.materials.GetByName(ctx, strings.TrimSpace(input.MaterialName))
	if err != nil {
		return 0, 0, 0, err
	}
	for _, entry := range vendor.Materials {
		if entry.MaterialID == material.ID {
			return vendor.ID, material.ID, entry.CostPerUnit, nil
		}
	}
	return 0, 0, 0, ErrNotSupplied
}
