package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fabrica-erp/fabrica-erp/internal/materials"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

// MaterialResolver resolves raw-material names on the bill of materials.
type MaterialResolver interface {
	GetByName(ctx context.Context, name string) (materials.Material, error)
}

// Service holds product business rules.
type Service struct {
	repo      Repository
	materials MaterialResolver
}

// NewService constructs the Service.
func NewService(repo Repository, materials MaterialResolver) *Service {
	return &Service{repo: repo, materials: materials}
}

// CreateProductInput describes the creation payload. Quantity starts at zero
// unless an opening balance is given.
type CreateProductInput struct {
	Name         string
	Quantity     int64
	PricePerUnit float64
	RawMaterials []string
}

// UpdateProductInput describes a partial update; nil fields stay unchanged. A
// non-nil RawMaterials slice replaces the whole bill of materials. Quantity is
// deliberately absent: stock moves only through productions and sales.
type UpdateProductInput struct {
	Name         *string
	PricePerUnit *float64
	RawMaterials *[]string
}

// List returns every available product.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// ListPage returns one page of available products plus pagination metadata.
func (s *Service) ListPage(ctx context.Context, page int) ([]Product, shared.Pagination, error) {
	p := shared.NewPagination(page, 0)
	items, total, err := s.repo.ListPage(ctx, shared.PageSize, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, total), nil
}

// Get fetches a product by id, discontinued ones included.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// GetByName fetches an available product by its unique name.
func (s *Service) GetByName(ctx context.Context, name string) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	return s.repo.GetByName(ctx, name)
}

// Create validates the payload, resolves raw-material names and persists the
// product.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (Product, error) {
	if err := validateProduct(input.Name, input.PricePerUnit); err != nil {
		return Product{}, err
	}
	if input.Quantity < 0 {
		return Product{}, fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	refs, err := s.resolveMaterials(ctx, input.RawMaterials)
	if err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, Product{
		Name:         strings.TrimSpace(input.Name),
		Quantity:     input.Quantity,
		PricePerUnit: input.PricePerUnit,
		RawMaterials: refs,
	})
}

// Update applies a partial update; a provided bill of materials replaces the
// old one.
func (s *Service) Update(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.Name != nil {
		existing.Name = strings.TrimSpace(*input.Name)
	}
	if input.PricePerUnit != nil {
		existing.PricePerUnit = *input.PricePerUnit
	}
	if err := validateProduct(existing.Name, existing.PricePerUnit); err != nil {
		return Product{}, err
	}

	replaceMaterials := false
	if input.RawMaterials != nil {
		refs, err := s.resolveMaterials(ctx, *input.RawMaterials)
		if err != nil {
			return Product{}, err
		}
		existing.RawMaterials = refs
		replaceMaterials = true
	}
	return s.repo.Update(ctx, id, existing, replaceMaterials)
}

// Delete marks a product unavailable. Sales history keeps pointing at it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// resolveMaterials maps raw-material names to ids, collecting every unknown
// name so the caller sees the full list at once.
func (s *Service) resolveMaterials(ctx context.Context, names []string) ([]MaterialRef, error) {
	refs := make([]MaterialRef, 0, len(names))
	var missing []string
	for _, name := range names {
		material, err := s.materials.GetByName(ctx, strings.TrimSpace(name))
		if err != nil {
			if errors.Is(err, materials.ErrNotFound) {
				missing = append(missing, name)
				continue
			}
			return nil, err
		}
		refs = append(refs, MaterialRef{MaterialID: material.ID, Name: material.Name})
	}
	if len(missing) > 0 {
		return nil, &MissingMaterialsError{Names: missing}
	}
	return refs, nil
}

func validateProduct(name string, pricePerUnit float64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if pricePerUnit <= 0 {
		return fmt.Errorf("%w: price per unit must be positive", ErrValidation)
	}
	return nil
}
