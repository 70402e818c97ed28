package materials

import (
	"context"
	"fmt"
	"strings"

	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

// Service holds material business rules.
type Service struct {
	repo Repository
}

// NewService constructs the Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateMaterialInput describes the creation payload.
type CreateMaterialInput struct {
	Name        string
	Stock       float64
	Unit        string
	Threshold   float64
	Description string
}

// UpdateMaterialInput describes a partial update; nil fields stay unchanged.
type UpdateMaterialInput struct {
	Name        *string
	Stock       *float64
	Unit        *string
	Threshold   *float64
	Description *string
}

// List returns every material in low-stock-first order.
func (s *Service) List(ctx context.Context) ([]Material, error) {
	return s.repo.List(ctx)
}

// ListPage returns one page of materials plus pagination metadata.
func (s *Service) ListPage(ctx context.Context, page int) ([]Material, shared.Pagination, error) {
	p := shared.NewPagination(page, 0)
	items, total, err := s.repo.ListPage(ctx, shared.PageSize, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, total), nil
}

// Get fetches a material by id.
func (s *Service) Get(ctx context.Context, id int64) (Material, error) {
	if id <= 0 {
		return Material{}, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// GetByName fetches a material by its unique name.
func (s *Service) GetByName(ctx context.Context, name string) (Material, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Material{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	return s.repo.GetByName(ctx, name)
}

// Create validates and persists a new material.
func (s *Service) Create(ctx context.Context, input CreateMaterialInput) (Material, error) {
	if err := validateMaterial(input.Name, input.Stock, input.Unit, input.Threshold); err != nil {
		return Material{}, err
	}
	material := Material{
		Name:        strings.TrimSpace(input.Name),
		Stock:       input.Stock,
		Unit:        strings.TrimSpace(input.Unit),
		Threshold:   input.Threshold,
		Description: strings.TrimSpace(input.Description),
	}
	return s.repo.Create(ctx, material)
}

// Update applies a partial update to an existing material.
func (s *Service) Update(ctx context.Context, id int64, input UpdateMaterialInput) (Material, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Material{}, err
	}
	if input.Name != nil {
		existing.Name = strings.TrimSpace(*input.Name)
	}
	if input.Stock != nil {
		existing.Stock = *input.Stock
	}
	if input.Unit != nil {
		existing.Unit = strings.TrimSpace(*input.Unit)
	}
	if input.Threshold != nil {
		existing.Threshold = *input.Threshold
	}
	if input.Description != nil {
		existing.Description = strings.TrimSpace(*input.Description)
	}
	if err := validateMaterial(existing.Name, existing.Stock, existing.Unit, existing.Threshold); err != nil {
		return Material{}, err
	}
	return s.repo.Update(ctx, id, existing)
}

// Delete removes a material.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func validateMaterial(name string, stock float64, unit string, threshold float64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(unit) == "" {
		return fmt.Errorf("%w: unit is required", ErrValidation)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}
	if threshold < 0 {
		return fmt.Errorf("%w: threshold must not be negative", ErrValidation)
	}
	return nil
}
