package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fabrica-erp/fabrica-erp/internal/materials"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

// MaterialResolver resolves material names for price-list entries.
type MaterialResolver interface {
	GetByName(ctx context.Context, name string) (materials.Material, error)
}

// Service holds vendor business rules.
type Service struct {
	repo      Repository
	materials MaterialResolver
}

// NewService constructs the Service.
func NewService(repo Repository, materials MaterialResolver) *Service {
	return &Service{repo: repo, materials: materials}
}

// PriceInput names a material and the vendor's cost per unit for it.
type PriceInput struct {
	MaterialName string
	CostPerUnit  float64
}

// CreateVendorInput describes the creation payload.
type CreateVendorInput struct {
	Name      string
	Contact   string
	Email     string
	Address   string
	Materials []PriceInput
}

// UpdateVendorInput describes a partial update; nil fields stay unchanged. A
// non-nil Materials slice replaces the whole price list.
type UpdateVendorInput struct {
	Name      *string
	Contact   *string
	Email     *string
	Address   *string
	Materials *[]PriceInput
}

// List returns every vendor with its price list.
func (s *Service) List(ctx context.Context) ([]Vendor, error) {
	return s.repo.List(ctx)
}

// ListPage returns one page of vendors plus pagination metadata.
func (s *Service) ListPage(ctx context.Context, page int) ([]Vendor, shared.Pagination, error) {
	p := shared.NewPagination(page, 0)
	items, total, err := s.repo.ListPage(ctx, shared.PageSize, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, total), nil
}

// Get fetches a vendor by id.
func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	if id <= 0 {
		return Vendor{}, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// GetByName fetches a vendor by its unique name.
func (s *Service) GetByName(ctx context.Context, name string) (Vendor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Vendor{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	return s.repo.GetByName(ctx, name)
}

// Create validates the payload, resolves material names and persists the
// vendor with its price list.
func (s *Service) Create(ctx context.Context, input CreateVendorInput) (Vendor, error) {
	if err := validateVendor(input.Name, input.Contact, input.Email, input.Address); err != nil {
		return Vendor{}, err
	}
	entries, err := s.resolvePrices(ctx, input.Materials)
	if err != nil {
		return Vendor{}, err
	}
	vendor := Vendor{
		Name:      strings.TrimSpace(input.Name),
		Contact:   strings.TrimSpace(input.Contact),
		Email:     strings.TrimSpace(input.Email),
		Address:   strings.TrimSpace(input.Address),
		Materials: entries,
	}
	return s.repo.Create(ctx, vendor)
}

// Update applies a partial update; a provided price list replaces the old one.
func (s *Service) Update(ctx context.Context, id int64, input UpdateVendorInput) (Vendor, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Vendor{}, err
	}
	if input.Name != nil {
		existing.Name = strings.TrimSpace(*input.Name)
	}
	if input.Contact != nil {
		existing.Contact = strings.TrimSpace(*input.Contact)
	}
	if input.Email != nil {
		existing.Email = strings.TrimSpace(*input.Email)
	}
	if input.Address != nil {
		existing.Address = strings.TrimSpace(*input.Address)
	}
	if err := validateVendor(existing.Name, existing.Contact, existing.Email, existing.Address); err != nil {
		return Vendor{}, err
	}

	replacePrices := false
	if input.Materials != nil {
		entries, err := s.resolvePrices(ctx, *input.Materials)
		if err != nil {
			return Vendor{}, err
		}
		existing.Materials = entries
		replacePrices = true
	}
	return s.repo.Update(ctx, id, existing, replacePrices)
}

// Delete removes a vendor and its price list.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// resolvePrices maps material names to ids, collecting every unknown name so
// the caller sees the full list at once. Duplicate entries for one material
// are kept as sent.
func (s *Service) resolvePrices(ctx context.Context, inputs []PriceInput) ([]PriceEntry, error) {
	entries := make([]PriceEntry, 0, len(inputs))
	var missing []string
	for _, input := range inputs {
		if input.CostPerUnit <= 0 {
			return nil, fmt.Errorf("%w: cost per unit must be positive for %q", ErrValidation, input.MaterialName)
		}
		material, err := s.materials.GetByName(ctx, strings.TrimSpace(input.MaterialName))
		if err != nil {
			if errors.Is(err, materials.ErrNotFound) {
				missing = append(missing, input.MaterialName)
				continue
			}
			return nil, err
		}
		entries = append(entries, PriceEntry{
			MaterialID:   material.ID,
			MaterialName: material.Name,
			CostPerUnit:  input.CostPerUnit,
		})
	}
	if len(missing) > 0 {
		return nil, &MissingMaterialsError{Names: missing}
	}
	return entries, nil
}

func validateVendor(name, contact, email, address string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(contact) == "" {
		return fmt.Errorf("%w: contact is required", ErrValidation)
	}
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("%w: address is required", ErrValidation)
	}
	return nil
}
