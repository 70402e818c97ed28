package productions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fabrica-erp/fabrica-erp/internal/products"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

// ProductResolver resolves products with their bill of materials.
type ProductResolver interface {
	GetByName(ctx context.Context, name string) (products.Product, error)
}

// Service holds the production workflow. Every stock mutation it performs
// runs inside a single transaction with the touched rows locked, so a
// production either fully applies or leaves no trace.
type Service struct {
	repo     RepositoryPort
	products ProductResolver
	audit    *shared.AuditLogger
}

// NewService constructs the Service.
func NewService(repo RepositoryPort, products ProductResolver, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, products: products, audit: audit}
}

// ConsumptionInput is one requested material consumption line.
type ConsumptionInput struct {
	RawMaterialName string
	Quantity        float64
}

// ProductionInput describes a manufacturing event to record.
type ProductionInput struct {
	ProductName   string
	UnitsProduced int64
	RawMaterials  []ConsumptionInput
}

// line is a consumption line with the material reference resolved.
type line struct {
	materialID int64
	name       string
	quantity   float64
}

// List returns every production, newest first.
func (s *Service) List(ctx context.Context) ([]Production, error) {
	return s.repo.List(ctx)
}

// ListPage returns one page of productions plus pagination metadata.
func (s *Service) ListPage(ctx context.Context, page int) ([]Production, shared.Pagination, error) {
	p := shared.NewPagination(page, 0)
	items, total, err := s.repo.ListPage(ctx, shared.PageSize, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, total), nil
}

// Get fetches a production by id.
func (s *Service) Get(ctx context.Context, id int64) (Production, error) {
	if id <= 0 {
		return Production{}, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create validates the consumption lines against the product's bill of
// materials and stock, then debits the materials, credits the product and
// persists the record, all in one transaction.
func (s *Service) Create(ctx context.Context, input ProductionInput, actorID int64) (Production, error) {
	product, lines, err := s.resolve(ctx, input)
	if err != nil {
		return Production{}, err
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := debitMaterials(ctx, tx, lines); err != nil {
			return err
		}
		if _, err := tx.ProductForUpdate(ctx, product.ID); err != nil {
			return err
		}
		if err := tx.AdjustProductQuantity(ctx, product.ID, input.UnitsProduced); err != nil {
			return err
		}
		id, err = tx.InsertProduction(ctx, toProduction(product.ID, input.UnitsProduced, lines))
		return err
	})
	if err != nil {
		return Production{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "production.created",
		Entity:   "production",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"productId": product.ID, "unitsProduced": input.UnitsProduced},
	})
	return s.repo.Get(ctx, id)
}

// Update reverses the existing production's stock effect, revalidates the new
// lines against the reverted stock and reapplies, overwriting the record. The
// whole revert-and-reapply runs in one transaction; a failed revalidation
// rolls the revert back too.
func (s *Service) Update(ctx context.Context, id int64, input ProductionInput, actorID int64) (Production, error) {
	if id <= 0 {
		return Production{}, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	product, lines, err := s.resolve(ctx, input)
	if err != nil {
		return Production{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetProductionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := revert(ctx, tx, old); err != nil {
			return err
		}
		if err := debitMaterials(ctx, tx, lines); err != nil {
			return err
		}
		if _, err := tx.ProductForUpdate(ctx, product.ID); err != nil {
			return err
		}
		if err := tx.AdjustProductQuantity(ctx, product.ID, input.UnitsProduced); err != nil {
			return err
		}
		return tx.UpdateProduction(ctx, id, toProduction(product.ID, input.UnitsProduced, lines))
	})
	if err != nil {
		return Production{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "production.updated",
		Entity:   "production",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"productId": product.ID, "unitsProduced": input.UnitsProduced},
	})
	return s.repo.Get(ctx, id)
}

// Delete reverses the production's stock effect and removes the record. The
// product quantity is clamped at zero if units were already sold.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id", ErrValidation)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetProductionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := revert(ctx, tx, old); err != nil {
			return err
		}
		return tx.DeleteProduction(ctx, id)
	})
	if err != nil {
		return err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "production.deleted",
		Entity:   "production",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

// resolve validates the input, fetches the product and maps every consumption
// line onto the product's bill of materials. Lines are returned in material-id
// order so transactions lock rows in a stable order.
func (s *Service) resolve(ctx context.Context, input ProductionInput) (products.Product, []line, error) {
	if input.UnitsProduced < 1 {
		return products.Product{}, nil, fmt.Errorf("%w: units produced must be at least 1", ErrValidation)
	}
	for _, c := range input.RawMaterials {
		if c.Quantity < 0 {
			return products.Product{}, nil, fmt.Errorf("%w: quantity must not be negative for %q", ErrValidation, c.RawMaterialName)
		}
	}

	product, err := s.products.GetByName(ctx, strings.TrimSpace(input.ProductName))
	if err != nil {
		return products.Product{}, nil, err
	}

	billed := make(map[string]int64, len(product.RawMaterials))
	for _, ref := range product.RawMaterials {
		billed[ref.Name] = ref.MaterialID
	}

	lines := make([]line, 0, len(input.RawMaterials))
	var invalid []string
	for _, c := range input.RawMaterials {
		name := strings.TrimSpace(c.RawMaterialName)
		materialID, ok := billed[name]
		if !ok {
			invalid = append(invalid, c.RawMaterialName)
			continue
		}
		lines = append(lines, line{materialID: materialID, name: name, quantity: c.Quantity})
	}
	if len(invalid) > 0 {
		return products.Product{}, nil, &InvalidMaterialsError{Names: invalid}
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].materialID < lines[j].materialID })
	return product, lines, nil
}

// debitMaterials locks every line's material, verifies stock covers the
// request and applies the debits. Shortfalls are collected so the caller sees
// all of them at once.
func debitMaterials(ctx context.Context, tx TxRepository, lines []line) error {
	var insufficient []InsufficientMaterial
	for _, l := range lines {
		balance, err := tx.MaterialForUpdate(ctx, l.materialID)
		if errors.Is(err, ErrMaterialGone) {
			return &InvalidMaterialsError{Names: []string{l.name}}
		}
		if err != nil {
			return err
		}
		if balance.Stock < l.quantity {
			insufficient = append(insufficient, InsufficientMaterial{
				RawMaterialName:  balance.Name,
				RequiredQuantity: l.quantity,
				AvailableStock:   balance.Stock,
			})
		}
	}
	if len(insufficient) > 0 {
		return &InsufficientMaterialsError{Items: insufficient}
	}
	for _, l := range lines {
		if err := tx.AdjustMaterialStock(ctx, l.materialID, -l.quantity); err != nil {
			return err
		}
	}
	return nil
}

// revert credits every consumed material back and debits the product by the
// produced units. Materials deleted since the production are skipped.
func revert(ctx context.Context, tx TxRepository, old Production) error {
	for _, c := range old.RawMaterials {
		if c.MaterialID == nil {
			continue
		}
		if _, err := tx.MaterialForUpdate(ctx, *c.MaterialID); err != nil {
			if errors.Is(err, ErrMaterialGone) {
				continue
			}
			return err
		}
		if err := tx.AdjustMaterialStock(ctx, *c.MaterialID, c.Quantity); err != nil {
			return err
		}
	}
	if _, err := tx.ProductForUpdate(ctx, old.ProductID); err != nil {
		return err
	}
	return tx.AdjustProductQuantity(ctx, old.ProductID, -old.UnitsProduced)
}

func toProduction(productID, units int64, lines []line) Production {
	consumed := make([]ConsumedMaterial, 0, len(lines))
	for i := range lines {
		consumed = append(consumed, ConsumedMaterial{
			MaterialID: &lines[i].materialID,
			Name:       &lines[i].name,
			Quantity:   lines[i].quantity,
		})
	}
	return Production{ProductID: productID, UnitsProduced: units, RawMaterials: consumed}
}
