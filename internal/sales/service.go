package sales

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fabrica-erp/fabrica-erp/internal/products"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

// ProductResolver resolves available products by name.
type ProductResolver interface {
	GetByName(ctx context.Context, name string) (products.Product, error)
}

// Service holds the sales workflow. Stock checks and debits run on locked
// product rows so concurrent sales cannot oversell.
type Service struct {
	repo     RepositoryPort
	products ProductResolver
	audit    *shared.AuditLogger
}

// NewService constructs the Service.
func NewService(repo RepositoryPort, products ProductResolver, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, products: products, audit: audit}
}

// SaleInput describes a sale to record or the new state of an existing one.
type SaleInput struct {
	ProductName  string
	CustomerName string
	UnitsSold    int64
}

// List returns every sale, newest first.
func (s *Service) List(ctx context.Context) ([]Sale, error) {
	return s.repo.List(ctx)
}

// ListPage returns one page of sales plus pagination metadata.
func (s *Service) ListPage(ctx context.Context, page int) ([]Sale, shared.Pagination, error) {
	p := shared.NewPagination(page, 0)
	items, total, err := s.repo.ListPage(ctx, shared.PageSize, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, total), nil
}

// Get fetches a sale by id.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create debits the product's stock by the sold units and persists the sale.
// Zero-unit sales are allowed and leave stock untouched.
func (s *Service) Create(ctx context.Context, input SaleInput, actorID int64) (Sale, error) {
	if err := validateSale(input); err != nil {
		return Sale{}, err
	}
	product, err := s.products.GetByName(ctx, strings.TrimSpace(input.ProductName))
	if err != nil {
		return Sale{}, err
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		balance, err := tx.ProductForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		if balance.Quantity < input.UnitsSold {
			return ErrInsufficientStock
		}
		if err := tx.AdjustProductQuantity(ctx, product.ID, -input.UnitsSold); err != nil {
			return err
		}
		id, err = tx.InsertSale(ctx, Sale{
			ProductID:    product.ID,
			CustomerName: strings.TrimSpace(input.CustomerName),
			UnitsSold:    input.UnitsSold,
			TotalSale:    float64(input.UnitsSold) * balance.PricePerUnit,
		})
		return err
	})
	if err != nil {
		return Sale{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "sale.created",
		Entity:   "sale",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"productId": product.ID, "unitsSold": input.UnitsSold},
	})
	return s.repo.Get(ctx, id)
}

// Update moves the product's stock by the delta between old and new units and
// overwrites the sale. Switching the sale to another product credits the old
// product back in full and debits the new one.
func (s *Service) Update(ctx context.Context, id int64, input SaleInput, actorID int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	if err := validateSale(input); err != nil {
		return Sale{}, err
	}
	product, err := s.products.GetByName(ctx, strings.TrimSpace(input.ProductName))
	if err != nil {
		return Sale{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if old.ProductID != product.ID {
			if _, err := tx.ProductForUpdate(ctx, old.ProductID); err != nil {
				return err
			}
			if err := tx.AdjustProductQuantity(ctx, old.ProductID, old.UnitsSold); err != nil {
				return err
			}
			balance, err := tx.ProductForUpdate(ctx, product.ID)
			if err != nil {
				return err
			}
			if balance.Quantity < input.UnitsSold {
				return ErrInsufficientStock
			}
			if err := tx.AdjustProductQuantity(ctx, product.ID, -input.UnitsSold); err != nil {
				return err
			}
			return tx.UpdateSale(ctx, id, Sale{
				ProductID:    product.ID,
				CustomerName: strings.TrimSpace(input.CustomerName),
				UnitsSold:    input.UnitsSold,
				TotalSale:    float64(input.UnitsSold) * balance.PricePerUnit,
			})
		}

		balance, err := tx.ProductForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		delta := input.UnitsSold - old.UnitsSold
		if balance.Quantity < delta {
			return ErrInsufficientStock
		}
		if err := tx.AdjustProductQuantity(ctx, product.ID, -delta); err != nil {
			return err
		}
		return tx.UpdateSale(ctx, id, Sale{
			ProductID:    product.ID,
			CustomerName: strings.TrimSpace(input.CustomerName),
			UnitsSold:    input.UnitsSold,
			TotalSale:    float64(input.UnitsSold) * balance.PricePerUnit,
		})
	})
	if err != nil {
		return Sale{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "sale.updated",
		Entity:   "sale",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"productId": product.ID, "unitsSold": input.UnitsSold},
	})
	return s.repo.Get(ctx, id)
}

// Delete credits the sold units back to the product and removes the sale.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id", ErrValidation)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ProductForUpdate(ctx, old.ProductID); err != nil {
			return err
		}
		if err := tx.AdjustProductQuantity(ctx, old.ProductID, old.UnitsSold); err != nil {
			return err
		}
		return tx.DeleteSale(ctx, id)
	})
	if err != nil {
		return err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "sale.deleted",
		Entity:   "sale",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

func validateSale(input SaleInput) error {
	if strings.TrimSpace(input.ProductName) == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if input.UnitsSold < 0 {
		return fmt.Errorf("%w: units sold must not be negative", ErrValidation)
	}
	return nil
}
