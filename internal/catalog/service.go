// Package catalog manages categories and sellable items. Reads of single
// items go through a Redis cache; every write invalidates the affected keys.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/pasarhub/backend-pos/internal/common"
	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/store"
)

var oneHundred = decimal.NewFromInt(100)

// CategoryInput is the payload for creating or updating a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description" validate:"max=500"`
}

// ItemInput is the payload for creating or updating an item. Rates are
// percentages and must stay within [0, 100]; the pricing layer relies on
// that being enforced here.
type ItemInput struct {
	CategoryID   int64           `json:"categoryId" validate:"required,gt=0"`
	Name         string          `json:"name" validate:"required,min=1,max=160"`
	Description  string          `json:"description" validate:"max=1000"`
	SKU          string          `json:"sku" validate:"max=64"`
	Barcode      string          `json:"barcode" validate:"max=64"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	UnitType     string          `json:"unitType" validate:"required,oneof=pcs kg liter meter pack"`
	DiscountRate decimal.Decimal `json:"discountRate"`
	TaxRate      decimal.Decimal `json:"taxRate"`
}

// Service encapsulates catalog operations.
type Service struct {
	Store    store.Store
	Cache    *Cache
	Validate *validator.Validate
}

// NewService constructs a Service with a ready validator.
func NewService(st store.Store, cache *Cache) *Service {
	return &Service{
		Store:    st,
		Cache:    cache,
		Validate: validator.New(),
	}
}

func (s *Service) validate(v any) error {
	if s.Validate == nil {
		return nil
	}
	if err := s.Validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0].Field()
			return &common.AppError{
				Code:       "BAD_REQUEST",
				Message:    fmt.Sprintf("invalid value for %s", field),
				HTTPStatus: http.StatusBadRequest,
				Err:        err,
				Details:    map[string]any{"field": field},
			}
		}
		return err
	}
	return nil
}

func validateItemNumbers(in ItemInput) error {
	if in.UnitPrice.IsNegative() {
		return badRequest("unitPrice", "unitPrice must not be negative")
	}
	if in.DiscountRate.IsNegative() || in.DiscountRate.GreaterThan(oneHundred) {
		return badRequest("discountRate", "discountRate must be between 0 and 100")
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(oneHundred) {
		return badRequest("taxRate", "taxRate must be between 0 and 100")
	}
	return nil
}

// CreateCategory registers a category. Names are unique.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (domain.Category, error) {
	if err := s.validate(in); err != nil {
		return domain.Category{}, err
	}
	return s.Store.CreateCategory(ctx, domain.Category{
		Name:        in.Name,
		Description: in.Description,
	})
}

// GetCategory loads a category by id.
func (s *Service) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	return s.Store.GetCategory(ctx, id)
}

// ListCategories returns every category.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.Store.ListCategories(ctx)
}

// UpdateCategory rewrites a category's name and description.
func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (domain.Category, error) {
	if err := s.validate(in); err != nil {
		return domain.Category{}, err
	}
	return s.Store.UpdateCategory(ctx, domain.Category{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
	})
}

// DeleteCategory removes an empty category. Categories still holding items
// return store.ErrConflict.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.Store.DeleteCategory(ctx, id)
}

// CreateItem registers a sellable item under an existing category.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (domain.Item, error) {
	if err := s.validate(in); err != nil {
		return domain.Item{}, err
	}
	if err := validateItemNumbers(in); err != nil {
		return domain.Item{}, err
	}
	return s.Store.CreateItem(ctx, itemFromInput(in))
}

// GetItem loads an item, serving from cache when possible.
func (s *Service) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	key := itemCacheKey(id)
	var cached domain.Item
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	item, err := s.Store.GetItem(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	_ = s.Cache.SetJSON(ctx, key, item)
	return item, nil
}

// GetItemBySKU loads an item by its stock keeping unit.
func (s *Service) GetItemBySKU(ctx context.Context, sku string) (domain.Item, error) {
	return s.Store.GetItemBySKU(ctx, sku)
}

// ListItems returns items, optionally filtered to one category.
func (s *Service) ListItems(ctx context.Context, categoryID *int64) ([]domain.Item, error) {
	return s.Store.ListItems(ctx, categoryID)
}

// SearchItems returns items whose name contains the query, case insensitive.
func (s *Service) SearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	return s.Store.SearchItems(ctx, query)
}

// UpdateItem rewrites an item and invalidates its cache entry.
func (s *Service) UpdateItem(ctx context.Context, id int64, in ItemInput) (domain.Item, error) {
	if err := s.validate(in); err != nil {
		return domain.Item{}, err
	}
	if err := validateItemNumbers(in); err != nil {
		return domain.Item{}, err
	}
	item := itemFromInput(in)
	item.ID = id
	updated, err := s.Store.UpdateItem(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}
	s.Cache.Invalidate(ctx, itemCacheKey(id))
	return updated, nil
}

// DeleteItem removes an item. Items that still have a stock entry cannot be
// deleted; take them off sale first.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	if _, err := s.Store.GetStockEntry(ctx, id); err == nil {
		return store.ErrConflict
	} else if !errors.Is(err, store.ErrNotStocked) {
		return err
	}
	if err := s.Store.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, itemCacheKey(id))
	return nil
}

func itemFromInput(in ItemInput) domain.Item {
	return domain.Item{
		CategoryID:   in.CategoryID,
		Name:         in.Name,
		Description:  in.Description,
		SKU:          in.SKU,
		Barcode:      in.Barcode,
		UnitPrice:    in.UnitPrice,
		UnitType:     in.UnitType,
		DiscountRate: in.DiscountRate,
		TaxRate:      in.TaxRate,
	}
}

func itemCacheKey(id int64) string {
	return "catalog:item:" + strconv.FormatInt(id, 10)
}

func badRequest(field, message string) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}
