// Package stock manages one on-hand quantity row per catalog item and
// answers availability questions against it. Availability subtracts every
// live cart reservation, so the advisory check here agrees with the binding
// check the store performs when a cart line is written.
package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/obs"
	"github.com/pasarhub/backend-pos/internal/store"
)

// ErrInvalidQuantity is returned when a quantity is negative.
var ErrInvalidQuantity = errors.New("quantity must not be negative")

// Level reports an item's stock position: the raw entry, the quantity
// reserved by open cart lines, and what remains sellable.
type Level struct {
	Entry     domain.StockEntry `json:"entry"`
	Reserved  decimal.Decimal   `json:"reserved"`
	Available decimal.Decimal   `json:"available"`
}

// Service encapsulates stock operations.
type Service struct {
	Store store.Store
}

// CreateEntry registers the stock row for an item. Each item has at most one
// entry; a second registration returns store.ErrAlreadyStocked.
func (s *Service) CreateEntry(ctx context.Context, itemID int64, qty decimal.Decimal, createdBy uuid.UUID) (domain.StockEntry, error) {
	if qty.IsNegative() {
		return domain.StockEntry{}, ErrInvalidQuantity
	}
	if _, err := s.Store.GetItem(ctx, itemID); err != nil {
		return domain.StockEntry{}, err
	}
	return s.Store.CreateStockEntry(ctx, domain.StockEntry{
		ItemID:    itemID,
		Quantity:  qty,
		CreatedBy: createdBy,
	})
}

// Get returns the stock level for one item.
func (s *Service) Get(ctx context.Context, itemID int64) (Level, error) {
	entry, err := s.Store.GetStockEntry(ctx, itemID)
	if err != nil {
		return Level{}, err
	}
	return s.level(ctx, entry)
}

// List returns the stock level for every stocked item.
func (s *Service) List(ctx context.Context) ([]Level, error) {
	entries, err := s.Store.ListStockEntries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Level, 0, len(entries))
	for _, entry := range entries {
		lvl, err := s.level(ctx, entry)
		if err != nil {
			return nil, err
		}
		out = append(out, lvl)
	}
	return out, nil
}

// SetQuantity replaces the on-hand quantity. Lowering it below the reserved
// amount is allowed; existing cart lines stand and further additions fail
// until reservations drain.
func (s *Service) SetQuantity(ctx context.Context, itemID int64, qty decimal.Decimal) (domain.StockEntry, error) {
	if qty.IsNegative() {
		return domain.StockEntry{}, ErrInvalidQuantity
	}
	return s.Store.SetStockQuantity(ctx, itemID, qty)
}

// RemoveEntry deletes the stock row, taking the item off sale.
func (s *Service) RemoveEntry(ctx context.Context, itemID int64) error {
	return s.Store.DeleteStockEntry(ctx, itemID)
}

// CheckAvailability reports whether qty more units could be reserved right
// now. The answer is advisory: the store re-checks under lock when a cart
// line is actually written.
func (s *Service) CheckAvailability(ctx context.Context, itemID int64, qty decimal.Decimal) (Level, error) {
	if qty.IsNegative() {
		return Level{}, ErrInvalidQuantity
	}
	lvl, err := s.Get(ctx, itemID)
	if err != nil {
		return Level{}, err
	}
	if qty.GreaterThan(lvl.Available) {
		if obs.StockRejectionsTotal != nil {
			obs.StockRejectionsTotal.WithLabelValues("check").Inc()
		}
		return lvl, store.ErrInsufficientStock
	}
	return lvl, nil
}

func (s *Service) level(ctx context.Context, entry domain.StockEntry) (Level, error) {
	reserved, err := s.Store.SumItemQuantity(ctx, entry.ItemID)
	if err != nil {
		return Level{}, err
	}
	return Level{
		Entry:     entry,
		Reserved:  reserved,
		Available: entry.Quantity.Sub(reserved),
	}, nil
}
