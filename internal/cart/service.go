// Package cart manages dated carts and their line items. Availability is
// enforced by the store inside the same atomic unit that writes a line, so
// two carts can never jointly reserve more than the on-hand quantity.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/obs"
	"github.com/pasarhub/backend-pos/internal/pricing"
	"github.com/pasarhub/backend-pos/internal/store"
)

// ErrInvalidQuantity is returned when a line quantity is negative.
var ErrInvalidQuantity = errors.New("quantity must not be negative")

// ErrItemNotFound indicates the referenced catalog item does not exist.
var ErrItemNotFound = errors.New("item not found")

// LineView pairs a cart line with its live catalog item and the pricing
// computed from the item's current rates.
type LineView struct {
	CartItem domain.CartItem `json:"cartItem"`
	Item     domain.Item     `json:"item"`
	Pricing  pricing.Line    `json:"pricing"`
}

// Summary is a fully priced view of one cart. Pricing is live: it reflects
// the catalog at read time and is only frozen when the day is closed.
type Summary struct {
	Cart   domain.Cart    `json:"cart"`
	Lines  []LineView     `json:"lines"`
	Totals pricing.Totals `json:"totals"`
}

// Service encapsulates cart operations.
type Service struct {
	Store store.Store
}

// Create opens a new cart for the given user.
func (s *Service) Create(ctx context.Context, createdBy uuid.UUID) (domain.Cart, error) {
	return s.Store.CreateCart(ctx, createdBy)
}

// Get loads a cart by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Cart, error) {
	return s.Store.GetCart(ctx, id)
}

// AddItem appends a line to the cart. The item must exist, be stocked, not
// already be in the cart, and the requested quantity must fit within what
// remains after every other cart's reservations.
func (s *Service) AddItem(ctx context.Context, cartID uuid.UUID, itemID int64, qty decimal.Decimal) (domain.CartItem, error) {
	if qty.Sign() <= 0 {
		return domain.CartItem{}, fmt.Errorf("quantity must be positive: %w", ErrInvalidQuantity)
	}
	if _, err := s.Store.GetItem(ctx, itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CartItem{}, ErrItemNotFound
		}
		return domain.CartItem{}, err
	}
	ci, err := s.Store.AddCartItem(ctx, cartID, itemID, qty)
	s.countMutation("add", err)
	return ci, err
}

// UpdateItemQuantity rewrites a line's quantity. Zero deletes the line;
// deleting a line that is already gone is a no-op.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartID, cartItemID uuid.UUID, qty decimal.Decimal) (domain.CartItem, error) {
	if qty.IsNegative() {
		return domain.CartItem{}, ErrInvalidQuantity
	}
	if qty.IsZero() {
		err := s.Store.DeleteCartItem(ctx, cartID, cartItemID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.CartItem{}, err
		}
		s.countMutation("remove", nil)
		return domain.CartItem{}, nil
	}
	ci, err := s.Store.SetCartItemQuantity(ctx, cartID, cartItemID, qty)
	s.countMutation("update", err)
	return ci, err
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, cartItemID uuid.UUID) error {
	err := s.Store.DeleteCartItem(ctx, cartID, cartItemID)
	if err == nil {
		s.countMutation("remove", nil)
	}
	return err
}

// Clear removes every line from the cart and reports how many were removed.
func (s *Service) Clear(ctx context.Context, cartID uuid.UUID) (int, error) {
	return s.Store.ClearCartItems(ctx, cartID)
}

// Summary prices the cart against the current catalog. Line components and
// totals are rounded to two decimals for presentation; the underlying sums
// are carried at full precision so totals do not drift with line order.
func (s *Service) Summary(ctx context.Context, cartID uuid.UUID) (Summary, error) {
	c, err := s.Store.GetCart(ctx, cartID)
	if err != nil {
		return Summary{}, err
	}
	items, err := s.Store.ListCartItems(ctx, cartID)
	if err != nil {
		return Summary{}, err
	}
	lines := make([]LineView, 0, len(items))
	priced := make([]pricing.Line, 0, len(items))
	for _, ci := range items {
		item, err := s.Store.GetItem(ctx, ci.ItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Summary{}, ErrItemNotFound
			}
			return Summary{}, err
		}
		line := pricing.ComputeLine(ci.Quantity, item.UnitPrice, item.DiscountRate, item.TaxRate)
		priced = append(priced, line)
		lines = append(lines, LineView{
			CartItem: ci,
			Item:     item,
			Pricing:  line.Rounded(),
		})
	}
	return Summary{
		Cart:   c,
		Lines:  lines,
		Totals: pricing.Aggregate(priced).Rounded(),
	}, nil
}

func (s *Service) countMutation(op string, err error) {
	if obs.CartItemsTotal == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		result = "insufficient_stock"
		if obs.StockRejectionsTotal != nil {
			obs.StockRejectionsTotal.WithLabelValues("cart").Inc()
		}
	case err != nil:
		result = "error"
	}
	obs.CartItemsTotal.WithLabelValues(op, result).Inc()
}
