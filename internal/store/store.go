// Package store defines the persistence boundary for the engine. Every
// operation that the spec requires to be atomic is a single store method, so
// an implementation can hold a row lock (postgres) or a mutex (memory)
// across the availability check and the write.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasarhub/backend-pos/internal/domain"
)

var (
	// ErrNotFound reports a missing row of any kind.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a catalog uniqueness violation (name, sku).
	ErrConflict = errors.New("conflict")
	// ErrAlreadyStocked reports a second stock entry for the same item.
	ErrAlreadyStocked = errors.New("item already stocked")
	// ErrNotStocked reports a stock operation against an unstocked item.
	ErrNotStocked = errors.New("item not stocked")
	// ErrDuplicateCartItem reports a second line for the same item in a cart.
	ErrDuplicateCartItem = errors.New("item already in cart")
	// ErrInsufficientStock reports a requested quantity above on-hand stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrAlreadyClosed reports a close attempt for an already closed date.
	ErrAlreadyClosed = errors.New("day already closed")
	// ErrNothingToClose reports a close attempt with no carts for the date.
	ErrNothingToClose = errors.New("no carts for date")
)

// ItemQuantity pairs a catalog item with its summed quantity across the
// carts of one trading day.
type ItemQuantity struct {
	Item     domain.Item
	Quantity decimal.Decimal
}

// DayWindow bounds the instants whose carts belong to one trading day.
// Start is inclusive, End exclusive. The caller derives both from the
// configured timezone; stores must not assume UTC day boundaries.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls inside the window.
func (w DayWindow) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// ItemSales aggregates one item's frozen sales figures across closed
// accounts.
type ItemSales struct {
	ItemID    int64           `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Quantity  decimal.Decimal `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CloseComputation turns the day's aggregated activity into the account
// snapshot to persist. It runs inside the closing transaction; the store
// fills in generated identifiers after insert.
type CloseComputation func(cartsCount int, sums []ItemQuantity) (domain.DailyAccount, []domain.DailyAccountItem, error)

// UserStore persists the identity collaborator's records.
type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (domain.User, error)
}

// CatalogStore persists categories and items.
type CatalogStore interface {
	CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	GetCategory(ctx context.Context, id int64) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateItem(ctx context.Context, it domain.Item) (domain.Item, error)
	GetItem(ctx context.Context, id int64) (domain.Item, error)
	GetItemBySKU(ctx context.Context, sku string) (domain.Item, error)
	ListItems(ctx context.Context, categoryID *int64) ([]domain.Item, error)
	SearchItems(ctx context.Context, query string) ([]domain.Item, error)
	UpdateItem(ctx context.Context, it domain.Item) (domain.Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

// StockStore persists one quantity row per item.
type StockStore interface {
	CreateStockEntry(ctx context.Context, e domain.StockEntry) (domain.StockEntry, error)
	GetStockEntry(ctx context.Context, itemID int64) (domain.StockEntry, error)
	ListStockEntries(ctx context.Context) ([]domain.StockEntry, error)
	SetStockQuantity(ctx context.Context, itemID int64, qty decimal.Decimal) (domain.StockEntry, error)
	DeleteStockEntry(ctx context.Context, itemID int64) error
}

// CartStore persists carts and their lines. AddCartItem and
// SetCartItemQuantity re-check availability against the stock row inside
// the same atomic unit that writes the line; callers must not rely on a
// separate advisory check alone.
type CartStore interface {
	CreateCart(ctx context.Context, createdBy uuid.UUID) (domain.Cart, error)
	GetCart(ctx context.Context, id uuid.UUID) (domain.Cart, error)
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error)
	GetCartItem(ctx context.Context, cartID, cartItemID uuid.UUID) (domain.CartItem, error)
	AddCartItem(ctx context.Context, cartID uuid.UUID, itemID int64, qty decimal.Decimal) (domain.CartItem, error)
	SetCartItemQuantity(ctx context.Context, cartID, cartItemID uuid.UUID, qty decimal.Decimal) (domain.CartItem, error)
	DeleteCartItem(ctx context.Context, cartID, cartItemID uuid.UUID) error
	ClearCartItems(ctx context.Context, cartID uuid.UUID) (int, error)
	// SumItemQuantity returns the total quantity reserved for an item across
	// every cart line that references it.
	SumItemQuantity(ctx context.Context, itemID int64) (decimal.Decimal, error)
}

// SettlementStore persists daily accounts. CloseDay runs the whole close
// (existence check, aggregation, computation, insert) in one atomic unit;
// concurrent closers for the same date must observe ErrAlreadyClosed. The
// day argument is the UTC-midnight date label; window selects the carts.
type SettlementStore interface {
	CloseDay(ctx context.Context, day time.Time, window DayWindow, compute CloseComputation) (domain.DailyAccount, []domain.DailyAccountItem, error)
	GetAccount(ctx context.Context, id uuid.UUID) (domain.DailyAccount, error)
	GetAccountByDate(ctx context.Context, day time.Time) (domain.DailyAccount, error)
	ListAccounts(ctx context.Context, limit int) ([]domain.DailyAccount, error)
	ListAccountsRange(ctx context.Context, from, to time.Time) ([]domain.DailyAccount, error)
	ListAccountItems(ctx context.Context, accountID uuid.UUID) ([]domain.DailyAccountItem, error)
	// TopAccountItems sums frozen item snapshots across accounts in the
	// inclusive date range, ordered by summed line total descending.
	TopAccountItems(ctx context.Context, from, to time.Time, limit int) ([]ItemSales, error)
}

// Store is the full persistence surface used by the service layer.
type Store interface {
	UserStore
	CatalogStore
	StockStore
	CartStore
	SettlementStore
}
