// Package memory implements store.Store with in-process maps guarded by a
// single mutex. The mutex spans every check-then-write sequence, so the
// implementation honors the same atomicity contract as the postgres store.
// It backs tests and local development without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.Mutex

	nextCategoryID    int64
	nextItemID        int64
	nextStockID       int64
	nextAccountItemID int64

	users        map[uuid.UUID]domain.User
	categories   map[int64]domain.Category
	items        map[int64]domain.Item
	stock        map[int64]domain.StockEntry // keyed by item id
	carts        map[uuid.UUID]domain.Cart
	cartItems    map[uuid.UUID]domain.CartItem
	accounts     map[uuid.UUID]domain.DailyAccount
	accountItems map[uuid.UUID][]domain.DailyAccountItem

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        map[uuid.UUID]domain.User{},
		categories:   map[int64]domain.Category{},
		items:        map[int64]domain.Item{},
		stock:        map[int64]domain.StockEntry{},
		carts:        map[uuid.UUID]domain.Cart{},
		cartItems:    map[uuid.UUID]domain.CartItem{},
		accounts:     map[uuid.UUID]domain.DailyAccount{},
		accountItems: map[uuid.UUID][]domain.DailyAccountItem{},
		now:          time.Now,
	}
}

// SetClock overrides the store clock. Tests use it to pin cart creation
// timestamps to a known trading day.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return domain.User{}, store.ErrConflict
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func (s *Store) CreateCategory(_ context.Context, c domain.Category) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Name == c.Name {
			return domain.Category{}, store.ErrConflict
		}
	}
	s.nextCategoryID++
	c.ID = s.nextCategoryID
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c domain.Category) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok {
		return domain.Category{}, store.ErrNotFound
	}
	for _, other := range s.categories {
		if other.ID != c.ID && other.Name == c.Name {
			return domain.Category{}, store.ErrConflict
		}
	}
	existing.Name = c.Name
	existing.Description = c.Description
	existing.UpdatedAt = s.now()
	s.categories[c.ID] = existing
	return existing, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	for _, it := range s.items {
		if it.CategoryID == id {
			return store.ErrConflict
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CreateItem(_ context.Context, it domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[it.CategoryID]; !ok {
		return domain.Item{}, store.ErrNotFound
	}
	if it.SKU != "" {
		for _, existing := range s.items {
			if existing.SKU != "" && existing.SKU == it.SKU {
				return domain.Item{}, store.ErrConflict
			}
		}
	}
	s.nextItemID++
	it.ID = s.nextItemID
	it.CreatedAt = s.now()
	it.UpdatedAt = it.CreatedAt
	s.items[it.ID] = it
	return it, nil
}

func (s *Store) GetItem(_ context.Context, id int64) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return domain.Item{}, store.ErrNotFound
	}
	return it, nil
}

func (s *Store) GetItemBySKU(_ context.Context, sku string) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.SKU != "" && it.SKU == sku {
			return it, nil
		}
	}
	return domain.Item{}, store.ErrNotFound
}

func (s *Store) ListItems(_ context.Context, categoryID *int64) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Item, 0, len(s.items))
	for _, it := range s.items {
		if categoryID != nil && it.CategoryID != *categoryID {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SearchItems(_ context.Context, query string) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(strings.TrimSpace(query))
	var out []domain.Item
	for _, it := range s.items {
		if strings.Contains(strings.ToLower(it.Name), needle) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateItem(_ context.Context, it domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[it.ID]
	if !ok {
		return domain.Item{}, store.ErrNotFound
	}
	if _, ok := s.categories[it.CategoryID]; !ok {
		return domain.Item{}, store.ErrNotFound
	}
	if it.SKU != "" {
		for _, other := range s.items {
			if other.ID != it.ID && other.SKU != "" && other.SKU == it.SKU {
				return domain.Item{}, store.ErrConflict
			}
		}
	}
	it.CreatedAt = existing.CreatedAt
	it.UpdatedAt = s.now()
	s.items[it.ID] = it
	return it, nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// ---------------------------------------------------------------------------
// Stock
// ---------------------------------------------------------------------------

func (s *Store) CreateStockEntry(_ context.Context, e domain.StockEntry) (domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stock[e.ItemID]; ok {
		return domain.StockEntry{}, store.ErrAlreadyStocked
	}
	s.nextStockID++
	e.ID = s.nextStockID
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	s.stock[e.ItemID] = e
	return e, nil
}

func (s *Store) GetStockEntry(_ context.Context, itemID int64) (domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.stock[itemID]
	if !ok {
		return domain.StockEntry{}, store.ErrNotStocked
	}
	return e, nil
}

func (s *Store) ListStockEntries(_ context.Context) ([]domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StockEntry, 0, len(s.stock))
	for _, e := range s.stock {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (s *Store) SetStockQuantity(_ context.Context, itemID int64, qty decimal.Decimal) (domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.stock[itemID]
	if !ok {
		return domain.StockEntry{}, store.ErrNotStocked
	}
	e.Quantity = qty
	e.UpdatedAt = s.now()
	s.stock[itemID] = e
	return e, nil
}

func (s *Store) DeleteStockEntry(_ context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stock[itemID]; !ok {
		return store.ErrNotStocked
	}
	delete(s.stock, itemID)
	return nil
}

// ---------------------------------------------------------------------------
// Carts
// ---------------------------------------------------------------------------

func (s *Store) CreateCart(_ context.Context, createdBy uuid.UUID) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.Cart{
		ID:        uuid.New(),
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}
	c.UpdatedAt = c.CreatedAt
	s.carts[c.ID] = c
	return c, nil
}

func (s *Store) GetCart(_ context.Context, id uuid.UUID) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[id]
	if !ok {
		return domain.Cart{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCartItems(_ context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CartItem
	for _, ci := range s.cartItems {
		if ci.CartID == cartID {
			out = append(out, ci)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetCartItem(_ context.Context, cartID, cartItemID uuid.UUID) (domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.cartItems[cartItemID]
	if !ok || ci.CartID != cartID {
		return domain.CartItem{}, store.ErrNotFound
	}
	return ci, nil
}

// reservedLocked sums every cart line referencing the item, optionally
// excluding one line. Callers hold the mutex.
func (s *Store) reservedLocked(itemID int64, exclude uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for id, ci := range s.cartItems {
		if ci.ItemID != itemID || id == exclude {
			continue
		}
		total = total.Add(ci.Quantity)
	}
	return total
}

func (s *Store) AddCartItem(_ context.Context, cartID uuid.UUID, itemID int64, qty decimal.Decimal) (domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[cartID]; !ok {
		return domain.CartItem{}, store.ErrNotFound
	}
	entry, ok := s.stock[itemID]
	if !ok {
		return domain.CartItem{}, store.ErrNotStocked
	}
	for _, ci := range s.cartItems {
		if ci.CartID == cartID && ci.ItemID == itemID {
			return domain.CartItem{}, store.ErrDuplicateCartItem
		}
	}
	if s.reservedLocked(itemID, uuid.Nil).Add(qty).GreaterThan(entry.Quantity) {
		return domain.CartItem{}, store.ErrInsufficientStock
	}
	ci := domain.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ItemID:    itemID,
		Quantity:  qty,
		CreatedAt: s.now(),
	}
	ci.UpdatedAt = ci.CreatedAt
	s.cartItems[ci.ID] = ci
	s.touchCartLocked(cartID)
	return ci, nil
}

func (s *Store) SetCartItemQuantity(_ context.Context, cartID, cartItemID uuid.UUID, qty decimal.Decimal) (domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.cartItems[cartItemID]
	if !ok || ci.CartID != cartID {
		return domain.CartItem{}, store.ErrNotFound
	}
	entry, ok := s.stock[ci.ItemID]
	if !ok {
		return domain.CartItem{}, store.ErrNotStocked
	}
	if s.reservedLocked(ci.ItemID, cartItemID).Add(qty).GreaterThan(entry.Quantity) {
		return domain.CartItem{}, store.ErrInsufficientStock
	}
	ci.Quantity = qty
	ci.UpdatedAt = s.now()
	s.cartItems[cartItemID] = ci
	s.touchCartLocked(cartID)
	return ci, nil
}

func (s *Store) DeleteCartItem(_ context.Context, cartID, cartItemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, ok := s.cartItems[cartItemID]
	if !ok || ci.CartID != cartID {
		return store.ErrNotFound
	}
	delete(s.cartItems, cartItemID)
	s.touchCartLocked(cartID)
	return nil
}

func (s *Store) ClearCartItems(_ context.Context, cartID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[cartID]; !ok {
		return 0, store.ErrNotFound
	}
	cleared := 0
	for id, ci := range s.cartItems {
		if ci.CartID == cartID {
			delete(s.cartItems, id)
			cleared++
		}
	}
	s.touchCartLocked(cartID)
	return cleared, nil
}

func (s *Store) SumItemQuantity(_ context.Context, itemID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservedLocked(itemID, uuid.Nil), nil
}

func (s *Store) touchCartLocked(cartID uuid.UUID) {
	if c, ok := s.carts[cartID]; ok {
		c.UpdatedAt = s.now()
		s.carts[cartID] = c
	}
}

// ---------------------------------------------------------------------------
// Settlement
// ---------------------------------------------------------------------------

func sameDay(ts, day time.Time) bool {
	y1, m1, d1 := ts.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (s *Store) CloseDay(_ context.Context, day time.Time, window store.DayWindow, compute store.CloseComputation) (domain.DailyAccount, []domain.DailyAccountItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts {
		if sameDay(acc.AccountDate, day) {
			return domain.DailyAccount{}, nil, store.ErrAlreadyClosed
		}
	}

	cartsCount := 0
	dayCarts := map[uuid.UUID]bool{}
	for id, c := range s.carts {
		if window.Contains(c.CreatedAt) {
			cartsCount++
			dayCarts[id] = true
		}
	}
	if cartsCount == 0 {
		return domain.DailyAccount{}, nil, store.ErrNothingToClose
	}

	sumByItem := map[int64]decimal.Decimal{}
	for _, ci := range s.cartItems {
		if !dayCarts[ci.CartID] {
			continue
		}
		sumByItem[ci.ItemID] = sumByItem[ci.ItemID].Add(ci.Quantity)
	}
	itemIDs := make([]int64, 0, len(sumByItem))
	for id := range sumByItem {
		itemIDs = append(itemIDs, id)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })

	sums := make([]store.ItemQuantity, 0, len(itemIDs))
	for _, id := range itemIDs {
		it, ok := s.items[id]
		if !ok {
			continue
		}
		sums = append(sums, store.ItemQuantity{Item: it, Quantity: sumByItem[id]})
	}

	account, accountItems, err := compute(cartsCount, sums)
	if err != nil {
		return domain.DailyAccount{}, nil, err
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = s.now()
	for i := range accountItems {
		s.nextAccountItemID++
		accountItems[i].ID = s.nextAccountItemID
		accountItems[i].AccountID = account.ID
	}
	s.accounts[account.ID] = account
	s.accountItems[account.ID] = accountItems
	return account, accountItems, nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (domain.DailyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return domain.DailyAccount{}, store.ErrNotFound
	}
	return acc, nil
}

func (s *Store) GetAccountByDate(_ context.Context, day time.Time) (domain.DailyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if sameDay(acc.AccountDate, day) {
			return acc, nil
		}
	}
	return domain.DailyAccount{}, store.ErrNotFound
}

func (s *Store) ListAccounts(_ context.Context, limit int) ([]domain.DailyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DailyAccount, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountDate.After(out[j].AccountDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListAccountsRange(_ context.Context, from, to time.Time) ([]domain.DailyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DailyAccount
	for _, acc := range s.accounts {
		d := acc.AccountDate.UTC()
		if d.Before(from.UTC()) || d.After(to.UTC()) {
			continue
		}
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountDate.Before(out[j].AccountDate) })
	return out, nil
}

func (s *Store) ListAccountItems(_ context.Context, accountID uuid.UUID) ([]domain.DailyAccountItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return nil, store.ErrNotFound
	}
	items := s.accountItems[accountID]
	out := make([]domain.DailyAccountItem, len(items))
	copy(out, items)
	return out, nil
}

func (s *Store) TopAccountItems(_ context.Context, from, to time.Time, limit int) ([]store.ItemSales, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	type agg struct {
		name  string
		qty   decimal.Decimal
		total decimal.Decimal
	}
	byItem := map[int64]*agg{}
	for id, acc := range s.accounts {
		d := acc.AccountDate.UTC()
		if d.Before(from.UTC()) || d.After(to.UTC()) {
			continue
		}
		for _, it := range s.accountItems[id] {
			a, ok := byItem[it.ItemID]
			if !ok {
				a = &agg{name: it.ItemName, qty: decimal.Zero, total: decimal.Zero}
				byItem[it.ItemID] = a
			}
			a.qty = a.qty.Add(it.Quantity)
			a.total = a.total.Add(it.LineTotal)
		}
	}
	out := make([]store.ItemSales, 0, len(byItem))
	for id, a := range byItem {
		out = append(out, store.ItemSales{ItemID: id, ItemName: a.name, Quantity: a.qty, LineTotal: a.total})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LineTotal.Equal(out[j].LineTotal) {
			return out[i].LineTotal.GreaterThan(out[j].LineTotal)
		}
		return out[i].ItemID < out[j].ItemID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
