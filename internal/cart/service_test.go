package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/store"
	"github.com/pasarhub/backend-pos/internal/store/memory"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	store *memory.Store
	svc   *Service
}

func newFixture() fixture {
	st := memory.New()
	return fixture{store: st, svc: &Service{Store: st}}
}

func (f fixture) seedItem(t *testing.T, name, price, discountRate, taxRate, stock string) domain.Item {
	t.Helper()
	ctx := context.Background()
	cat, err := f.store.CreateCategory(ctx, domain.Category{Name: name + "-cat"})
	require.NoError(t, err)
	item, err := f.store.CreateItem(ctx, domain.Item{
		CategoryID:   cat.ID,
		Name:         name,
		UnitPrice:    dec(price),
		UnitType:     "pcs",
		DiscountRate: dec(discountRate),
		TaxRate:      dec(taxRate),
	})
	require.NoError(t, err)
	_, err = f.store.CreateStockEntry(ctx, domain.StockEntry{ItemID: item.ID, Quantity: dec(stock)})
	require.NoError(t, err)
	return item
}

func TestSummaryPricesLinesAndTotals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	teh := f.seedItem(t, "es teh", "10", "0", "10", "100")
	roti := f.seedItem(t, "roti", "5", "10", "0", "100")

	c, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, c.ID, teh.ID, dec("3"))
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, c.ID, roti.ID, dec("2"))
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 2)
	require.True(t, summary.Totals.Subtotal.Equal(dec("40")), "subtotal %s", summary.Totals.Subtotal)
	require.True(t, summary.Totals.Discount.Equal(dec("1")), "discount %s", summary.Totals.Discount)
	require.True(t, summary.Totals.Tax.Equal(dec("3")), "tax %s", summary.Totals.Tax)
	require.True(t, summary.Totals.Total.Equal(dec("42")), "total %s", summary.Totals.Total)
}

func TestAddItemRejectsOversellAcrossCarts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.seedItem(t, "kopi", "12", "0", "0", "5")

	first, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, first.ID, item.ID, dec("5"))
	require.NoError(t, err)

	second, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, second.ID, item.ID, dec("1"))
	require.ErrorIs(t, err, store.ErrInsufficientStock)
}

func TestAddItemUnknownItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, c.ID, 999, dec("1"))
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestAddItemUnstockedItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat, err := f.store.CreateCategory(ctx, domain.Category{Name: "snacks"})
	require.NoError(t, err)
	item, err := f.store.CreateItem(ctx, domain.Item{
		CategoryID: cat.ID,
		Name:       "keripik",
		UnitPrice:  dec("3"),
		UnitType:   "pcs",
	})
	require.NoError(t, err)

	c, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, c.ID, item.ID, dec("1"))
	require.ErrorIs(t, err, store.ErrNotStocked)
}

func TestAddItemRejectsDuplicateLine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.seedItem(t, "teh", "10", "0", "0", "10")

	c, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, c.ID, item.ID, dec("1"))
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, c.ID, item.ID, dec("1"))
	require.ErrorIs(t, err, store.ErrDuplicateCartItem)
}

func TestUpdateItemQuantityExcludesOwnLine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.seedItem(t, "susu", "8", "0", "0", "5")

	c, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)
	ci, err := f.svc.AddItem(ctx, c.ID, item.ID, dec("5"))
	require.NoError(t, err)

	updated, err := f.svc.UpdateItemQuantity(ctx, c.ID, ci.ID, dec("5"))
	require.NoError(t, err)
	require.True(t, updated.Quantity.Equal(dec("5")))

	_, err = f.svc.UpdateItemQuantity(ctx, c.ID, ci.ID, dec("6"))
	require.ErrorIs(t, err, store.ErrInsufficientStock)
}

func TestUpdateItemQuantityZeroDeletes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.seedItem(t, "gula", "4", "0", "0", "10")

	c, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)
	ci, err := f.svc.AddItem(ctx, c.ID, item.ID, dec("2"))
	require.NoError(t, err)

	_, err = f.svc.UpdateItemQuantity(ctx, c.ID, ci.ID, decimal.Zero)
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, summary.Lines)

	// Deleting the already deleted line is a no-op.
	_, err = f.svc.UpdateItemQuantity(ctx, c.ID, ci.ID, decimal.Zero)
	require.NoError(t, err)
}

func TestUpdateItemQuantityRejectsNegative(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.seedItem(t, "kecap", "6", "0", "0", "10")

	c, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)
	ci, err := f.svc.AddItem(ctx, c.ID, item.ID, dec("1"))
	require.NoError(t, err)

	_, err = f.svc.UpdateItemQuantity(ctx, c.ID, ci.ID, dec("-1"))
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestClearFreesReservations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.seedItem(t, "air", "2", "0", "0", "5")

	first, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, first.ID, item.ID, dec("5"))
	require.NoError(t, err)

	cleared, err := f.svc.Clear(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, 1, cleared)

	second, err := f.svc.Create(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, second.ID, item.ID, dec("5"))
	require.NoError(t, err)
}
