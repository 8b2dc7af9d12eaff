package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/store"
	"github.com/pasarhub/backend-pos/internal/store/memory"
)

var tradingDay = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

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
	st.SetClock(func() time.Time { return tradingDay.Add(10 * time.Hour) })
	return fixture{
		store: st,
		svc: &Service{
			Store: st,
			Now:   func() time.Time { return tradingDay.Add(20 * time.Hour) },
		},
	}
}

func (f fixture) seedItem(t *testing.T, name, price, discountRate, taxRate string) domain.Item {
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
	_, err = f.store.CreateStockEntry(ctx, domain.StockEntry{ItemID: item.ID, Quantity: dec("1000")})
	require.NoError(t, err)
	return item
}

func (f fixture) addCart(t *testing.T, lines map[int64]string) domain.Cart {
	t.Helper()
	ctx := context.Background()
	c, err := f.store.CreateCart(ctx, uuid.Nil)
	require.NoError(t, err)
	for itemID, qty := range lines {
		_, err := f.store.AddCartItem(ctx, c.ID, itemID, dec(qty))
		require.NoError(t, err)
	}
	return c
}

func TestCloseDateAggregatesAcrossCarts(t *testing.T) {
	f := newFixture()
	teh := f.seedItem(t, "es teh", "10", "0", "10")
	roti := f.seedItem(t, "roti", "5", "10", "0")

	f.addCart(t, map[int64]string{teh.ID: "2", roti.ID: "2"})
	f.addCart(t, map[int64]string{teh.ID: "1"})

	closer := uuid.New()
	res, err := f.svc.CloseDate(context.Background(), tradingDay, closer)
	require.NoError(t, err)

	acc := res.Account
	require.True(t, acc.IsClosed)
	require.Equal(t, 2, acc.CartsCount)
	require.Equal(t, 2, acc.ItemsCount)
	require.Equal(t, closer, acc.ClosedBy)
	require.True(t, acc.AccountDate.Equal(tradingDay))
	require.True(t, acc.Subtotal.Equal(dec("40")), "subtotal %s", acc.Subtotal)
	require.True(t, acc.DiscountTotal.Equal(dec("1")), "discount %s", acc.DiscountTotal)
	require.True(t, acc.TaxTotal.Equal(dec("3")), "tax %s", acc.TaxTotal)
	require.True(t, acc.Total.Equal(dec("42")), "total %s", acc.Total)

	// Quantities are summed per item before pricing, so each item appears
	// once regardless of how many carts sold it.
	require.Len(t, res.Items, 2)
	require.Equal(t, teh.ID, res.Items[0].ItemID)
	require.True(t, res.Items[0].Quantity.Equal(dec("3")))
	require.Equal(t, roti.ID, res.Items[1].ItemID)
	require.True(t, res.Items[1].Quantity.Equal(dec("2")))
}

func TestCloseDateOncePerDay(t *testing.T) {
	f := newFixture()
	item := f.seedItem(t, "kopi", "12", "0", "0")
	f.addCart(t, map[int64]string{item.ID: "1"})
	ctx := context.Background()

	_, err := f.svc.CloseDate(ctx, tradingDay, uuid.Nil)
	require.NoError(t, err)

	_, err = f.svc.CloseDate(ctx, tradingDay, uuid.Nil)
	require.ErrorIs(t, err, store.ErrAlreadyClosed)
}

func TestCloseDateWithoutCarts(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CloseDate(context.Background(), tradingDay, uuid.Nil)
	require.ErrorIs(t, err, store.ErrNothingToClose)
}

func TestClosedAccountFreezesPricing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.seedItem(t, "susu", "8", "0", "0")
	f.addCart(t, map[int64]string{item.ID: "2"})

	res, err := f.svc.CloseDate(ctx, tradingDay, uuid.Nil)
	require.NoError(t, err)

	item.UnitPrice = dec("99")
	_, err = f.store.UpdateItem(ctx, item)
	require.NoError(t, err)

	reread, err := f.svc.GetByDate(ctx, tradingDay)
	require.NoError(t, err)
	require.Equal(t, res.Account.ID, reread.Account.ID)
	require.True(t, reread.Account.Total.Equal(dec("16")), "total %s", reread.Account.Total)
	require.Len(t, reread.Items, 1)
	require.True(t, reread.Items[0].UnitPrice.Equal(dec("8")))
}

func TestDayTruncatesToConfiguredTimezone(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	svc := &Service{Location: jakarta}

	// 23:30 UTC on the 14th is already the 15th in Jakarta.
	ts := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC)
	require.True(t, svc.Day(ts).Equal(tradingDay))
}

func TestCloseDateSelectsCartsByConfiguredTimezone(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	st := memory.New()
	// 23:30 UTC on March 14th is 06:30 on the 15th in Jakarta, so the cart
	// created now belongs to the trading day labelled the 15th.
	createdAt := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return createdAt })
	svc := &Service{
		Store:    st,
		Location: jakarta,
		Now:      func() time.Time { return createdAt },
	}
	f := fixture{store: st, svc: svc}
	item := f.seedItem(t, "bakso", "10", "0", "0")
	f.addCart(t, map[int64]string{item.ID: "2"})
	ctx := context.Background()

	require.True(t, svc.Day(createdAt).Equal(tradingDay))

	// The UTC day of created_at holds no carts for this timezone.
	_, err := svc.CloseDate(ctx, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), uuid.Nil)
	require.ErrorIs(t, err, store.ErrNothingToClose)

	res, err := svc.CloseDate(ctx, tradingDay, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Account.CartsCount)
	require.True(t, res.Account.AccountDate.Equal(tradingDay))
	require.True(t, res.Account.Total.Equal(dec("20")), "total %s", res.Account.Total)
}

func TestListRange(t *testing.T) {
	f := newFixture()
	item := f.seedItem(t, "teh", "10", "0", "0")
	f.addCart(t, map[int64]string{item.ID: "1"})
	ctx := context.Background()

	_, err := f.svc.CloseDate(ctx, tradingDay, uuid.Nil)
	require.NoError(t, err)

	accounts, err := f.svc.ListRange(ctx, tradingDay.AddDate(0, 0, -1), tradingDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	accounts, err = f.svc.ListRange(ctx, tradingDay.AddDate(0, 0, 1), tradingDay.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Empty(t, accounts)
}

func TestTopItemsRanksByFrozenLineTotal(t *testing.T) {
	f := newFixture()
	teh := f.seedItem(t, "es teh", "10", "0", "0")
	roti := f.seedItem(t, "roti", "5", "0", "0")

	// roti sells more units but teh earns more.
	f.addCart(t, map[int64]string{teh.ID: "5", roti.ID: "4"})
	f.addCart(t, map[int64]string{roti.ID: "2"})
	ctx := context.Background()

	_, err := f.svc.CloseDate(ctx, tradingDay, uuid.Nil)
	require.NoError(t, err)

	sales, err := f.svc.TopItems(ctx, tradingDay, tradingDay, 0)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	require.Equal(t, teh.ID, sales[0].ItemID)
	require.True(t, sales[0].Quantity.Equal(dec("5")))
	require.True(t, sales[0].LineTotal.Equal(dec("50")), "line total %s", sales[0].LineTotal)
	require.Equal(t, roti.ID, sales[1].ItemID)
	require.True(t, sales[1].Quantity.Equal(dec("6")))
	require.True(t, sales[1].LineTotal.Equal(dec("30")), "line total %s", sales[1].LineTotal)

	top, err := f.svc.TopItems(ctx, tradingDay, tradingDay, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, teh.ID, top[0].ItemID)

	empty, err := f.svc.TopItems(ctx, tradingDay.AddDate(0, 0, 1), tradingDay.AddDate(0, 0, 2), 0)
	require.NoError(t, err)
	require.Empty(t, empty)
}
