package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
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

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	return NewService(st, nil), st
}

func validItem(categoryID int64) ItemInput {
	return ItemInput{
		CategoryID: categoryID,
		Name:       "es teh",
		SKU:        "TEH-001",
		UnitPrice:  dec("10"),
		UnitType:   "pcs",
	}
}

func TestCreateCategoryUniqueName(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, CategoryInput{Name: "drinks"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "drinks"})
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestCreateCategoryValidation(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateCategory(context.Background(), CategoryInput{})
	require.Error(t, err)
}

func TestCreateItemValidatesRates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, CategoryInput{Name: "drinks"})
	require.NoError(t, err)

	in := validItem(cat.ID)
	in.DiscountRate = dec("101")
	_, err = svc.CreateItem(ctx, in)
	require.Error(t, err)

	in = validItem(cat.ID)
	in.TaxRate = dec("-1")
	_, err = svc.CreateItem(ctx, in)
	require.Error(t, err)

	in = validItem(cat.ID)
	in.UnitPrice = dec("-5")
	_, err = svc.CreateItem(ctx, in)
	require.Error(t, err)
}

func TestCreateItemRequiresCategory(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateItem(context.Background(), validItem(99))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteCategoryWithItems(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, CategoryInput{Name: "drinks"})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, validItem(cat.ID))
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteCategory(ctx, cat.ID), store.ErrConflict)
}

func TestDeleteItemWhileStocked(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, CategoryInput{Name: "drinks"})
	require.NoError(t, err)
	item, err := svc.CreateItem(ctx, validItem(cat.ID))
	require.NoError(t, err)
	_, err = st.CreateStockEntry(ctx, domain.StockEntry{ItemID: item.ID, Quantity: dec("5")})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteItem(ctx, item.ID), store.ErrConflict)

	require.NoError(t, st.DeleteStockEntry(ctx, item.ID))
	require.NoError(t, svc.DeleteItem(ctx, item.ID))
}

func TestGetItemServesFromCacheUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := memory.New()
	svc := NewService(st, NewCache(client, time.Minute))
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, CategoryInput{Name: "drinks"})
	require.NoError(t, err)
	item, err := svc.CreateItem(ctx, validItem(cat.ID))
	require.NoError(t, err)

	// Prime the cache, then change the store behind its back.
	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, "es teh", got.Name)

	item.Name = "es teh manis"
	_, err = st.UpdateItem(ctx, item)
	require.NoError(t, err)

	got, err = svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, "es teh", got.Name, "stale read expected while cached")

	// A service-level update invalidates the key.
	in := validItem(cat.ID)
	in.Name = "es jeruk"
	_, err = svc.UpdateItem(ctx, item.ID, in)
	require.NoError(t, err)

	got, err = svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, "es jeruk", got.Name)
}
