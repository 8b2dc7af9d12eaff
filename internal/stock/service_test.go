package stock

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

func seedItem(t *testing.T, st *memory.Store) domain.Item {
	t.Helper()
	ctx := context.Background()
	cat, err := st.CreateCategory(ctx, domain.Category{Name: "drinks"})
	require.NoError(t, err)
	item, err := st.CreateItem(ctx, domain.Item{
		CategoryID: cat.ID,
		Name:       "es teh",
		UnitPrice:  decimal.NewFromInt(10),
		UnitType:   "pcs",
	})
	require.NoError(t, err)
	return item
}

func TestCreateEntryRequiresItem(t *testing.T) {
	st := memory.New()
	svc := &Service{Store: st}

	_, err := svc.CreateEntry(context.Background(), 42, decimal.NewFromInt(5), uuid.Nil)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateEntryOncePerItem(t *testing.T) {
	st := memory.New()
	svc := &Service{Store: st}
	item := seedItem(t, st)
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, item.ID, decimal.NewFromInt(5), uuid.Nil)
	require.NoError(t, err)
	require.True(t, entry.Quantity.Equal(decimal.NewFromInt(5)))

	_, err = svc.CreateEntry(ctx, item.ID, decimal.NewFromInt(9), uuid.Nil)
	require.ErrorIs(t, err, store.ErrAlreadyStocked)
}

func TestCreateEntryRejectsNegativeQuantity(t *testing.T) {
	st := memory.New()
	svc := &Service{Store: st}
	item := seedItem(t, st)

	_, err := svc.CreateEntry(context.Background(), item.ID, decimal.NewFromInt(-1), uuid.Nil)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAvailabilitySubtractsReservations(t *testing.T) {
	st := memory.New()
	svc := &Service{Store: st}
	item := seedItem(t, st)
	ctx := context.Background()

	_, err := svc.CreateEntry(ctx, item.ID, decimal.NewFromInt(5), uuid.Nil)
	require.NoError(t, err)

	cart, err := st.CreateCart(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = st.AddCartItem(ctx, cart.ID, item.ID, decimal.NewFromInt(3))
	require.NoError(t, err)

	lvl, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.True(t, lvl.Reserved.Equal(decimal.NewFromInt(3)))
	require.True(t, lvl.Available.Equal(decimal.NewFromInt(2)))

	_, err = svc.CheckAvailability(ctx, item.ID, decimal.NewFromInt(2))
	require.NoError(t, err)

	_, err = svc.CheckAvailability(ctx, item.ID, decimal.NewFromInt(3))
	require.ErrorIs(t, err, store.ErrInsufficientStock)
}

func TestSetQuantityUnknownItem(t *testing.T) {
	st := memory.New()
	svc := &Service{Store: st}
	item := seedItem(t, st)

	_, err := svc.SetQuantity(context.Background(), item.ID, decimal.NewFromInt(7))
	require.ErrorIs(t, err, store.ErrNotStocked)
}

func TestRemoveEntryTakesItemOffSale(t *testing.T) {
	st := memory.New()
	svc := &Service{Store: st}
	item := seedItem(t, st)
	ctx := context.Background()

	_, err := svc.CreateEntry(ctx, item.ID, decimal.NewFromInt(5), uuid.Nil)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveEntry(ctx, item.ID))

	_, err = svc.Get(ctx, item.ID)
	require.ErrorIs(t, err, store.ErrNotStocked)
}
