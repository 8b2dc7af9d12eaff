package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/queue"
	"github.com/pasarhub/backend-pos/internal/settlement"
	"github.com/pasarhub/backend-pos/internal/store/memory"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func closedAccount(t *testing.T, st *memory.Store) domain.DailyAccount {
	t.Helper()
	ctx := context.Background()
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	cat, err := st.CreateCategory(ctx, domain.Category{Name: "minuman"})
	require.NoError(t, err)
	item, err := st.CreateItem(ctx, domain.Item{
		CategoryID: cat.ID,
		Name:       "teh botol",
		UnitType:   "pcs",
		UnitPrice:  dec("10"),
	})
	require.NoError(t, err)
	_, err = st.CreateStockEntry(ctx, domain.StockEntry{ItemID: item.ID, Quantity: dec("10")})
	require.NoError(t, err)

	cart, err := st.CreateCart(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = st.AddCartItem(ctx, cart.ID, item.ID, dec("3"))
	require.NoError(t, err)

	svc := settlement.Service{Store: st, Log: zerolog.Nop()}
	result, err := svc.CloseDate(ctx, day, uuid.Nil)
	require.NoError(t, err)
	return result.Account
}

func TestHandleLogsSummary(t *testing.T) {
	st := memory.New()
	st.SetClock(func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) })
	account := closedAccount(t, st)

	payload, err := json.Marshal(settlement.ReportPayload{
		AccountID:   account.ID,
		AccountDate: account.AccountDate.Format("2006-01-02"),
	})
	require.NoError(t, err)

	g := Generator{Store: st, Log: zerolog.Nop()}
	err = g.Handle(context.Background(), queue.Task{
		Kind:           settlement.TaskKindDailyReport,
		Payload:        payload,
		IdempotencyKey: "2024-03-15",
	})
	require.NoError(t, err)
}

func TestHandleUnknownAccountRetries(t *testing.T) {
	st := memory.New()
	payload, err := json.Marshal(settlement.ReportPayload{AccountID: uuid.New()})
	require.NoError(t, err)

	g := Generator{Store: st, Log: zerolog.Nop()}
	err = g.Handle(context.Background(), queue.Task{Kind: settlement.TaskKindDailyReport, Payload: payload})
	require.Error(t, err)
}

func TestHandleMalformedPayloadDropped(t *testing.T) {
	g := Generator{Store: memory.New(), Log: zerolog.Nop()}
	err := g.Handle(context.Background(), queue.Task{Kind: settlement.TaskKindDailyReport, Payload: []byte("{")})
	require.NoError(t, err)
}

func TestBuildPicksTopItem(t *testing.T) {
	account := domain.DailyAccount{
		AccountDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		CartsCount:  2,
		ItemsCount:  2,
		Total:       dec("42"),
	}
	items := []domain.DailyAccountItem{
		{ItemName: "teh botol", Quantity: dec("3"), LineTotal: dec("33")},
		{ItemName: "roti", Quantity: dec("2"), LineTotal: dec("9")},
	}
	summary := Build(account, items)
	require.Equal(t, "2024-03-15", summary.AccountDate)
	require.Equal(t, "teh botol", summary.TopItem)
	require.True(t, summary.TopItemQty.Equal(dec("3")))
	require.True(t, summary.Total.Equal(dec("42")))
}
