// Package report turns a closed daily account into an end-of-day summary.
// It runs on the worker, consuming the tasks the settlement service enqueues
// after each successful close.
package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/obs"
	"github.com/pasarhub/backend-pos/internal/queue"
	"github.com/pasarhub/backend-pos/internal/settlement"
	"github.com/pasarhub/backend-pos/internal/store"
)

// Summary is the digest emitted for one closed day.
type Summary struct {
	AccountDate string          `json:"account_date"`
	CartsCount  int             `json:"carts_count"`
	ItemsCount  int             `json:"items_count"`
	Total       decimal.Decimal `json:"total"`
	TopItem     string          `json:"top_item,omitempty"`
	TopItemQty  decimal.Decimal `json:"top_item_qty"`
}

// Generator builds and logs daily summaries.
type Generator struct {
	Store store.Store
	Log   zerolog.Logger
}

// Handle processes one daily report task. Errors are returned so the queue
// retries; a malformed payload is dropped instead since retrying cannot fix it.
func (g *Generator) Handle(ctx context.Context, task queue.Task) error {
	var payload settlement.ReportPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		g.Log.Error().Err(err).Str("key", task.IdempotencyKey).Msg("drop malformed report task")
		g.count("malformed")
		return nil
	}
	account, err := g.Store.GetAccount(ctx, payload.AccountID)
	if err != nil {
		g.count("error")
		return fmt.Errorf("load account %s: %w", payload.AccountID, err)
	}
	items, err := g.Store.ListAccountItems(ctx, account.ID)
	if err != nil {
		g.count("error")
		return fmt.Errorf("load account items: %w", err)
	}

	summary := Build(account, items)
	g.Log.Info().
		Str("account_date", summary.AccountDate).
		Int("carts", summary.CartsCount).
		Int("items", summary.ItemsCount).
		Str("total", summary.Total.String()).
		Str("top_item", summary.TopItem).
		Msg("daily report")
	g.count("ok")
	return nil
}

// Build computes the digest for a closed account. The top item is the one
// with the highest line total.
func Build(account domain.DailyAccount, items []domain.DailyAccountItem) Summary {
	summary := Summary{
		AccountDate: account.AccountDate.Format("2006-01-02"),
		CartsCount:  account.CartsCount,
		ItemsCount:  account.ItemsCount,
		Total:       account.Total,
		TopItemQty:  decimal.Zero,
	}
	best := decimal.Zero
	for _, it := range items {
		if it.LineTotal.GreaterThan(best) {
			best = it.LineTotal
			summary.TopItem = it.ItemName
			summary.TopItemQty = it.Quantity
		}
	}
	return summary
}

func (g *Generator) count(result string) {
	if obs.ReportJobsTotal != nil {
		obs.ReportJobsTotal.WithLabelValues(result).Inc()
	}
}
