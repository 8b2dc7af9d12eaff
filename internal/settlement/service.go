// Package settlement folds one trading day's carts into an immutable daily
// account. A day closes exactly once: a redis lock serializes closers within
// and across processes, and the store's uniqueness guarantee on the account
// date backstops the lock.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/lock"
	"github.com/pasarhub/backend-pos/internal/obs"
	"github.com/pasarhub/backend-pos/internal/pricing"
	"github.com/pasarhub/backend-pos/internal/queue"
	"github.com/pasarhub/backend-pos/internal/store"
)

// TaskKindDailyReport is the queue kind for post-close report jobs.
const TaskKindDailyReport = "daily-report"

const closeLockTTL = 30 * time.Second

// ReportPayload is the body of a daily report task.
type ReportPayload struct {
	AccountID   uuid.UUID `json:"account_id"`
	AccountDate string    `json:"account_date"`
}

// Result is a closed account together with its item snapshots.
type Result struct {
	Account domain.DailyAccount       `json:"account"`
	Items   []domain.DailyAccountItem `json:"items"`
}

// Service encapsulates day-close and account reads.
type Service struct {
	Store    store.Store
	Locker   *lock.Locker
	Enqueuer *queue.Enqueuer
	Location *time.Location
	Log      zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) location() *time.Location {
	if s != nil && s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// Day truncates a timestamp to its trading day in the configured timezone.
// The returned value is a UTC-midnight date label; dayWindow recovers the
// instants the label spans.
func (s *Service) Day(ts time.Time) time.Time {
	y, m, d := ts.In(s.location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dayWindow maps a trading day label back to the half-open interval of
// instants it covers in the configured timezone, so cart selection agrees
// with Day regardless of how far the timezone sits from UTC.
func (s *Service) dayWindow(day time.Time) store.DayWindow {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.location())
	return store.DayWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// CloseToday closes the current trading day.
func (s *Service) CloseToday(ctx context.Context, closedBy uuid.UUID) (Result, error) {
	return s.CloseDate(ctx, s.Day(s.now()), closedBy)
}

// CloseDate closes the given trading day. Re-closing a closed day returns
// store.ErrAlreadyClosed; a day with no carts returns store.ErrNothingToClose.
func (s *Service) CloseDate(ctx context.Context, day time.Time, closedBy uuid.UUID) (Result, error) {
	day = s.Day(day)
	started := s.now()

	var res Result
	closeFn := func(ctx context.Context) error {
		account, items, err := s.Store.CloseDay(ctx, day, s.dayWindow(day), s.compute(day, closedBy))
		if err != nil {
			return err
		}
		res = Result{Account: account, Items: items}
		return nil
	}

	var err error
	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, "settlement:close:"+day.Format("2006-01-02"), closeLockTTL, closeFn)
	} else {
		err = closeFn(ctx)
	}

	s.observeClose(started, err)
	if err != nil {
		return Result{}, err
	}

	s.enqueueReport(ctx, res.Account)
	return res, nil
}

// compute turns the day's aggregated quantities into the account snapshot.
// It runs inside the store's closing transaction, so the pricing it freezes
// is consistent with the carts it summarizes.
func (s *Service) compute(day time.Time, closedBy uuid.UUID) store.CloseComputation {
	return func(cartsCount int, sums []store.ItemQuantity) (domain.DailyAccount, []domain.DailyAccountItem, error) {
		lines := make([]pricing.Line, 0, len(sums))
		items := make([]domain.DailyAccountItem, 0, len(sums))
		for _, sum := range sums {
			line := pricing.ComputeLine(sum.Quantity, sum.Item.UnitPrice, sum.Item.DiscountRate, sum.Item.TaxRate)
			lines = append(lines, line)
			rounded := line.Rounded()
			items = append(items, domain.DailyAccountItem{
				ItemID:       sum.Item.ID,
				ItemName:     sum.Item.Name,
				SKU:          sum.Item.SKU,
				Quantity:     sum.Quantity,
				UnitPrice:    sum.Item.UnitPrice,
				DiscountRate: sum.Item.DiscountRate,
				TaxRate:      sum.Item.TaxRate,
				LineSubtotal: rounded.Subtotal,
				LineDiscount: rounded.Discount,
				LineTax:      rounded.Tax,
				LineTotal:    rounded.Total,
			})
		}
		totals := pricing.Aggregate(lines).Rounded()
		return domain.DailyAccount{
			AccountDate:   day,
			Subtotal:      totals.Subtotal,
			DiscountTotal: totals.Discount,
			TaxTotal:      totals.Tax,
			Total:         totals.Total,
			CartsCount:    cartsCount,
			ItemsCount:    len(sums),
			IsClosed:      true,
			ClosedAt:      s.now(),
			ClosedBy:      closedBy,
		}, items, nil
	}
}

func (s *Service) enqueueReport(ctx context.Context, account domain.DailyAccount) {
	if s.Enqueuer == nil {
		return
	}
	date := account.AccountDate.Format("2006-01-02")
	payload, err := json.Marshal(ReportPayload{AccountID: account.ID, AccountDate: date})
	if err != nil {
		return
	}
	if err := s.Enqueuer.Enqueue(ctx, queue.Task{
		Kind:           TaskKindDailyReport,
		Payload:        payload,
		IdempotencyKey: date,
	}); err != nil {
		s.Log.Warn().Err(err).Str("account_date", date).Msg("enqueue daily report")
	}
}

func (s *Service) observeClose(started time.Time, err error) {
	if obs.SettlementCloseTotal != nil {
		result := "ok"
		switch {
		case errors.Is(err, store.ErrAlreadyClosed):
			result = "already_closed"
		case errors.Is(err, store.ErrNothingToClose):
			result = "empty"
		case err != nil:
			result = "error"
		}
		obs.SettlementCloseTotal.WithLabelValues(result).Inc()
	}
	if obs.SettlementCloseDuration != nil {
		obs.SettlementCloseDuration.Observe(float64(s.now().Sub(started).Milliseconds()))
	}
}

// GetByID loads an account and its item snapshots.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Result, error) {
	account, err := s.Store.GetAccount(ctx, id)
	if err != nil {
		return Result{}, err
	}
	items, err := s.Store.ListAccountItems(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return Result{Account: account, Items: items}, nil
}

// GetByDate loads the account closed for a trading day.
func (s *Service) GetByDate(ctx context.Context, day time.Time) (Result, error) {
	account, err := s.Store.GetAccountByDate(ctx, s.Day(day))
	if err != nil {
		return Result{}, err
	}
	items, err := s.Store.ListAccountItems(ctx, account.ID)
	if err != nil {
		return Result{}, err
	}
	return Result{Account: account, Items: items}, nil
}

// ListRecent returns the most recently closed accounts, newest first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]domain.DailyAccount, error) {
	return s.Store.ListAccounts(ctx, limit)
}

// ListRange returns closed accounts between two dates inclusive.
func (s *Service) ListRange(ctx context.Context, from, to time.Time) ([]domain.DailyAccount, error) {
	return s.Store.ListAccountsRange(ctx, s.Day(from), s.Day(to))
}

// TopItems ranks items by their frozen line totals across the closed
// accounts between two dates inclusive.
func (s *Service) TopItems(ctx context.Context, from, to time.Time, limit int) ([]store.ItemSales, error) {
	return s.Store.TopAccountItems(ctx, s.Day(from), s.Day(to), limit)
}
