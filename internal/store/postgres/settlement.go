package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/store"
)

const accountColumns = `
	id, account_date, subtotal::text, discount_total::text, tax_total::text,
	total::text, carts_count, items_count, is_closed, closed_at, closed_by,
	created_at`

func scanAccount(row pgx.Row) (domain.DailyAccount, error) {
	var (
		acc                            domain.DailyAccount
		subtotal, discount, tax, total string
	)
	err := row.Scan(&acc.ID, &acc.AccountDate, &subtotal, &discount, &tax,
		&total, &acc.CartsCount, &acc.ItemsCount, &acc.IsClosed, &acc.ClosedAt,
		&acc.ClosedBy, &acc.CreatedAt)
	if err != nil {
		return domain.DailyAccount{}, err
	}
	acc.Subtotal = mustDecimal(subtotal)
	acc.DiscountTotal = mustDecimal(discount)
	acc.TaxTotal = mustDecimal(tax)
	acc.Total = mustDecimal(total)
	return acc, nil
}

// CloseDay aggregates the carts inside window and persists the closed account
// and its item snapshots in one transaction. The account_date column carries
// the UTC date label while the window carries the instants of the configured
// trading timezone. The unique index on account_date is the authority against
// concurrent closers: whichever transaction commits second surfaces
// ErrAlreadyClosed.
func (s *Store) CloseDay(ctx context.Context, day time.Time, window store.DayWindow, compute store.CloseComputation) (domain.DailyAccount, []domain.DailyAccountItem, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.DailyAccount{}, nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var closed bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM daily_accounts WHERE account_date = $1)`,
		dayStart).Scan(&closed); err != nil {
		return domain.DailyAccount{}, nil, err
	}
	if closed {
		return domain.DailyAccount{}, nil, store.ErrAlreadyClosed
	}

	var cartsCount int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM carts WHERE created_at >= $1 AND created_at < $2`,
		window.Start, window.End).Scan(&cartsCount); err != nil {
		return domain.DailyAccount{}, nil, err
	}
	if cartsCount == 0 {
		return domain.DailyAccount{}, nil, store.ErrNothingToClose
	}

	rows, err := tx.Query(ctx, `
		SELECT i.id, i.category_id, i.name, COALESCE(i.description, ''),
		       COALESCE(i.sku, ''), COALESCE(i.barcode, ''),
		       i.unit_price::text, i.unit_type, i.discount_rate::text,
		       i.tax_rate::text, i.created_at, i.updated_at,
		       SUM(ci.quantity)::text
		  FROM cart_items ci
		  JOIN carts c ON c.id = ci.cart_id
		  JOIN items i ON i.id = ci.item_id
		 WHERE c.created_at >= $1 AND c.created_at < $2
		 GROUP BY i.id
		 ORDER BY i.id`, window.Start, window.End)
	if err != nil {
		return domain.DailyAccount{}, nil, err
	}
	var sums []store.ItemQuantity
	for rows.Next() {
		var (
			it                            domain.Item
			price, discount, taxRate, qty string
		)
		if err := rows.Scan(&it.ID, &it.CategoryID, &it.Name, &it.Description,
			&it.SKU, &it.Barcode, &price, &it.UnitType, &discount, &taxRate,
			&it.CreatedAt, &it.UpdatedAt, &qty); err != nil {
			rows.Close()
			return domain.DailyAccount{}, nil, err
		}
		it.UnitPrice = mustDecimal(price)
		it.DiscountRate = mustDecimal(discount)
		it.TaxRate = mustDecimal(taxRate)
		sums = append(sums, store.ItemQuantity{Item: it, Quantity: mustDecimal(qty)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.DailyAccount{}, nil, err
	}

	account, accountItems, err := compute(cartsCount, sums)
	if err != nil {
		return domain.DailyAccount{}, nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO daily_accounts (account_date, subtotal, discount_total,
		                            tax_total, total, carts_count, items_count,
		                            is_closed, closed_at, closed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9)
		RETURNING id, created_at`,
		dayStart, account.Subtotal.String(), account.DiscountTotal.String(),
		account.TaxTotal.String(), account.Total.String(), account.CartsCount,
		account.ItemsCount, account.ClosedAt, account.ClosedBy)
	if err := row.Scan(&account.ID, &account.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.DailyAccount{}, nil, store.ErrAlreadyClosed
		}
		return domain.DailyAccount{}, nil, err
	}
	account.AccountDate = dayStart
	account.IsClosed = true

	for i := range accountItems {
		accountItems[i].AccountID = account.ID
		it := accountItems[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO daily_account_items (account_id, item_id, item_name,
			                                 sku, quantity, unit_price,
			                                 discount_rate, tax_rate,
			                                 line_subtotal, line_discount,
			                                 line_tax, line_total)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			it.AccountID, it.ItemID, it.ItemName, it.SKU, it.Quantity.String(),
			it.UnitPrice.String(), it.DiscountRate.String(), it.TaxRate.String(),
			it.LineSubtotal.String(), it.LineDiscount.String(),
			it.LineTax.String(), it.LineTotal.String()).Scan(&accountItems[i].ID)
		if err != nil {
			return domain.DailyAccount{}, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.DailyAccount{}, nil, store.ErrAlreadyClosed
		}
		return domain.DailyAccount{}, nil, err
	}
	return account, accountItems, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (domain.DailyAccount, error) {
	acc, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM daily_accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyAccount{}, store.ErrNotFound
	}
	return acc, err
}

func (s *Store) GetAccountByDate(ctx context.Context, day time.Time) (domain.DailyAccount, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	acc, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM daily_accounts WHERE account_date = $1`, dayStart))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyAccount{}, store.ErrNotFound
	}
	return acc, err
}

func (s *Store) ListAccounts(ctx context.Context, limit int) ([]domain.DailyAccount, error) {
	if limit <= 0 {
		limit = 30
	}
	return s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM daily_accounts ORDER BY account_date DESC LIMIT $1`, limit)
}

func (s *Store) ListAccountsRange(ctx context.Context, from, to time.Time) ([]domain.DailyAccount, error) {
	return s.queryAccounts(ctx, `
		SELECT `+accountColumns+`
		  FROM daily_accounts
		 WHERE account_date >= $1 AND account_date <= $2
		 ORDER BY account_date`, from, to)
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...any) ([]domain.DailyAccount, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.DailyAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (s *Store) ListAccountItems(ctx context.Context, accountID uuid.UUID) ([]domain.DailyAccountItem, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM daily_accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, item_id, item_name, COALESCE(sku, ''),
		       quantity::text, unit_price::text, discount_rate::text,
		       tax_rate::text, line_subtotal::text, line_discount::text,
		       line_tax::text, line_total::text
		  FROM daily_account_items
		 WHERE account_id = $1
		 ORDER BY item_id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.DailyAccountItem
	for rows.Next() {
		var (
			it                                           domain.DailyAccountItem
			qty, price, discountRate, taxRate            string
			lineSubtotal, lineDiscount, lineTax, lineTot string
		)
		if err := rows.Scan(&it.ID, &it.AccountID, &it.ItemID, &it.ItemName,
			&it.SKU, &qty, &price, &discountRate, &taxRate, &lineSubtotal,
			&lineDiscount, &lineTax, &lineTot); err != nil {
			return nil, err
		}
		it.Quantity = mustDecimal(qty)
		it.UnitPrice = mustDecimal(price)
		it.DiscountRate = mustDecimal(discountRate)
		it.TaxRate = mustDecimal(taxRate)
		it.LineSubtotal = mustDecimal(lineSubtotal)
		it.LineDiscount = mustDecimal(lineDiscount)
		it.LineTax = mustDecimal(lineTax)
		it.LineTotal = mustDecimal(lineTot)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) TopAccountItems(ctx context.Context, from, to time.Time, limit int) ([]store.ItemSales, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT dai.item_id, dai.item_name,
		       SUM(dai.quantity)::text, SUM(dai.line_total)::text
		  FROM daily_account_items dai
		  JOIN daily_accounts da ON da.id = dai.account_id
		 WHERE da.account_date >= $1 AND da.account_date <= $2
		 GROUP BY dai.item_id, dai.item_name
		 ORDER BY SUM(dai.line_total) DESC, dai.item_id
		 LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.ItemSales
	for rows.Next() {
		var (
			sale       store.ItemSales
			qty, total string
		)
		if err := rows.Scan(&sale.ItemID, &sale.ItemName, &qty, &total); err != nil {
			return nil, err
		}
		sale.Quantity = mustDecimal(qty)
		sale.LineTotal = mustDecimal(total)
		out = append(out, sale)
	}
	return out, rows.Err()
}
