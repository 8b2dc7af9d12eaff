package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/store"
)

const stockColumns = `id, item_id, quantity::text, created_by, created_at, updated_at`

func scanStockEntry(row pgx.Row) (domain.StockEntry, error) {
	var (
		e   domain.StockEntry
		qty string
	)
	if err := row.Scan(&e.ID, &e.ItemID, &qty, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return domain.StockEntry{}, err
	}
	e.Quantity = mustDecimal(qty)
	return e, nil
}

func (s *Store) CreateStockEntry(ctx context.Context, e domain.StockEntry) (domain.StockEntry, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO stock_entries (item_id, quantity, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		e.ItemID, e.Quantity.String(), e.CreatedBy)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.StockEntry{}, store.ErrAlreadyStocked
		}
		return domain.StockEntry{}, err
	}
	return e, nil
}

func (s *Store) GetStockEntry(ctx context.Context, itemID int64) (domain.StockEntry, error) {
	e, err := scanStockEntry(s.pool.QueryRow(ctx,
		`SELECT `+stockColumns+` FROM stock_entries WHERE item_id = $1`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StockEntry{}, store.ErrNotStocked
	}
	return e, err
}

func (s *Store) ListStockEntries(ctx context.Context) ([]domain.StockEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stockColumns+` FROM stock_entries ORDER BY item_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.StockEntry
	for rows.Next() {
		e, err := scanStockEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SetStockQuantity(ctx context.Context, itemID int64, qty decimal.Decimal) (domain.StockEntry, error) {
	e, err := scanStockEntry(s.pool.QueryRow(ctx, `
		UPDATE stock_entries
		   SET quantity = $2, updated_at = now()
		 WHERE item_id = $1
		RETURNING `+stockColumns, itemID, qty.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StockEntry{}, store.ErrNotStocked
	}
	return e, err
}

func (s *Store) DeleteStockEntry(ctx context.Context, itemID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM stock_entries WHERE item_id = $1`, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotStocked
	}
	return nil
}
