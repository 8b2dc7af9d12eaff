package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/store"
)

const cartItemColumns = `id, cart_id, item_id, quantity::text, created_at, updated_at`

func scanCartItem(row pgx.Row) (domain.CartItem, error) {
	var (
		ci  domain.CartItem
		qty string
	)
	if err := row.Scan(&ci.ID, &ci.CartID, &ci.ItemID, &qty, &ci.CreatedAt, &ci.UpdatedAt); err != nil {
		return domain.CartItem{}, err
	}
	ci.Quantity = mustDecimal(qty)
	return ci, nil
}

func (s *Store) CreateCart(ctx context.Context, createdBy uuid.UUID) (domain.Cart, error) {
	c := domain.Cart{CreatedBy: createdBy}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO carts (created_by)
		VALUES ($1)
		RETURNING id, created_at, updated_at`, createdBy)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Cart{}, err
	}
	return c, nil
}

func (s *Store) GetCart(ctx context.Context, id uuid.UUID) (domain.Cart, error) {
	var c domain.Cart
	row := s.pool.QueryRow(ctx,
		`SELECT id, created_by, created_at, updated_at FROM carts WHERE id = $1`, id)
	if err := row.Scan(&c.ID, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Cart{}, store.ErrNotFound
		}
		return domain.Cart{}, err
	}
	return c, nil
}

func (s *Store) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CartItem
	for rows.Next() {
		ci, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ci)
	}
	return out, rows.Err()
}

func (s *Store) GetCartItem(ctx context.Context, cartID, cartItemID uuid.UUID) (domain.CartItem, error) {
	ci, err := scanCartItem(s.pool.QueryRow(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE id = $1 AND cart_id = $2`,
		cartItemID, cartID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CartItem{}, store.ErrNotFound
	}
	return ci, err
}

// lockAvailability locks the item's stock row and returns the on-hand
// quantity plus the quantity already reserved by cart lines, excluding one
// line when the caller is rewriting it. The row lock serializes every
// concurrent cart mutation against the same item until commit.
func lockAvailability(ctx context.Context, tx pgx.Tx, itemID int64, exclude uuid.UUID) (onHand, reserved decimal.Decimal, err error) {
	var onHandStr string
	err = tx.QueryRow(ctx,
		`SELECT quantity::text FROM stock_entries WHERE item_id = $1 FOR UPDATE`, itemID).Scan(&onHandStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, decimal.Zero, store.ErrNotStocked
		}
		return decimal.Zero, decimal.Zero, err
	}
	var reservedStr string
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)::text
		  FROM cart_items
		 WHERE item_id = $1 AND id <> $2`, itemID, exclude).Scan(&reservedStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return mustDecimal(onHandStr), mustDecimal(reservedStr), nil
}

func (s *Store) AddCartItem(ctx context.Context, cartID uuid.UUID, itemID int64, qty decimal.Decimal) (domain.CartItem, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.CartItem{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists); err != nil {
		return domain.CartItem{}, err
	}
	if !exists {
		return domain.CartItem{}, store.ErrNotFound
	}

	onHand, reserved, err := lockAvailability(ctx, tx, itemID, uuid.Nil)
	if err != nil {
		return domain.CartItem{}, err
	}
	if reserved.Add(qty).GreaterThan(onHand) {
		return domain.CartItem{}, store.ErrInsufficientStock
	}

	ci, err := scanCartItem(tx.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, item_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING `+cartItemColumns, cartID, itemID, qty.String()))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.CartItem{}, store.ErrDuplicateCartItem
		}
		return domain.CartItem{}, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE carts SET updated_at = now() WHERE id = $1`, cartID); err != nil {
		return domain.CartItem{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.CartItem{}, err
	}
	return ci, nil
}

func (s *Store) SetCartItemQuantity(ctx context.Context, cartID, cartItemID uuid.UUID, qty decimal.Decimal) (domain.CartItem, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.CartItem{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	existing, err := scanCartItem(tx.QueryRow(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE id = $1 AND cart_id = $2 FOR UPDATE`,
		cartItemID, cartID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CartItem{}, store.ErrNotFound
		}
		return domain.CartItem{}, err
	}

	onHand, reserved, err := lockAvailability(ctx, tx, existing.ItemID, cartItemID)
	if err != nil {
		return domain.CartItem{}, err
	}
	if reserved.Add(qty).GreaterThan(onHand) {
		return domain.CartItem{}, store.ErrInsufficientStock
	}

	ci, err := scanCartItem(tx.QueryRow(ctx, `
		UPDATE cart_items
		   SET quantity = $3, updated_at = now()
		 WHERE id = $1 AND cart_id = $2
		RETURNING `+cartItemColumns, cartItemID, cartID, qty.String()))
	if err != nil {
		return domain.CartItem{}, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE carts SET updated_at = now() WHERE id = $1`, cartID); err != nil {
		return domain.CartItem{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.CartItem{}, err
	}
	return ci, nil
}

func (s *Store) DeleteCartItem(ctx context.Context, cartID, cartItemID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, cartItemID, cartID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	_, err = s.pool.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return err
}

func (s *Store) ClearCartItems(ctx context.Context, cartID uuid.UUID) (int, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, err
	}
	_, err = s.pool.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return int(tag.RowsAffected()), err
}

func (s *Store) SumItemQuantity(ctx context.Context, itemID int64) (decimal.Decimal, error) {
	var sum string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0)::text FROM cart_items WHERE item_id = $1`, itemID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return mustDecimal(sum), nil
}
