package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pasarhub/backend-pos/internal/domain"
	"github.com/pasarhub/backend-pos/internal/store"
)

func (s *Store) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`,
		c.Name, c.Description)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Category{}, store.ErrConflict
		}
		return domain.Category{}, err
	}
	return c, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), created_at, updated_at
		  FROM categories WHERE id = $1`, id)
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Category{}, store.ErrNotFound
		}
		return domain.Category{}, err
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), created_at, updated_at
		  FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE categories
		   SET name = $2, description = $3, updated_at = now()
		 WHERE id = $1
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Description)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Category{}, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.Category{}, store.ErrConflict
		}
		return domain.Category{}, err
	}
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	var hasItems bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE category_id = $1)`, id).Scan(&hasItems); err != nil {
		return err
	}
	if hasItems {
		return store.ErrConflict
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const itemColumns = `
	id, category_id, name, COALESCE(description, ''), COALESCE(sku, ''),
	COALESCE(barcode, ''), unit_price::text, unit_type,
	discount_rate::text, tax_rate::text, created_at, updated_at`

func scanItem(row pgx.Row) (domain.Item, error) {
	var (
		it                       domain.Item
		price, discount, taxRate string
	)
	err := row.Scan(&it.ID, &it.CategoryID, &it.Name, &it.Description, &it.SKU,
		&it.Barcode, &price, &it.UnitType, &discount, &taxRate,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return domain.Item{}, err
	}
	it.UnitPrice = mustDecimal(price)
	it.DiscountRate = mustDecimal(discount)
	it.TaxRate = mustDecimal(taxRate)
	return it, nil
}

func (s *Store) CreateItem(ctx context.Context, it domain.Item) (domain.Item, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, it.CategoryID).Scan(&exists); err != nil {
		return domain.Item{}, err
	}
	if !exists {
		return domain.Item{}, store.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO items (category_id, name, description, sku, barcode,
		                   unit_price, unit_type, discount_rate, tax_rate)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		it.CategoryID, it.Name, it.Description, it.SKU, it.Barcode,
		it.UnitPrice.String(), it.UnitType, it.DiscountRate.String(), it.TaxRate.String())
	if err := row.Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Item{}, store.ErrConflict
		}
		return domain.Item{}, err
	}
	return it, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, store.ErrNotFound
	}
	return it, err
}

func (s *Store) GetItemBySKU(ctx context.Context, sku string) (domain.Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE sku = $1`, sku))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, store.ErrNotFound
	}
	return it, err
}

func (s *Store) ListItems(ctx context.Context, categoryID *int64) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	args := []any{}
	if categoryID != nil {
		query += ` WHERE category_id = $1`
		args = append(args, *categoryID)
	}
	query += ` ORDER BY id`
	return s.queryItems(ctx, query, args...)
}

func (s *Store) SearchItems(ctx context.Context, q string) ([]domain.Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE name ILIKE '%' || $1 || '%' ORDER BY id`, q)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) UpdateItem(ctx context.Context, it domain.Item) (domain.Item, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE items
		   SET category_id = $2, name = $3, description = NULLIF($4, ''),
		       sku = NULLIF($5, ''), barcode = NULLIF($6, ''), unit_price = $7,
		       unit_type = $8, discount_rate = $9, tax_rate = $10,
		       updated_at = now()
		 WHERE id = $1
		RETURNING created_at, updated_at`,
		it.ID, it.CategoryID, it.Name, it.Description, it.SKU, it.Barcode,
		it.UnitPrice.String(), it.UnitType, it.DiscountRate.String(), it.TaxRate.String())
	if err := row.Scan(&it.CreatedAt, &it.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.Item{}, store.ErrConflict
		}
		return domain.Item{}, err
	}
	return it, nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
