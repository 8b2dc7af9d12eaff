// Package postgres implements store.Store on pgx. Operations the contract
// requires to be atomic run in a single transaction with the relevant stock
// row locked (SELECT ... FOR UPDATE), so concurrent cart mutations against
// one item serialize at the database.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is a postgres-backed implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps the connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// mustDecimal parses a numeric column scanned as text. Values come from
// numeric columns, so a parse failure means a corrupted row.
func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("postgres: non-numeric value in numeric column: " + s)
	}
	return d
}
