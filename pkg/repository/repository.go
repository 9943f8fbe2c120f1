// Package repository holds the database/sql helpers the PostgreSQL stores
// share: typed row scanning, transactions, and paged listing.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JaimeStill/followup/pkg/pagination"
	"github.com/JaimeStill/followup/pkg/query"
)

// DB is satisfied by *sql.DB, *sql.Tx, and *sql.Conn.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is a row or rows cursor.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc reads one T from the current row.
type ScanFunc[T any] func(Scanner) (T, error)

// Get runs a single-row query.
func Get[T any](ctx context.Context, db DB, q string, args []any, scan ScanFunc[T]) (T, error) {
	return scan(db.QueryRowContext(ctx, q, args...))
}

// Select runs a query and scans every row. It returns an empty, non-nil
// slice when nothing matches.
func Select[T any](ctx context.Context, db DB, q string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ExecOne runs a statement that must affect exactly one row. Zero rows is
// reported as sql.ErrNoRows.
func ExecOne(ctx context.Context, db DB, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		if n == 0 {
			return sql.ErrNoRows
		}
		return fmt.Errorf("expected 1 affected row, got %d", n)
	}
	return nil
}

// Page counts and fetches one page of qb. The request must already be
// normalized.
func Page[T any](
	ctx context.Context,
	db DB,
	qb *query.Builder,
	page pagination.PageRequest,
	scan ScanFunc[T],
) (*pagination.PageResult[T], error) {
	countSQL, countArgs := qb.BuildCount()

	var total int
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := Select(ctx, db, pageSQL, pageArgs, scan)
	if err != nil {
		return nil, fmt.Errorf("select page: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}
