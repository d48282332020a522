// Package store persists order records in SQLite. The table carries one
// TEXT column per configured canonical field, provisioned at open time so
// extending the field table never needs a hand-written migration.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/receiptwise/receiptwise/internal/models"
)

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// reserved are base table columns a canonical field may not shadow.
var reserved = map[string]bool{
	"id":           true,
	"filename":     true,
	"collected":    true,
	"last_updated": true,
}

// Store is a SQLite-backed order repository. Each operation is a single
// statement and therefore atomic with respect to itself.
type Store struct {
	db        *sql.DB
	fieldCols []string
}

// Open opens (creating if needed) the order database at path and ensures
// a column exists for every canonical field name. order_id is part of the
// base schema and must be present in fields.
func Open(path string, fields []string) (*Store, error) {
	cols, err := extraColumns(fields)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id     TEXT NOT NULL UNIQUE,
		filename     TEXT DEFAULT '',
		collected    BOOLEAN NOT NULL DEFAULT 0,
		last_updated DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_order_id ON orders(order_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// Provision one column per configured field that is not yet present.
	for _, col := range cols {
		var count int
		_ = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('orders') WHERE name = ?`, col).Scan(&count)
		if count == 0 {
			if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE orders ADD COLUMN %s TEXT DEFAULT ''`, col)); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to add column %s: %w", col, err)
			}
		}
	}

	return &Store{db: db, fieldCols: cols}, nil
}

// extraColumns validates the configured field names and strips order_id,
// which lives in the base schema.
func extraColumns(fields []string) ([]string, error) {
	var cols []string
	sawOrderID := false
	for _, f := range fields {
		if f == "order_id" {
			sawOrderID = true
			continue
		}
		if !identPattern.MatchString(f) || reserved[f] {
			return nil, fmt.Errorf("invalid field name %q", f)
		}
		cols = append(cols, f)
	}
	if !sawOrderID {
		return nil, fmt.Errorf("field set must include order_id")
	}
	return cols, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindByOrderID returns the record with the given business key, or nil
// when no such record exists.
func (s *Store) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE order_id = ?`, s.selectList())
	row := s.db.QueryRowContext(ctx, query, orderID)

	order, err := s.scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order %s: %w", orderID, err)
	}
	return order, nil
}

// Insert stores a new record and assigns its surrogate id.
func (s *Store) Insert(ctx context.Context, order *models.Order) (*models.Order, error) {
	cols := []string{"order_id", "filename", "collected", "last_updated"}
	args := []any{order.OrderID, order.Filename, order.Collected, order.LastUpdated}
	for _, col := range s.fieldCols {
		cols = append(cols, col)
		args = append(args, order.FieldValue(col))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf(`INSERT INTO orders (%s) VALUES (%s)`, strings.Join(cols, ", "), placeholders)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order %s: %w", order.OrderID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}
	order.ID = id
	return order, nil
}

// Update rewrites an existing record, keyed by its business key.
func (s *Store) Update(ctx context.Context, order *models.Order) (*models.Order, error) {
	sets := []string{"filename = ?", "collected = ?", "last_updated = ?"}
	args := []any{order.Filename, order.Collected, order.LastUpdated}
	for _, col := range s.fieldCols {
		sets = append(sets, col+" = ?")
		args = append(args, order.FieldValue(col))
	}
	args = append(args, order.OrderID)

	query := fmt.Sprintf(`UPDATE orders SET %s WHERE order_id = ?`, strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", order.OrderID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &models.NotFoundError{OrderID: order.OrderID}
	}
	return order, nil
}

// All returns every stored record ordered by surrogate id.
func (s *Store) All(ctx context.Context) ([]models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders ORDER BY id`, s.selectList())
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (s *Store) selectList() string {
	cols := append([]string{"id", "order_id", "filename", "collected", "last_updated"}, s.fieldCols...)
	return strings.Join(cols, ", ")
}

type scannable interface {
	Scan(dest ...any) error
}

func (s *Store) scanOrder(row scannable) (*models.Order, error) {
	order := &models.Order{Fields: make(map[string]string, len(s.fieldCols))}

	dest := []any{&order.ID, &order.OrderID, &order.Filename, &order.Collected, &order.LastUpdated}
	values := make([]string, len(s.fieldCols))
	for i := range s.fieldCols {
		dest = append(dest, &values[i])
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	for i, col := range s.fieldCols {
		order.Fields[col] = values[i]
	}
	return order, nil
}
