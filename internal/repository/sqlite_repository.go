package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/fjod/go_cart/shopcore/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteTable struct {
	db *sql.DB
}

// NewSQLiteTable opens (or creates) the database at dbPath and applies the
// embedded migrations. ":memory:" gives a private in-memory database.
func NewSQLiteTable(dbPath string) (*SQLiteTable, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer anyway, and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteTable{db: db}, nil
}

func RunMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *SQLiteTable) Upsert(ctx context.Context, item domain.LineItem) error {
	query := `
		INSERT INTO cart_items (product_id, product_name, image_url, unit_price, quantity, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (product_id) DO UPDATE SET
			product_name = excluded.product_name,
			image_url    = excluded.image_url,
			unit_price   = excluded.unit_price,
			quantity     = excluded.quantity
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ProductID,
		item.ProductName,
		item.ImageURL,
		item.UnitPrice.String(),
		item.Quantity,
		item.AddedAt.UnixNano(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrInvariantViolation, err)
		}
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

func (r *SQLiteTable) Get(ctx context.Context, productID int64) (*domain.LineItem, error) {
	query := `
		SELECT product_id, product_name, image_url, unit_price, quantity, added_at
		FROM cart_items
		WHERE product_id = ?
	`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (r *SQLiteTable) Delete(ctx context.Context, productID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE product_id = ?`, productID)
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteTable) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteTable) List(ctx context.Context) ([]domain.LineItem, error) {
	query := `
		SELECT product_id, product_name, image_url, unit_price, quantity, added_at
		FROM cart_items
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

func (r *SQLiteTable) Close(context.Context) error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.LineItem, error) {
	var (
		item    domain.LineItem
		addedAt int64
	)
	err := row.Scan(
		&item.ProductID,
		&item.ProductName,
		&item.ImageURL,
		&item.UnitPrice,
		&item.Quantity,
		&addedAt,
	)
	if err != nil {
		return nil, err
	}
	item.AddedAt = time.Unix(0, addedAt)
	return &item, nil
}

func isConstraintViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "check constraint")
}
