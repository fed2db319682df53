package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/storefront/order-fulfillment/internal/core/domain"
	"github.com/storefront/order-fulfillment/internal/port"
)

const mysqlErrDuplicateEntry = 1062

// MySQLAdapter persists orders and owns per-product inventory. It backs
// both port.OrderRepository and port.InventoryRepository.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Save inserts the order and its lines in one transaction. A duplicate
// order ID means a previous attempt already stored it (and crashed
// before witnessing the fact), so it is treated as success.
func (m *MySQLAdapter) Save(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_ref, created_at)
		VALUES (?, ?, ?)`,
		order.ID, order.CustomerRef, order.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return nil
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, line_no, product_id, quantity)
			VALUES (?, ?, ?, ?)`,
			order.ID, i, line.ProductID, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order line %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Adjust applies delta to the product's stock in a single conditional
// update so stock can never go negative, then reads back the new level.
// The adjustment row's primary key makes the decrement idempotent per
// (orderID, lineNo): a second application of the same line hits a
// duplicate key and leaves stock untouched, even when two workers race
// inside this call or a crash landed between the decrement and the
// fulfillment record update.
func (m *MySQLAdapter) Adjust(ctx context.Context, orderID string, lineNo int, productID string, delta int) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory_adjustments (order_id, line_no, product_id, delta)
		VALUES (?, ?, ?, ?)`,
		orderID, lineNo, productID, delta,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return m.currentStock(ctx, productID)
		}
		return 0, fmt.Errorf("insert adjustment: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE inventory
		SET stock = stock + ?, version = version + 1, updated_at = NOW()
		WHERE product_id = ? AND stock + ? >= 0`,
		delta, productID, delta,
	)
	if err != nil {
		return 0, fmt.Errorf("update inventory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM inventory WHERE product_id = ?`, productID,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, port.ErrUnknownProduct
		}
		if err != nil {
			return 0, fmt.Errorf("query inventory: %w", err)
		}
		return 0, port.ErrInsufficientStock
	}

	var stock int
	err = tx.QueryRowContext(ctx,
		`SELECT stock FROM inventory WHERE product_id = ?`, productID,
	).Scan(&stock)
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return stock, nil
}

func (m *MySQLAdapter) currentStock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := m.db.QueryRowContext(ctx,
		`SELECT stock FROM inventory WHERE product_id = ?`, productID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, port.ErrUnknownProduct
	}
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}
	return stock, nil
}

func (m *MySQLAdapter) Get(ctx context.Context, productID string) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := m.db.QueryRowContext(ctx, `
		SELECT product_id, stock, version, created_at, updated_at
		FROM inventory WHERE product_id = ?`, productID,
	).Scan(&inv.ProductID, &inv.Stock, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}

	return &inv, nil
}

func (m *MySQLAdapter) UpsertStock(ctx context.Context, productID string, stock int) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, stock, version, created_at, updated_at)
		VALUES (?, ?, 0, NOW(), NOW())
		ON DUPLICATE KEY UPDATE stock = VALUES(stock), version = version + 1, updated_at = NOW()`,
		productID, stock,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}
