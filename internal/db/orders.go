package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xtrntr/p2pexchange/internal/models"
)

const orderColumns = `o.id, o.type, o.currency, o.amount, o.payment_method, o.premium, o.satoshis,
	o.maker_id, m.username, o.taker_id, t.username, o.status, o.created_at, o.expires_at`

const orderJoins = `JOIN accounts m ON m.id = o.maker_id LEFT JOIN accounts t ON t.id = o.taker_id`

func scanOrder(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.Type,
		&order.Currency,
		&order.Amount,
		&order.PaymentMethod,
		&order.Premium,
		&order.Satoshis,
		&order.MakerID,
		&order.Maker,
		&order.TakerID,
		&order.Taker,
		&order.Status,
		&order.CreatedAt,
		&order.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// lockRoles serializes role changes for one account until the transaction ends
func lockRoles(ctx context.Context, tx pgx.Tx, accountID int64) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", accountID); err != nil {
		return fmt.Errorf("failed to lock account roles: %w", err)
	}
	return nil
}

// checkRoles returns ErrAlreadyMaker or ErrAlreadyTaker if the account holds an open role
func checkRoles(ctx context.Context, tx pgx.Tx, accountID int64) error {
	var isMaker, isTaker bool
	err := tx.QueryRow(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM orders WHERE maker_id = $1 AND status IN ('public', 'taken')),
			EXISTS(SELECT 1 FROM orders WHERE taker_id = $1 AND status IN ('public', 'taken'))
	`, accountID).Scan(&isMaker, &isTaker)
	if err != nil {
		return fmt.Errorf("failed to check account roles: %w", err)
	}
	switch {
	case isMaker:
		return ErrAlreadyMaker
	case isTaker:
		return ErrAlreadyTaker
	}
	return nil
}

// CreateOrder inserts a new order for order.MakerID. The role check and the
// insert run in one transaction holding the maker's advisory lock, so two
// concurrent requests from the same account cannot both succeed.
func (db *DB) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockRoles(ctx, tx, order.MakerID); err != nil {
		return nil, err
	}
	if err := checkRoles(ctx, tx, order.MakerID); err != nil {
		return nil, err
	}

	newOrder, err := scanOrder(tx.QueryRow(ctx, `
		WITH o AS (
			INSERT INTO orders (type, currency, amount, payment_method, premium, satoshis, maker_id, status, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING *
		)
		SELECT `+orderColumns+` FROM o `+orderJoins,
		order.Type, order.Currency, order.Amount, order.PaymentMethod, order.Premium,
		order.Satoshis, order.MakerID, order.Status, order.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return newOrder, nil
}

// TakeOrder makes takerID the taker of a public order under the same role
// lock as CreateOrder
func (db *DB) TakeOrder(ctx context.Context, orderID, takerID int64) (*models.Order, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockRoles(ctx, tx, takerID); err != nil {
		return nil, err
	}
	if err := checkRoles(ctx, tx, takerID); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		"UPDATE orders SET taker_id = $1, status = 'taken' WHERE id = $2 AND status = 'public' AND maker_id <> $1",
		takerID, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to take order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrOrderUnavailable
	}

	order, err := scanOrder(tx.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders o "+orderJoins+" WHERE o.id = $1", orderID))
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return order, nil
}

// FindOrders returns every order with the given id
func (db *DB) FindOrders(ctx context.Context, id int64) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx, "SELECT "+orderColumns+" FROM orders o "+orderJoins+" WHERE o.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	return collectOrders(rows)
}

// GetAccountOrders retrieves all orders the account made or took
func (db *DB) GetAccountOrders(ctx context.Context, accountID int64) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+orderColumns+" FROM orders o "+orderJoins+" WHERE o.maker_id = $1 OR o.taker_id = $1 ORDER BY o.created_at DESC",
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account orders: %w", err)
	}
	return collectOrders(rows)
}

// GetPublicOrders retrieves all public orders, oldest first
func (db *DB) GetPublicOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+orderColumns+" FROM orders o "+orderJoins+" WHERE o.status = 'public' ORDER BY o.created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to get public orders: %w", err)
	}
	return collectOrders(rows)
}

// HoldsOpenRole reports whether the account is maker or taker of an order
// that still occupies its role
func (db *DB) HoldsOpenRole(ctx context.Context, accountID int64) (bool, error) {
	var held bool
	err := db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM orders WHERE (maker_id = $1 OR taker_id = $1) AND status IN ('public', 'taken'))",
		accountID).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("failed to check open roles: %w", err)
	}
	return held, nil
}

// ExpireOrders marks public orders that expired before now and returns their ids
func (db *DB) ExpireOrders(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := db.Pool.Query(ctx,
		"UPDATE orders SET status = 'expired' WHERE status = 'public' AND expires_at <= $1 RETURNING id",
		now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire orders: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
