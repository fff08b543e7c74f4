package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kofiasare/kantamanto/internal/models"
)

// Transaction-scoped helpers for the checkout engine. Everything here takes
// the caller's *sql.Tx so the whole checkout commits or rolls back as one
// atomic unit of work.

// CartItemsTx reads the user's raw cart rows inside the transaction.
func (s *Store) CartItemsTx(ctx context.Context, tx *sql.Tx, userID int) ([]models.CartItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, user_id, product_id, quantity
		FROM cart_items WHERE user_id = ? ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var c models.CartItem
		if err := rows.Scan(&c.ID, &c.UserID, &c.ProductID, &c.Quantity); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// ProductTx re-reads live stock and price inside the transaction. Never use
// a cached product for checkout decisions.
func (s *Store) ProductTx(ctx context.Context, tx *sql.Tx, id int) (*models.Product, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ? AND is_active = 1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrProductNotFound
	}
	return p, err
}

// DecrementStockTx subtracts quantity from the product's stock. The guard in
// the WHERE clause makes a stale read harmless: if stock moved under us the
// update matches no row and the checkout rolls back.
func (s *Store) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - ?
		WHERE id = ? AND stock_quantity >= ?
	`, quantity, productID, quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var name string
		var stock int
		if err := tx.QueryRowContext(ctx, `SELECT name, stock_quantity FROM products WHERE id = ?`, productID).Scan(&name, &stock); err != nil {
			return models.ErrProductNotFound
		}
		return &models.InsufficientStockError{ProductID: productID, ProductName: name, Requested: quantity, Available: stock}
	}
	return nil
}

func (s *Store) InsertOrderTx(ctx context.Context, tx *sql.Tx, o *models.Order) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (user_id, total_amount, status, shipping_address, customer_name, customer_email, order_notes, payment_method, payment_reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, o.UserID, o.TotalAmount, o.Status, o.ShippingAddress, o.CustomerName, o.CustomerEmail, o.OrderNotes, o.PaymentMethod, o.PaymentReference)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = int(id)
	return nil
}

func (s *Store) InsertOrderItemTx(ctx context.Context, tx *sql.Tx, it *models.OrderItem) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, price_at_time)
		VALUES (?, ?, ?, ?)
	`, it.OrderID, it.ProductID, it.Quantity, it.PriceAtTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = int(id)
	return nil
}

func (s *Store) ClearCartTx(ctx context.Context, tx *sql.Tx, userID int) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}
