package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kofiasare/kantamanto/internal/models"
)

const orderColumns = `id, user_id, total_amount, status, shipping_address, customer_name, customer_email, order_notes, payment_method, payment_reference, created_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.ShippingAddress,
		&o.CustomerName, &o.CustomerEmail, &o.OrderNotes, &o.PaymentMethod,
		&o.PaymentReference, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) GetOrderByID(ctx context.Context, id int) (*models.Order, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	return o, err
}

func (s *Store) GetOrdersByUser(ctx context.Context, userID int) ([]models.Order, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// GetAllOrders lists orders for the admin view, optionally filtered by status.
func (s *Store) GetAllOrders(ctx context.Context, status models.OrderStatus, limit, offset int) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *Store) GetOrderItems(ctx context.Context, orderID int) ([]models.OrderItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_time
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ?
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtTime); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetOrderByPaymentReference looks an order up by its gateway reference,
// scoped to the owning user.
func (s *Store) GetOrderByPaymentReference(ctx context.Context, userID int, reference string) (*models.Order, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE payment_reference = ? AND user_id = ?
	`, reference, userID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	return o, err
}

// AttachPaymentReference records the gateway reference after a successful
// payment initiation. The order status is not touched here.
func (s *Store) AttachPaymentReference(ctx context.Context, orderID int, reference string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE orders SET payment_reference = ? WHERE id = ?`, reference, orderID)
	if err != nil {
		return err
	}
	return requireRow(res, models.ErrOrderNotFound)
}

// TransitionOrderStatus moves an order along the lifecycle, re-reading the
// current status inside the transaction so a concurrent transition cannot be
// overwritten with a stale one.
func (s *Store) TransitionOrderStatus(ctx context.Context, orderID int, next models.OrderStatus) error {
	return s.RunInTx(ctx, func(tx *sql.Tx) error {
		var current models.OrderStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, orderID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		if !current.CanTransitionTo(next) {
			return &models.InvalidTransitionError{From: current, To: next}
		}

		_, err = tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, next, orderID)
		return err
	})
}
