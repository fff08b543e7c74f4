package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kofiasare/kantamanto/internal/models"
)

// GetCartItems returns the user's cart with current product name and price
// joined in for display. Display prices are advisory; checkout re-reads them.
func (s *Store) GetCartItems(ctx context.Context, userID int) ([]models.CartItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, p.name, p.current_price
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
		ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var c models.CartItem
		if err := rows.Scan(&c.ID, &c.UserID, &c.ProductID, &c.Quantity, &c.CreatedAt, &c.ProductName, &c.ProductPrice); err != nil {
			return nil, err
		}
		c.TotalPrice = c.ProductPrice * float64(c.Quantity)
		items = append(items, c)
	}
	return items, rows.Err()
}

// AddToCart adds quantity of a product to the user's cart, incrementing the
// existing row rather than duplicating it. The stock check here is a soft
// check for early feedback; the authoritative check happens at checkout.
func (s *Store) AddToCart(ctx context.Context, userID, productID, quantity int) error {
	if quantity < 1 {
		return models.ErrInvalidQuantity
	}

	var name string
	var stock int
	err := s.DB.QueryRowContext(ctx, `
		SELECT name, stock_quantity FROM products WHERE id = ? AND is_active = 1
	`, productID).Scan(&name, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if stock < quantity {
		return &models.InsufficientStockError{ProductID: productID, ProductName: name, Requested: quantity, Available: stock}
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = quantity + excluded.quantity
	`, userID, productID, quantity)
	return err
}

// UpdateCartItem sets the quantity of one of the user's cart rows.
func (s *Store) UpdateCartItem(ctx context.Context, userID, itemID, quantity int) error {
	if quantity < 1 {
		return models.ErrInvalidQuantity
	}

	var productID int
	err := s.DB.QueryRowContext(ctx, `
		SELECT product_id FROM cart_items WHERE id = ? AND user_id = ?
	`, itemID, userID).Scan(&productID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrCartItemNotFound
	}
	if err != nil {
		return err
	}

	var name string
	var stock int
	err = s.DB.QueryRowContext(ctx, `SELECT name, stock_quantity FROM products WHERE id = ?`, productID).Scan(&name, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if stock < quantity {
		return &models.InsufficientStockError{ProductID: productID, ProductName: name, Requested: quantity, Available: stock}
	}

	_, err = s.DB.ExecContext(ctx, `UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?`, quantity, itemID, userID)
	return err
}

func (s *Store) RemoveCartItem(ctx context.Context, userID, itemID int) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return err
	}
	return requireRow(res, models.ErrCartItemNotFound)
}

func (s *Store) ClearCart(ctx context.Context, userID int) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}

// GetCartTotal sums quantity * current price across the user's cart.
func (s *Store) GetCartTotal(ctx context.Context, userID int) (float64, error) {
	var total sql.NullFloat64
	err := s.DB.QueryRowContext(ctx, `
		SELECT SUM(c.quantity * p.current_price)
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
	`, userID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}
