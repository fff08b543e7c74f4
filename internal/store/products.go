package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kofiasare/kantamanto/internal/models"
)

const productColumns = `id, name, description, category, base_price, current_price, stock_quantity, image_url, is_active, created_at`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.BasePrice,
		&p.CurrentPrice, &p.StockQuantity, &p.ImageURL, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActiveProducts lists active products, optionally filtered by category.
func (s *Store) GetActiveProducts(ctx context.Context, category string, limit, offset int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = 1`
	args := []any{}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// SnapshotActiveProducts reads every active product, for the repricing
// cycle. The snapshot is taken outside any long-lived transaction so the
// cycle never holds a read lock while predicting.
func (s *Store) SnapshotActiveProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *Store) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrProductNotFound
	}
	return p, err
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO products (name, description, category, base_price, current_price, stock_quantity, image_url, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, p.Name, p.Description, p.Category, p.BasePrice, p.CurrentPrice, p.StockQuantity, p.ImageURL, p.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = int(id)
	return nil
}

// UpdateProduct edits catalog fields. current_price and stock_quantity are
// deliberately excluded: those belong to the repricer and to checkout.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, category = ?, is_active = ?
		WHERE id = ?
	`, p.Name, p.Description, p.Category, p.IsActive, p.ID)
	if err != nil {
		return err
	}
	return requireRow(res, models.ErrProductNotFound)
}

// UpdateProductStock sets the absolute stock level (admin restock).
func (s *Store) UpdateProductStock(ctx context.Context, id, quantity int) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE products SET stock_quantity = ? WHERE id = ?`, quantity, id)
	if err != nil {
		return err
	}
	return requireRow(res, models.ErrProductNotFound)
}

// DeactivateProduct soft-deletes; orders and history keep referencing it.
func (s *Store) DeactivateProduct(ctx context.Context, id int) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE products SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, models.ErrProductNotFound)
}

func (s *Store) UpdateProductImage(ctx context.Context, id int, imageURL string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE products SET image_url = ? WHERE id = ?`, imageURL, id)
	if err != nil {
		return err
	}
	return requireRow(res, models.ErrProductNotFound)
}

// SetProductPrice overwrites current_price and appends the matching
// price_history row in one transaction. It touches no other product field.
func (s *Store) SetProductPrice(ctx context.Context, productID int, price float64, reason string) error {
	if price <= 0 {
		return fmt.Errorf("refusing to set non-positive price %.2f for product %d", price, productID)
	}
	return s.RunInTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE products SET current_price = ? WHERE id = ?`, price, productID)
		if err != nil {
			return err
		}
		if err := requireRow(res, models.ErrProductNotFound); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO price_history (product_id, price, reason, created_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		`, productID, price, reason)
		return err
	})
}

func (s *Store) GetPriceHistory(ctx context.Context, productID, limit int) ([]models.PriceHistory, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, product_id, price, reason, created_at
		FROM price_history
		WHERE product_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.PriceHistory
	for rows.Next() {
		var h models.PriceHistory
		if err := rows.Scan(&h.ID, &h.ProductID, &h.Price, &h.Reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// DaysSinceLastPriceChange reports the age of the newest price_history row.
// ok is false when the product has no price history yet.
func (s *Store) DaysSinceLastPriceChange(ctx context.Context, productID int) (float64, bool, error) {
	var days sql.NullFloat64
	err := s.DB.QueryRowContext(ctx, `
		SELECT julianday('now') - julianday(MAX(created_at))
		FROM price_history WHERE product_id = ?
	`, productID).Scan(&days)
	if err != nil {
		return 0, false, err
	}
	return days.Float64, days.Valid, nil
}

func (s *Store) SaveCompetitorPrice(ctx context.Context, cp *models.CompetitorPrice) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO competitor_prices (product_id, competitor_name, price, url, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, cp.ProductID, cp.CompetitorName, cp.Price, cp.URL)
	return err
}

// CompetitorAvgPrice averages the collected competitor prices for a product.
// Returns 0 when none have been collected.
func (s *Store) CompetitorAvgPrice(ctx context.Context, productID int) (float64, error) {
	var avg sql.NullFloat64
	err := s.DB.QueryRowContext(ctx, `
		SELECT AVG(price) FROM competitor_prices WHERE product_id = ?
	`, productID).Scan(&avg)
	if err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
