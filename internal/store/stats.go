package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type DashboardStats struct {
	TotalProducts  int            `json:"total_products"`
	TotalUsers     int            `json:"total_users"`
	TotalOrders    int            `json:"total_orders"`
	TotalRevenue   float64        `json:"total_revenue"`
	OrdersByStatus map[string]int `json:"orders_by_status"`
}

type PriceChange struct {
	ProductID   int       `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       float64   `json:"price"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Store) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		OrdersByStatus: make(map[string]int),
	}

	err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&stats.TotalProducts)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&stats.TotalUsers)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&stats.TotalOrders)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var revenue sql.NullFloat64
	err = s.DB.QueryRowContext(ctx, "SELECT SUM(total_amount) FROM orders").Scan(&revenue)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	stats.TotalRevenue = revenue.Float64

	rows, err := s.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.OrdersByStatus[status] = count
	}

	return stats, rows.Err()
}

// GetRecentPriceChanges lists the newest price_history rows with product
// names, for the admin dashboard.
func (s *Store) GetRecentPriceChanges(ctx context.Context, limit int) ([]PriceChange, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT h.product_id, p.name, h.price, h.reason, h.created_at
		FROM price_history h
		JOIN products p ON p.id = h.product_id
		ORDER BY h.created_at DESC, h.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []PriceChange
	for rows.Next() {
		var c PriceChange
		if err := rows.Scan(&c.ProductID, &c.ProductName, &c.Price, &c.Reason, &c.CreatedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
