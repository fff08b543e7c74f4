package models

import (
	"time"
)

type Product struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	BasePrice     float64   `json:"base_price"`     // Reference price, fixed at creation
	CurrentPrice  float64   `json:"current_price"`  // Authoritative sale price, owned by the repricer
	StockQuantity int       `json:"stock_quantity"` // Owned by checkout; never negative
	ImageURL      string    `json:"image_url"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// PriceHistory is append-only: one row per price change, never updated.
type PriceHistory struct {
	ID        int       `json:"id"`
	ProductID int       `json:"product_id"`
	Price     float64   `json:"price"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Price change reasons recorded in price_history.
const (
	ReasonScheduledRepricing    = "scheduled_repricing"
	ReasonManualOverride        = "manual_override"
	ReasonCompetitiveAdjustment = "competitive_adjustment"
)

type CartItem struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	ProductID int       `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`

	// Joined product fields for display convenience
	ProductName  string  `json:"product_name"`
	ProductPrice float64 `json:"product_price"`
	TotalPrice   float64 `json:"total_price"`
}

type Order struct {
	ID               int         `json:"id"`
	UserID           int         `json:"user_id"`
	TotalAmount      float64     `json:"total_amount"`
	Status           OrderStatus `json:"status"`
	ShippingAddress  string      `json:"shipping_address"`
	CustomerName     string      `json:"customer_name"`
	CustomerEmail    string      `json:"customer_email"`
	OrderNotes       string      `json:"order_notes"`
	PaymentMethod    string      `json:"payment_method"`
	PaymentReference string      `json:"payment_reference"`
	CreatedAt        time.Time   `json:"created_at"`
}

// OrderItem freezes the unit price at checkout time. PriceAtTime is never
// recomputed from the product, even after the repricer moves CurrentPrice.
type OrderItem struct {
	ID          int     `json:"id"`
	OrderID     int     `json:"order_id"`
	ProductID   int     `json:"product_id"`
	ProductName string  `json:"product_name"` // For display convenience
	Quantity    int     `json:"quantity"`
	PriceAtTime float64 `json:"price_at_time"`
}

type CompetitorPrice struct {
	ID             int       `json:"id"`
	ProductID      int       `json:"product_id"`
	CompetitorName string    `json:"competitor_name"`
	Price          float64   `json:"price"`
	URL            string    `json:"url"`
	CreatedAt      time.Time `json:"created_at"`
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"` // "admin" or "customer"
	Password string `json:"-"`    // Store hashed password
	IsActive bool   `json:"is_active"`
}

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// FeatureVector is the fixed input contract of the price predictor.
// Signals the store cannot supply stay at their zero value.
type FeatureVector struct {
	BasePrice                float64 `json:"base_price"`
	CompetitorAvgPrice       float64 `json:"competitor_avg_price"`
	DemandScore              float64 `json:"demand_score"`
	StockLevel               float64 `json:"stock_level"`
	SeasonalityFactor        float64 `json:"seasonality_factor"`
	UserEngagement           float64 `json:"user_engagement"`
	ConversionRate           float64 `json:"conversion_rate"`
	TimeSinceLastPriceChange float64 `json:"time_since_last_price_change"`
}

// PaymentRequest is the payment descriptor submitted with a checkout.
type PaymentRequest struct {
	Email       string  `json:"email"`
	Amount      float64 `json:"amount"`
	Reference   string  `json:"reference,omitempty"`
	CallbackURL string  `json:"callback_url,omitempty"`
}

// PaymentInit is the gateway's answer to a successful initiation.
type PaymentInit struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
}
