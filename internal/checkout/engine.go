package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kofiasare/kantamanto/internal/models"
	"github.com/kofiasare/kantamanto/internal/store"
)

// Shipping is free from this subtotal up, inclusive.
const (
	FreeShippingThreshold = 1000.0
	FlatShippingFee       = 50.0
	TaxRate               = 0.125 // 12.5% VAT on subtotal + shipping
)

// PaymentGateway is the slice of the payment provider the engine needs.
type PaymentGateway interface {
	Initialize(ctx context.Context, req models.PaymentRequest) (*models.PaymentInit, error)
	Verify(ctx context.Context, reference string) (bool, error)
}

// Engine turns a user's cart into a persisted order: validate, compute
// totals, commit atomically, then hand off to the payment gateway.
type Engine struct {
	store          *store.Store
	gateway        PaymentGateway
	paymentTimeout time.Duration
}

func NewEngine(s *store.Store, gateway PaymentGateway, paymentTimeout time.Duration) *Engine {
	if paymentTimeout <= 0 {
		paymentTimeout = 15 * time.Second
	}
	return &Engine{store: s, gateway: gateway, paymentTimeout: paymentTimeout}
}

type Request struct {
	ShippingAddress string                `json:"shipping_address"`
	CustomerName    string                `json:"customer_name"`
	CustomerEmail   string                `json:"customer_email"`
	OrderNotes      string                `json:"order_notes"`
	Payment         models.PaymentRequest `json:"payment_info"`
}

// Result reports the persisted order plus the payment hand-off outcome.
// PaymentPending is true when the gateway call failed after the order
// committed: the order stands, payment must be retried via verification.
type Result struct {
	Order            *models.Order      `json:"order"`
	Items            []models.OrderItem `json:"items"`
	Totals           Totals             `json:"totals"`
	AuthorizationURL string             `json:"authorization_url,omitempty"`
	PaymentPending   bool               `json:"payment_pending"`
}

type VerifyResult struct {
	Success bool   `json:"success"`
	OrderID int    `json:"order_id,omitempty"`
	Message string `json:"message"`
}

// Line is one cart line priced at its live, in-transaction price.
type Line struct {
	ProductID int
	Name      string
	Quantity  int
	UnitPrice float64
}

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// ComputeTotals is the pure pricing step: no I/O, fully deterministic.
func ComputeTotals(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal += l.UnitPrice * float64(l.Quantity)
	}
	t.Shipping = FlatShippingFee
	if t.Subtotal >= FreeShippingThreshold {
		t.Shipping = 0
	}
	t.Tax = round2((t.Subtotal + t.Shipping) * TaxRate)
	t.Total = round2(t.Subtotal + t.Shipping + t.Tax)
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func validatePayment(p models.PaymentRequest) error {
	if p.Email == "" || p.Amount <= 0 {
		return models.ErrInvalidPaymentInfo
	}
	return nil
}

// Checkout converts the user's cart into an order.
//
// Everything up to and including the cart deletion happens in one
// transaction; stock and prices are re-read inside it, never taken from the
// request or a prior page view. The payment call runs strictly after commit
// so no database lock is held across the network.
func (e *Engine) Checkout(ctx context.Context, userID int, req Request) (*Result, error) {
	order := &models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		OrderNotes:      req.OrderNotes,
		PaymentMethod:   "paystack",
	}

	var items []models.OrderItem
	var totals Totals

	err := e.store.RunInTx(ctx, func(tx *sql.Tx) error {
		cart, err := e.store.CartItemsTx(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("reading cart: %w", err)
		}
		if len(cart) == 0 {
			return models.ErrEmptyCart
		}
		if err := validatePayment(req.Payment); err != nil {
			return err
		}

		lines := make([]Line, 0, len(cart))
		for _, c := range cart {
			product, err := e.store.ProductTx(ctx, tx, c.ProductID)
			if err != nil {
				return err
			}
			if product.StockQuantity < c.Quantity {
				return &models.InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   c.Quantity,
					Available:   product.StockQuantity,
				}
			}
			lines = append(lines, Line{
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  c.Quantity,
				UnitPrice: product.CurrentPrice,
			})
		}

		totals = ComputeTotals(lines)
		order.TotalAmount = totals.Total

		if err := e.store.InsertOrderTx(ctx, tx, order); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		items = items[:0]
		for _, l := range lines {
			// Guarded decrement: rolls everything back if stock moved since
			// the read above.
			if err := e.store.DecrementStockTx(ctx, tx, l.ProductID, l.Quantity); err != nil {
				return err
			}
			item := models.OrderItem{
				OrderID:     order.ID,
				ProductID:   l.ProductID,
				ProductName: l.Name,
				Quantity:    l.Quantity,
				PriceAtTime: l.UnitPrice,
			}
			if err := e.store.InsertOrderItemTx(ctx, tx, &item); err != nil {
				return fmt.Errorf("creating order item: %w", err)
			}
			items = append(items, item)
		}

		return e.store.ClearCartTx(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Order: order, Items: items, Totals: totals}

	// Payment hand-off. The order is already committed: a gateway failure
	// from here on downgrades the result, it does not undo the order.
	payCtx, cancel := context.WithTimeout(ctx, e.paymentTimeout)
	defer cancel()

	init, err := e.gateway.Initialize(payCtx, models.PaymentRequest{
		Email:       req.Payment.Email,
		Amount:      totals.Total,
		Reference:   e.paymentReference(order, req.Payment.Reference),
		CallbackURL: req.Payment.CallbackURL,
	})
	if err != nil {
		slog.Warn("Payment initiation failed, order left pending",
			"order_id", order.ID, "error", err)
		result.PaymentPending = true
		return result, nil
	}

	if err := e.store.AttachPaymentReference(ctx, order.ID, init.Reference); err != nil {
		slog.Error("Failed to attach payment reference", "order_id", order.ID, "error", err)
		result.PaymentPending = true
		return result, nil
	}
	order.PaymentReference = init.Reference
	result.AuthorizationURL = init.AuthorizationURL
	return result, nil
}

func (e *Engine) paymentReference(order *models.Order, requested string) string {
	if requested != "" {
		return requested
	}
	return fmt.Sprintf("order_%d_%s", order.ID, uuid.New().String())
}

// VerifyPayment confirms a gateway reference and, on success, moves the
// matching order from pending to confirmed. A failed verification mutates
// nothing.
func (e *Engine) VerifyPayment(ctx context.Context, userID int, reference string) (*VerifyResult, error) {
	payCtx, cancel := context.WithTimeout(ctx, e.paymentTimeout)
	defer cancel()

	ok, err := e.gateway.Verify(payCtx, reference)
	if err != nil {
		return nil, fmt.Errorf("payment verification: %w", err)
	}
	if !ok {
		return &VerifyResult{Success: false, Message: "Payment verification failed"}, nil
	}

	order, err := e.store.GetOrderByPaymentReference(ctx, userID, reference)
	if err != nil {
		return nil, err
	}

	// Re-verifying a reference already past pending is a no-op success, not
	// a transition conflict.
	switch order.Status {
	case models.OrderStatusConfirmed, models.OrderStatusShipped, models.OrderStatusDelivered:
		return &VerifyResult{Success: true, OrderID: order.ID, Message: "Payment already verified"}, nil
	}

	if err := e.store.TransitionOrderStatus(ctx, order.ID, models.OrderStatusConfirmed); err != nil {
		return nil, err
	}

	return &VerifyResult{Success: true, OrderID: order.ID, Message: "Payment verified successfully"}, nil
}
