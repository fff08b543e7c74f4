package checkout

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kofiasare/kantamanto/internal/models"
	"github.com/kofiasare/kantamanto/internal/store"
)

// fakeGateway is a scriptable stand-in for the payment provider.
type fakeGateway struct {
	mu        sync.Mutex
	initErr   error
	verifyOK  bool
	verifyErr error
	initCalls int
	lastInit  models.PaymentRequest
}

func (g *fakeGateway) Initialize(_ context.Context, req models.PaymentRequest) (*models.PaymentInit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	g.lastInit = req
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &models.PaymentInit{
		Reference:        req.Reference,
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		AccessCode:       "access_code",
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, _ string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyOK, g.verifyErr
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate("../../migrations"))
	t.Cleanup(func() { s.Close() })
	return s
}

func seedProduct(t *testing.T, s *store.Store, name string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:          name,
		Category:      "clothing",
		BasePrice:     price,
		CurrentPrice:  price,
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func seedUser(t *testing.T, s *store.Store, username string) int {
	t.Helper()
	id, err := s.CreateUser(context.Background(), username, username+"@example.com", models.RoleCustomer, "not-a-real-hash")
	require.NoError(t, err)
	return id
}

func testRequest(total float64) Request {
	return Request{
		ShippingAddress: "12 Oxford Street, Accra",
		CustomerName:    "Ama Serwaa",
		CustomerEmail:   "ama@example.com",
		Payment: models.PaymentRequest{
			Email:  "ama@example.com",
			Amount: total,
		},
	}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  Totals
	}{
		{
			name:  "below free shipping threshold",
			lines: []Line{{Quantity: 2, UnitPrice: 100}},
			want:  Totals{Subtotal: 200, Shipping: 50, Tax: 31.25, Total: 281.25},
		},
		{
			name:  "exactly at threshold ships free",
			lines: []Line{{Quantity: 2, UnitPrice: 500}},
			want:  Totals{Subtotal: 1000, Shipping: 0, Tax: 125, Total: 1125},
		},
		{
			name:  "above threshold ships free",
			lines: []Line{{Quantity: 1, UnitPrice: 1200}},
			want:  Totals{Subtotal: 1200, Shipping: 0, Tax: 150, Total: 1350},
		},
		{
			name: "multiple lines",
			lines: []Line{
				{Quantity: 3, UnitPrice: 40},
				{Quantity: 1, UnitPrice: 25.5},
			},
			want: Totals{Subtotal: 145.5, Shipping: 50, Tax: 24.44, Total: 219.94},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTotals(tt.lines))
		})
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, &fakeGateway{}, time.Second)
	userID := seedUser(t, s, "ama")

	_, err := engine.Checkout(context.Background(), userID, testRequest(100))
	assert.ErrorIs(t, err, models.ErrEmptyCart)
}

func TestCheckoutInvalidPayment(t *testing.T) {
	s := newTestStore(t)
	gateway := &fakeGateway{}
	engine := NewEngine(s, gateway, time.Second)
	ctx := context.Background()
	userID := seedUser(t, s, "ama")
	p := seedProduct(t, s, "Kente Scarf", 120, 10)
	require.NoError(t, s.AddToCart(ctx, userID, p.ID, 1))

	_, err := engine.Checkout(ctx, userID, Request{
		Payment: models.PaymentRequest{Email: "", Amount: 100},
	})
	assert.ErrorIs(t, err, models.ErrInvalidPaymentInfo)

	_, err = engine.Checkout(ctx, userID, Request{
		Payment: models.PaymentRequest{Email: "ama@example.com", Amount: 0},
	})
	assert.ErrorIs(t, err, models.ErrInvalidPaymentInfo)

	assert.Zero(t, gateway.initCalls, "gateway must not be called for invalid requests")

	items, err := s.GetCartItems(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, items, 1, "a rejected checkout leaves the cart intact")
}

func TestCheckoutEmptyCartReportedBeforePayment(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, &fakeGateway{}, time.Second)
	userID := seedUser(t, s, "ama")

	// Both defects at once: the empty cart wins.
	_, err := engine.Checkout(context.Background(), userID, Request{
		Payment: models.PaymentRequest{Email: "", Amount: 0},
	})
	assert.ErrorIs(t, err, models.ErrEmptyCart)
}

func TestCheckoutSuccess(t *testing.T) {
	s := newTestStore(t)
	gateway := &fakeGateway{}
	engine := NewEngine(s, gateway, time.Second)
	ctx := context.Background()
	userID := seedUser(t, s, "ama")
	p := seedProduct(t, s, "Kente Scarf", 120, 10)
	require.NoError(t, s.AddToCart(ctx, userID, p.ID, 2))

	result, err := engine.Checkout(ctx, userID, testRequest(281.25))
	require.NoError(t, err)

	assert.False(t, result.PaymentPending)
	assert.NotEmpty(t, result.AuthorizationURL)
	assert.Equal(t, Totals{Subtotal: 240, Shipping: 50, Tax: 36.25, Total: 326.25}, result.Totals)

	order, err := s.GetOrderByID(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 326.25, order.TotalAmount)
	assert.NotEmpty(t, order.PaymentReference)

	// Charged amount is the computed total, not what the client declared.
	assert.Equal(t, 326.25, gateway.lastInit.Amount)

	got, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.StockQuantity)

	items, err := s.GetCartItems(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, items, "cart must be cleared after checkout")

	orderItems, err := s.GetOrderItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, orderItems, 1)
	assert.Equal(t, 120.0, orderItems[0].PriceAtTime)
	assert.Equal(t, 2, orderItems[0].Quantity)
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, &fakeGateway{}, time.Second)
	ctx := context.Background()
	userID := seedUser(t, s, "ama")
	p := seedProduct(t, s, "Kente Scarf", 120, 5)
	inStock := seedProduct(t, s, "Batik Shirt", 90, 10)

	require.NoError(t, s.AddToCart(ctx, userID, inStock.ID, 1))
	require.NoError(t, s.AddToCart(ctx, userID, p.ID, 5))
	// Stock shrinks between add-to-cart and checkout.
	require.NoError(t, s.UpdateProductStock(ctx, p.ID, 3))

	var stockErr *models.InsufficientStockError
	_, err := engine.Checkout(ctx, userID, testRequest(690))
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, p.ID, stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Available)

	// Nothing moved: both stocks intact, cart intact, no orders.
	got, err := s.GetProductByID(ctx, inStock.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity)

	items, err := s.GetCartItems(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	orders, err := s.GetOrdersByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutConcurrentStockContention(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, &fakeGateway{}, time.Second)
	ctx := context.Background()
	p := seedProduct(t, s, "Kente Scarf", 120, 5)

	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	require.NoError(t, s.AddToCart(ctx, alice, p.ID, 4))
	require.NoError(t, s.AddToCart(ctx, bob, p.ID, 4))

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, userID := range []int{alice, bob} {
		wg.Add(1)
		go func(uid int) {
			defer wg.Done()
			_, err := engine.Checkout(ctx, uid, testRequest(530))
			results <- err
		}(userID)
	}
	wg.Wait()
	close(results)

	var successes, stockFailures int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			var stockErr *models.InsufficientStockError
			require.ErrorAs(t, err, &stockErr)
			stockFailures++
		}
	}
	assert.Equal(t, 1, successes, "only one order can cover the stock")
	assert.Equal(t, 1, stockFailures)

	got, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockQuantity, "stock must never oversell or go negative")
}

func TestCheckoutPaymentFailureKeepsOrder(t *testing.T) {
	s := newTestStore(t)
	gateway := &fakeGateway{initErr: errors.New("gateway unreachable")}
	engine := NewEngine(s, gateway, time.Second)
	ctx := context.Background()
	userID := seedUser(t, s, "ama")
	p := seedProduct(t, s, "Kente Scarf", 120, 10)
	require.NoError(t, s.AddToCart(ctx, userID, p.ID, 1))

	result, err := engine.Checkout(ctx, userID, testRequest(191.25))
	require.NoError(t, err, "a gateway failure after commit is not a checkout failure")

	assert.True(t, result.PaymentPending)
	assert.Empty(t, result.AuthorizationURL)

	order, err := s.GetOrderByID(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	got, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.StockQuantity, "the committed decrement stands")
}

func TestOrderItemPriceSurvivesReprice(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, &fakeGateway{}, time.Second)
	ctx := context.Background()
	userID := seedUser(t, s, "ama")
	p := seedProduct(t, s, "Kente Scarf", 120, 10)
	require.NoError(t, s.AddToCart(ctx, userID, p.ID, 1))

	result, err := engine.Checkout(ctx, userID, testRequest(191.25))
	require.NoError(t, err)

	require.NoError(t, s.SetProductPrice(ctx, p.ID, 200, models.ReasonScheduledRepricing))

	items, err := s.GetOrderItems(ctx, result.Order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 120.0, items[0].PriceAtTime, "historical orders keep the price paid")
}

func TestVerifyPaymentConfirmsOrder(t *testing.T) {
	s := newTestStore(t)
	gateway := &fakeGateway{verifyOK: true}
	engine := NewEngine(s, gateway, time.Second)
	ctx := context.Background()
	userID := seedUser(t, s, "ama")
	p := seedProduct(t, s, "Kente Scarf", 120, 10)
	require.NoError(t, s.AddToCart(ctx, userID, p.ID, 1))

	result, err := engine.Checkout(ctx, userID, testRequest(191.25))
	require.NoError(t, err)
	reference := result.Order.PaymentReference
	require.NotEmpty(t, reference)

	verify, err := engine.VerifyPayment(ctx, userID, reference)
	require.NoError(t, err)
	assert.True(t, verify.Success)
	assert.Equal(t, result.Order.ID, verify.OrderID)

	order, err := s.GetOrderByID(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestVerifyPaymentIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	gateway := &fakeGateway{verifyOK: true}
	engine := NewEngine(s, gateway, time.Second)
	ctx := context.Background()
	userID := seedUser(t, s, "ama")
	p := seedProduct(t, s, "Kente Scarf", 120, 10)
	require.NoError(t, s.AddToCart(ctx, userID, p.ID, 1))

	result, err := engine.Checkout(ctx, userID, testRequest(191.25))
	require.NoError(t, err)
	reference := result.Order.PaymentReference

	first, err := engine.VerifyPayment(ctx, userID, reference)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := engine.VerifyPayment(ctx, userID, reference)
	require.NoError(t, err, "re-verifying a confirmed order is not a conflict")
	assert.True(t, second.Success)
	assert.Equal(t, result.Order.ID, second.OrderID)

	// A shipped order still verifies as paid.
	require.NoError(t, s.TransitionOrderStatus(ctx, result.Order.ID, models.OrderStatusShipped))
	third, err := engine.VerifyPayment(ctx, userID, reference)
	require.NoError(t, err)
	assert.True(t, third.Success)

	order, err := s.GetOrderByID(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, order.Status, "re-verification must not move the status")
}

func TestVerifyPaymentFailureMutatesNothing(t *testing.T) {
	s := newTestStore(t)
	gateway := &fakeGateway{verifyOK: false}
	engine := NewEngine(s, gateway, time.Second)
	ctx := context.Background()
	userID := seedUser(t, s, "ama")
	p := seedProduct(t, s, "Kente Scarf", 120, 10)
	require.NoError(t, s.AddToCart(ctx, userID, p.ID, 1))

	result, err := engine.Checkout(ctx, userID, testRequest(191.25))
	require.NoError(t, err)

	verify, err := engine.VerifyPayment(ctx, userID, result.Order.PaymentReference)
	require.NoError(t, err)
	assert.False(t, verify.Success)

	order, err := s.GetOrderByID(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status, "failed verification leaves the order pending")
}

func TestVerifyPaymentUnknownReference(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, &fakeGateway{verifyOK: true}, time.Second)
	userID := seedUser(t, s, "ama")

	_, err := engine.VerifyPayment(context.Background(), userID, "order_0_missing")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestVerifyPaymentScopedToUser(t *testing.T) {
	s := newTestStore(t)
	gateway := &fakeGateway{verifyOK: true}
	engine := NewEngine(s, gateway, time.Second)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	p := seedProduct(t, s, "Kente Scarf", 120, 10)
	require.NoError(t, s.AddToCart(ctx, alice, p.ID, 1))

	result, err := engine.Checkout(ctx, alice, testRequest(191.25))
	require.NoError(t, err)

	_, err = engine.VerifyPayment(ctx, bob, result.Order.PaymentReference)
	assert.ErrorIs(t, err, models.ErrOrderNotFound, "another user's reference must not resolve")
}
