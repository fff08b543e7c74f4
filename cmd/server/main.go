package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kofiasare/kantamanto/internal/checkout"
	"github.com/kofiasare/kantamanto/internal/config"
	"github.com/kofiasare/kantamanto/internal/handlers"
	"github.com/kofiasare/kantamanto/internal/metrics"
	"github.com/kofiasare/kantamanto/internal/payment"
	"github.com/kofiasare/kantamanto/internal/pricing"
	"github.com/kofiasare/kantamanto/internal/store"
)

func main() {
	// Configure slog to output DEBUG level messages
	// This should be done as early as possible in main
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	// Using TextHandler for console readability; for production JSONHandler might be preferred.
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// A missing .env file is fine, the environment wins either way.
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env")
	}

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Init DB
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run Migrations
	if err := db.Migrate(cfg.MigrationsDir); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		slog.Error("Failed to create upload directory", "error", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	// 3. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKeyBytes)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure // Configurable for production
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 4. Metrics
	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	pricingMetrics := metrics.NewPricingMetrics(registry)

	// 5. Payment gateway and checkout engine
	gateway := payment.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.PaystackCurrency, cfg.PaymentTimeout)
	engine := checkout.NewEngine(db, gateway, cfg.PaymentTimeout)

	// 6. Repricing scheduler
	predictor := pricing.NewHTTPPredictor(cfg.PredictorURL, cfg.PredictorTimeout)
	scheduler := pricing.NewScheduler(db, predictor, cfg.RepricingInterval, cfg.PredictorTimeout, pricingMetrics)
	scheduler.Start()
	defer scheduler.Stop()

	// 7. Setup Handlers
	authHandler := &handlers.AuthHandler{
		Store:        db,
		SessionStore: sessionStore,
	}
	productHandler := &handlers.ProductHandler{
		Store:     db,
		UploadDir: cfg.UploadDir,
	}
	cartHandler := &handlers.CartHandler{
		Store: db,
	}
	orderHandler := &handlers.OrderHandler{
		Store:   db,
		Engine:  engine,
		Metrics: checkoutMetrics,
	}
	adminHandler := &handlers.AdminHandler{
		Store:     db,
		Scheduler: scheduler,
	}

	mux := http.NewServeMux()

	// Static Files
	fileServer := http.FileServer(http.Dir("./static"))
	mux.Handle("/static/", http.StripPrefix("/static", fileServer))

	// Rate Limiter for login attempts (1 request per second per IP)
	rateLimiter := handlers.NewRateLimiter(1 * time.Second)

	// Public Routes
	mux.HandleFunc("GET /api/csrf", authHandler.CSRFToken)
	mux.HandleFunc("POST /api/auth/login", rateLimiter.Middleware(authHandler.Login))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	mux.HandleFunc("GET /api/products", productHandler.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", productHandler.GetProduct)
	mux.HandleFunc("GET /api/products/{id}/price-history", productHandler.GetPriceHistory)

	// Customer Routes
	mux.HandleFunc("GET /api/cart", authHandler.RequireUser(cartHandler.GetCart))
	mux.HandleFunc("POST /api/cart", authHandler.RequireUser(cartHandler.AddToCart))
	mux.HandleFunc("PUT /api/cart/{id}", authHandler.RequireUser(cartHandler.UpdateCartItem))
	mux.HandleFunc("DELETE /api/cart/{id}", authHandler.RequireUser(cartHandler.RemoveCartItem))
	mux.HandleFunc("DELETE /api/cart", authHandler.RequireUser(cartHandler.ClearCart))

	mux.HandleFunc("POST /api/orders/checkout", authHandler.RequireUser(orderHandler.Checkout))
	mux.HandleFunc("GET /api/orders/verify/{reference}", authHandler.RequireUser(orderHandler.VerifyPayment))
	mux.HandleFunc("GET /api/orders", authHandler.RequireUser(orderHandler.ListOrders))
	mux.HandleFunc("GET /api/orders/{id}", authHandler.RequireUser(orderHandler.GetOrder))

	// Admin Routes
	mux.HandleFunc("GET /api/admin/dashboard", authHandler.RequireAdmin(adminHandler.Dashboard))
	mux.HandleFunc("GET /api/admin/price-changes", authHandler.RequireAdmin(adminHandler.RecentPriceChanges))
	mux.HandleFunc("POST /api/admin/repricing/run", authHandler.RequireAdmin(adminHandler.RunRepricing))

	mux.HandleFunc("POST /api/admin/products", authHandler.RequireAdmin(productHandler.CreateProduct))
	mux.HandleFunc("PUT /api/admin/products/{id}", authHandler.RequireAdmin(productHandler.UpdateProduct))
	mux.HandleFunc("DELETE /api/admin/products/{id}", authHandler.RequireAdmin(productHandler.DeactivateProduct))
	mux.HandleFunc("PUT /api/admin/products/{id}/stock", authHandler.RequireAdmin(productHandler.RestockProduct))
	mux.HandleFunc("PUT /api/admin/products/{id}/price", authHandler.RequireAdmin(productHandler.SetPrice))
	mux.HandleFunc("POST /api/admin/products/{id}/competitor-prices", authHandler.RequireAdmin(productHandler.SaveCompetitorPrice))
	mux.HandleFunc("POST /api/admin/products/{id}/image", authHandler.RequireAdmin(productHandler.UploadImage))

	mux.HandleFunc("GET /api/admin/orders", authHandler.RequireAdmin(orderHandler.ListAllOrders))
	mux.HandleFunc("PUT /api/admin/orders/{id}/status", authHandler.RequireAdmin(orderHandler.UpdateOrderStatus))

	mux.Handle("GET /metrics", metrics.Handler(registry))

	// 8. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKeyBytes,
		csrf.Secure(cfg.CookieSecure), // Configurable for production
		// Trust local development origins
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)

	// Wrap the router with middleware chain
	// Chain: Logger -> Security Headers -> CSRF -> Mux
	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			CSRF(mux),
		),
	)

	// 9. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	// Create a channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Goroutine to start the server
	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-stop

	slog.Info("Shutting down server gracefully...")

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}
