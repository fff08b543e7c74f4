package pricing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kofiasare/kantamanto/internal/metrics"
	"github.com/kofiasare/kantamanto/internal/models"
	"github.com/kofiasare/kantamanto/internal/store"
)

// Scheduler is the owned background task that reprices the catalog on a
// fixed interval. It holds its own dependencies and lifecycle; nothing about
// it is process-global.
type Scheduler struct {
	store          *store.Store
	predictor      Predictor
	features       *FeatureSource
	interval       time.Duration
	predictTimeout time.Duration
	metrics        *metrics.PricingMetrics

	stop chan struct{}
	done chan struct{}
}

type CycleStats struct {
	Updated int
	Skipped int
	Failed  int
}

func NewScheduler(s *store.Store, predictor Predictor, interval, predictTimeout time.Duration, m *metrics.PricingMetrics) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if predictTimeout <= 0 {
		predictTimeout = 10 * time.Second
	}
	return &Scheduler{
		store:          s,
		predictor:      predictor,
		features:       &FeatureSource{Store: s},
		interval:       interval,
		predictTimeout: predictTimeout,
		metrics:        m,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start launches the repricing loop. The first cycle fires one interval
// after Start, not immediately.
func (s *Scheduler) Start() {
	go s.run()
	slog.Info("Repricing scheduler started", "interval", s.interval)
}

// Stop halts the loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	slog.Info("Repricing scheduler stopped")
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunCycle(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunCycle reprices every active product once. Each product is independent:
// a predictor failure or bad price skips that product and the cycle moves
// on. Only the final price write touches the database in a transaction, so
// a slow predictor never blocks a concurrent checkout.
func (s *Scheduler) RunCycle(ctx context.Context) CycleStats {
	start := time.Now()
	var stats CycleStats

	products, err := s.store.SnapshotActiveProducts(ctx)
	if err != nil {
		slog.Error("Repricing cycle could not snapshot products", "error", err)
		return stats
	}

	now := time.Now()
	for _, product := range products {
		switch err := s.repriceProduct(ctx, product, now); {
		case err == nil:
			stats.Updated++
		case errors.Is(err, errSkipped):
			stats.Skipped++
		default:
			slog.Error("Price write failed", "product_id", product.ID, "error", err)
			stats.Failed++
		}
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.Updated.Add(float64(stats.Updated))
		s.metrics.Skipped.Add(float64(stats.Skipped))
		s.metrics.Failed.Add(float64(stats.Failed))
		s.metrics.CycleDuration.Observe(elapsed.Seconds())
	}
	slog.Info("Repricing cycle finished",
		"products", len(products),
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", elapsed,
	)
	return stats
}

// errSkipped marks a product intentionally left at its current price.
var errSkipped = errors.New("repricing skipped")

func (s *Scheduler) repriceProduct(ctx context.Context, product models.Product, now time.Time) error {
	features := s.features.Assemble(ctx, product, now)

	predictCtx, cancel := context.WithTimeout(ctx, s.predictTimeout)
	price, err := s.predictor.Predict(predictCtx, features)
	cancel()
	if err != nil {
		slog.Warn("Predictor failed, keeping current price", "product_id", product.ID, "error", err)
		return errSkipped
	}
	if price <= 0 {
		slog.Warn("Predictor returned non-positive price, keeping current price",
			"product_id", product.ID, "price", price)
		return errSkipped
	}

	// Atomic write: current_price overwrite + one price_history row.
	// stock_quantity is never touched from this path.
	return s.store.SetProductPrice(ctx, product.ID, price, models.ReasonScheduledRepricing)
}
