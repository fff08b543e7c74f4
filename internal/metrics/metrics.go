package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckoutMetrics counts checkout outcomes by result: "success" or
// "failure".
type CheckoutMetrics struct {
	Checkouts *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kantamanto",
		Subsystem: "checkout",
		Name:      "orders_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"result"})

	reg.MustRegister(checkouts)
	return &CheckoutMetrics{Checkouts: checkouts}
}

// PricingMetrics tracks repricing cycles.
type PricingMetrics struct {
	Updated       prometheus.Counter
	Skipped       prometheus.Counter
	Failed        prometheus.Counter
	CycleDuration prometheus.Histogram
}

func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	updated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kantamanto",
		Subsystem: "repricing",
		Name:      "products_updated_total",
		Help:      "Products whose price was overwritten by a repricing cycle.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kantamanto",
		Subsystem: "repricing",
		Name:      "products_skipped_total",
		Help:      "Products left unchanged (predictor error or non-positive price).",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kantamanto",
		Subsystem: "repricing",
		Name:      "products_failed_total",
		Help:      "Products whose price write failed.",
	})
	cycleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kantamanto",
		Subsystem: "repricing",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of a full repricing cycle.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	})

	reg.MustRegister(updated, skipped, failed, cycleDuration)
	return &PricingMetrics{Updated: updated, Skipped: skipped, Failed: failed, CycleDuration: cycleDuration}
}

// Handler exposes the given registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
