package pricing

import (
	"context"
	"log/slog"
	"time"

	"github.com/kofiasare/kantamanto/internal/models"
	"github.com/kofiasare/kantamanto/internal/store"
)

// Monthly seasonality multipliers; December peaks, February troughs.
var seasonalFactors = map[time.Month]float64{
	time.January: 0.8, time.February: 0.7, time.March: 0.9,
	time.April: 1.0, time.May: 1.1, time.June: 1.2,
	time.July: 1.3, time.August: 1.2, time.September: 1.1,
	time.October: 1.0, time.November: 1.2, time.December: 1.4,
}

func SeasonalityFactor(month time.Month) float64 {
	if f, ok := seasonalFactors[month]; ok {
		return f
	}
	return 1.0
}

// demandScore blends conversion and engagement rates into the demand
// signal. Until view tracking exists the rates are placeholders, but the
// blend is the one the predictor was trained against.
func demandScore(conversionRate, engagementRate float64) float64 {
	return conversionRate*0.6 + engagementRate*0.4
}

// Defaults used where the store has no behavioural signal to offer yet.
const (
	defaultEngagement         = 1.0
	defaultConversionRate     = 1.0
	defaultDaysSinceRepricing = 1.0
)

// FeatureSource assembles the predictor's input vector from the store.
type FeatureSource struct {
	Store *store.Store
}

// Assemble builds the feature vector for one product. Signals that cannot be
// sourced fall back to placeholders rather than failing the product: a
// repricing cycle should never die on missing analytics.
func (f *FeatureSource) Assemble(ctx context.Context, p models.Product, now time.Time) models.FeatureVector {
	competitorAvg, err := f.Store.CompetitorAvgPrice(ctx, p.ID)
	if err != nil || competitorAvg <= 0 {
		if err != nil {
			slog.Warn("Competitor average lookup failed, using base price", "product_id", p.ID, "error", err)
		}
		competitorAvg = p.BasePrice
	}

	sinceChange := defaultDaysSinceRepricing
	if days, ok, err := f.Store.DaysSinceLastPriceChange(ctx, p.ID); err == nil && ok {
		sinceChange = days
	}

	return models.FeatureVector{
		BasePrice:                p.BasePrice,
		CompetitorAvgPrice:       competitorAvg,
		DemandScore:              demandScore(defaultConversionRate, defaultEngagement),
		StockLevel:               float64(p.StockQuantity),
		SeasonalityFactor:        SeasonalityFactor(now.Month()),
		UserEngagement:           defaultEngagement,
		ConversionRate:           defaultConversionRate,
		TimeSinceLastPriceChange: sinceChange,
	}
}
