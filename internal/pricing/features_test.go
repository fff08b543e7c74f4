package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kofiasare/kantamanto/internal/models"
)

func TestSeasonalityFactor(t *testing.T) {
	assert.Equal(t, 1.4, SeasonalityFactor(time.December), "December is the peak")
	assert.Equal(t, 0.7, SeasonalityFactor(time.February), "February is the trough")
	assert.Equal(t, 1.0, SeasonalityFactor(time.April))
}

func TestDemandScore(t *testing.T) {
	// conversion 0.10, engagement 0.30 -> 0.10*0.6 + 0.30*0.4
	assert.InDelta(t, 0.18, demandScore(0.10, 0.30), 1e-9)

	// Placeholder rates blend to the neutral signal.
	assert.Equal(t, 1.0, demandScore(defaultConversionRate, defaultEngagement))
}

func TestAssembleFeatureVector(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "Kente Scarf", 120, 7)

	source := &FeatureSource{Store: s}
	now := time.Date(2026, time.December, 15, 12, 0, 0, 0, time.UTC)

	features := source.Assemble(ctx, *p, now)
	assert.Equal(t, 120.0, features.BasePrice)
	assert.Equal(t, 120.0, features.CompetitorAvgPrice, "no observations falls back to base price")
	assert.Equal(t, 1.0, features.DemandScore)
	assert.Equal(t, 7.0, features.StockLevel)
	assert.Equal(t, 1.4, features.SeasonalityFactor)
	assert.Equal(t, 1.0, features.TimeSinceLastPriceChange)

	require.NoError(t, s.SaveCompetitorPrice(ctx, &models.CompetitorPrice{ProductID: p.ID, CompetitorName: "Makola Mart", Price: 100}))
	require.NoError(t, s.SaveCompetitorPrice(ctx, &models.CompetitorPrice{ProductID: p.ID, CompetitorName: "Osu Styles", Price: 140}))

	features = source.Assemble(ctx, *p, now)
	assert.Equal(t, 120.0, features.CompetitorAvgPrice)
}
