package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kofiasare/kantamanto/internal/models"
)

// Predictor maps a feature vector to a recommended price. Implementations
// must treat it as a pure call: no side effects on the store.
type Predictor interface {
	Predict(ctx context.Context, features models.FeatureVector) (float64, error)
}

// HTTPPredictor talks to the model-serving service.
type HTTPPredictor struct {
	http *resty.Client
}

func NewHTTPPredictor(baseURL string, timeout time.Duration) *HTTPPredictor {
	return &HTTPPredictor{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type predictResponse struct {
	Price float64 `json:"price"`
}

func (p *HTTPPredictor) Predict(ctx context.Context, features models.FeatureVector) (float64, error) {
	var result predictResponse

	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(features).
		SetResult(&result).
		Post("/predict")
	if err != nil {
		return 0, fmt.Errorf("predictor call: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("predictor call: status %d: %s", resp.StatusCode(), resp.String())
	}

	return result.Price, nil
}

// PredictorFunc adapts a plain function to the Predictor interface.
type PredictorFunc func(ctx context.Context, features models.FeatureVector) (float64, error)

func (f PredictorFunc) Predict(ctx context.Context, features models.FeatureVector) (float64, error) {
	return f(ctx, features)
}
