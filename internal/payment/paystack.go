// Package payment wraps the Paystack transaction API in the two calls the
// checkout engine consumes: initialize and verify.
package payment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kofiasare/kantamanto/internal/models"
)

type Client struct {
	http     *resty.Client
	currency string
}

func NewClient(baseURL, secretKey, currency string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(secretKey).
		SetHeader("Content-Type", "application/json")

	return &Client{http: httpClient, currency: currency}
}

type initializePayload struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"` // subunits (pesewas/kobo)
	Currency    string         `json:"currency"`
	Reference   string         `json:"reference,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status string `json:"status"`
	} `json:"data"`
}

// Initialize starts a transaction for the given amount. Paystack takes
// amounts in currency subunits, so the major-unit amount is scaled by 100.
func (c *Client) Initialize(ctx context.Context, req models.PaymentRequest) (*models.PaymentInit, error) {
	var result initializeResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(initializePayload{
			Email:       req.Email,
			Amount:      int64(math.Round(req.Amount * 100)),
			Currency:    c.currency,
			Reference:   req.Reference,
			CallbackURL: req.CallbackURL,
		}).
		SetResult(&result).
		Post("/transaction/initialize")
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("paystack initialize: status %d: %s", resp.StatusCode(), resp.String())
	}
	if !result.Status {
		return nil, fmt.Errorf("paystack initialize rejected: %s", result.Message)
	}

	return &models.PaymentInit{
		Reference:        result.Data.Reference,
		AuthorizationURL: result.Data.AuthorizationURL,
		AccessCode:       result.Data.AccessCode,
	}, nil
}

// Verify reports whether the transaction behind reference succeeded.
func (c *Client) Verify(ctx context.Context, reference string) (bool, error) {
	var result verifyResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/transaction/verify/" + reference)
	if err != nil {
		return false, fmt.Errorf("paystack verify: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("paystack verify: status %d: %s", resp.StatusCode(), resp.String())
	}

	return result.Status && result.Data.Status == "success", nil
}
