package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kofiasare/kantamanto/internal/models"
)

func TestInitializeScalesAmountToSubunits(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		require.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         "order_1_ref",
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_secret", "GHS", time.Second)
	init, err := client.Initialize(context.Background(), models.PaymentRequest{
		Email:     "ama@example.com",
		Amount:    326.25,
		Reference: "order_1_ref",
	})
	require.NoError(t, err)

	assert.Equal(t, "order_1_ref", init.Reference)
	assert.Equal(t, "https://checkout.paystack.com/abc123", init.AuthorizationURL)

	// 326.25 GHS -> 32625 pesewas
	assert.Equal(t, float64(32625), captured["amount"])
	assert.Equal(t, "GHS", captured["currency"])
	assert.Equal(t, "ama@example.com", captured["email"])
}

func TestInitializeRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid key",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_bad", "GHS", time.Second)
	_, err := client.Initialize(context.Background(), models.PaymentRequest{
		Email:  "ama@example.com",
		Amount: 10,
	})
	assert.ErrorContains(t, err, "Invalid key")
}

func TestInitializeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_secret", "GHS", time.Second)
	_, err := client.Initialize(context.Background(), models.PaymentRequest{
		Email:  "ama@example.com",
		Amount: 10,
	})
	assert.ErrorContains(t, err, "status 502")
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name      string
		apiStatus bool
		txnStatus string
		want      bool
	}{
		{"successful charge", true, "success", true},
		{"failed charge", true, "failed", false},
		{"abandoned charge", true, "abandoned", false},
		{"api rejection", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/transaction/verify/order_1_ref", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"status": tt.apiStatus,
					"data":   map[string]any{"status": tt.txnStatus},
				})
			}))
			defer server.Close()

			client := NewClient(server.URL, "sk_test_secret", "GHS", time.Second)
			ok, err := client.Verify(context.Background(), "order_1_ref")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
