package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shoplane/payments/internal/config"
	"github.com/shoplane/payments/internal/event"
	"github.com/shoplane/payments/internal/provider/domain"
	"github.com/shoplane/payments/internal/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, baseURL string) domain.Provider {
	t.Helper()
	p, err := NewFactory(config.Config{
		GatewayBaseURL:       baseURL,
		GatewayAPIKey:        "sk_test_123",
		GatewayWebhookSecret: "whsec_test",
	}, zap.NewNop()).New()
	require.NoError(t, err)
	return p
}

func TestFactoryRequiresCredentials(t *testing.T) {
	cases := []config.Config{
		{GatewayAPIKey: "k", GatewayWebhookSecret: "s"},
		{GatewayBaseURL: "https://gw.example.com", GatewayWebhookSecret: "s"},
		{GatewayBaseURL: "https://gw.example.com", GatewayAPIKey: "k"},
	}
	for i, cfg := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			_, err := NewFactory(cfg, zap.NewNop()).New()
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestProcessPaymentStatusMapping(t *testing.T) {
	cases := []struct {
		gatewayStatus string
		wantStatus    string
		wantSuccess   bool
	}{
		{"captured", domain.StatusCompleted, true},
		{"succeeded", domain.StatusCompleted, true},
		{"authorized", domain.StatusPending, true},
		{"processing", domain.StatusPending, true},
		{"declined", domain.StatusFailed, false},
	}

	for _, tc := range cases {
		t.Run(tc.gatewayStatus, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/payments", r.URL.Path)
				assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
				json.NewEncoder(w).Encode(map[string]any{
					"id":       "gw_tx_1",
					"amount":   1500,
					"currency": "USD",
					"status":   tc.gatewayStatus,
				})
			}))
			defer srv.Close()

			p := newTestProvider(t, srv.URL)
			result, err := p.ProcessPayment(context.Background(), domain.ProcessPaymentRequest{
				Amount:   1500,
				Currency: "usd",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantSuccess, result.Success)
			assert.Equal(t, tc.wantStatus, result.Status)
			assert.Equal(t, "gw_tx_1", result.TransactionID)
		})
	}
}

func TestProcessPaymentUnmappedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "gw_tx_1", "status": "weird"})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	result, err := p.ProcessPayment(context.Background(), domain.ProcessPaymentRequest{Amount: 100, Currency: "usd"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "weird")
}

func TestProcessPaymentDecline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "card_declined", "message": "insufficient funds"},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	result, err := p.ProcessPayment(context.Background(), domain.ProcessPaymentRequest{Amount: 100, Currency: "usd"})

	// Declines are results, never Go errors.
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "insufficient funds", result.ErrorMessage)
}

func TestProcessPaymentTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	result, err := p.ProcessPayment(context.Background(), domain.ProcessPaymentRequest{Amount: 100, Currency: "usd"})

	// Transport failures also come back as failed results so the orchestrator
	// can persist a transaction row.
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestRefundPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/gw_tx_1/refunds", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 700, body["amount"])

		json.NewEncoder(w).Encode(map[string]any{
			"id":     "gw_rf_1",
			"amount": 700,
			"status": "succeeded",
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	amount := int64(700)
	result, err := p.RefundPayment(context.Background(), "gw_tx_1", &amount)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "gw_rf_1", result.RefundID)
	assert.EqualValues(t, 700, result.Amount)
}

func TestVerifyWebhook(t *testing.T) {
	p := newTestProvider(t, "https://gw.example.com")

	payload := []byte(`{"id":"evt_1","type":"payment.captured","data":{"payment":{"id":"gw_tx_1","status":"captured"}}}`)
	sig, err := signature.Sign(payload, "whsec_test")
	require.NoError(t, err)

	assert.True(t, p.VerifyWebhook(payload, sig))
	assert.False(t, p.VerifyWebhook(payload, "deadbeef"))
	assert.False(t, p.VerifyWebhook(nil, sig))
	assert.False(t, p.VerifyWebhook(payload, ""))
}

func TestNormalizeWebhook(t *testing.T) {
	p := newTestProvider(t, "https://gw.example.com")

	hook, err := p.NormalizeWebhook([]byte(`{
		"id": "evt_1",
		"type": "payment.captured",
		"data": {"payment": {"id": "gw_tx_1", "amount": 900, "currency": "usd", "status": "captured"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, event.PaymentSuccess, hook.Event)
	assert.Equal(t, "evt_1", hook.EventID)
	assert.Equal(t, "gw_tx_1", hook.TransactionID)
	assert.Equal(t, "USD", hook.Currency)
	assert.Equal(t, domain.StatusCompleted, hook.Status)

	_, err = p.NormalizeWebhook([]byte(`{"id":"evt_2","type":"customer.updated","data":{"payment":{"id":"gw_tx_1","status":"captured"}}}`))
	assert.ErrorIs(t, err, domain.ErrEventIgnored)

	_, err = p.NormalizeWebhook([]byte(`{"type":"payment.captured"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = p.NormalizeWebhook([]byte(`garbage`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}
