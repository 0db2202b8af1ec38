package mock

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shoplane/payments/internal/config"
	"github.com/shoplane/payments/internal/provider/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T) domain.Provider {
	t.Helper()
	p, err := NewFactory(config.Config{Environment: "development"}, zap.NewNop()).New()
	require.NoError(t, err)
	return p
}

func TestFactoryRefusesProduction(t *testing.T) {
	_, err := NewFactory(config.Config{Environment: "production"}, zap.NewNop()).New()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewFactory(config.Config{
		Environment:           "production",
		AllowMockInProduction: true,
	}, zap.NewNop()).New()
	assert.NoError(t, err)
}

func TestProcessPayment(t *testing.T) {
	p := newTestProvider(t)
	req := domain.ProcessPaymentRequest{
		Amount:   2500,
		Currency: "usd",
		Metadata: map[string]any{"order_id": "o-1"},
	}

	// The decline rate is random; every outcome must still be well formed and
	// declines must come back as results, not errors.
	sawSuccess := false
	for i := 0; i < 50; i++ {
		result, err := p.ProcessPayment(context.Background(), req)
		require.NoError(t, err)
		if result.Success {
			sawSuccess = true
			assert.True(t, strings.HasPrefix(result.TransactionID, "mock_tx_"))
			assert.Equal(t, domain.StatusCompleted, result.Status)
			assert.Equal(t, "USD", result.Currency)
			assert.EqualValues(t, 2500, result.Amount)
		} else {
			assert.Equal(t, domain.StatusFailed, result.Status)
			assert.NotEmpty(t, result.ErrorMessage)
		}
	}
	assert.True(t, sawSuccess)
}

func TestProcessPaymentRejectsNonPositiveAmount(t *testing.T) {
	p := newTestProvider(t)

	result, err := p.ProcessPayment(context.Background(), domain.ProcessPaymentRequest{
		Amount:   0,
		Currency: "usd",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, domain.StatusFailed, result.Status)
}

func TestProcessPaymentHonorsContext(t *testing.T) {
	p := newTestProvider(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := p.ProcessPayment(ctx, domain.ProcessPaymentRequest{Amount: 100, Currency: "usd"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRefundPayment(t *testing.T) {
	p := newTestProvider(t)

	amount := int64(500)
	result, err := p.RefundPayment(context.Background(), "mock_tx_abc", &amount)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.RefundID, "mock_rf_"))
	assert.EqualValues(t, 500, result.Amount)

	result, err = p.RefundPayment(context.Background(), "  ", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestNormalizeWebhook(t *testing.T) {
	p := newTestProvider(t)

	hook, err := p.NormalizeWebhook([]byte(`{
		"event": "payment.success",
		"event_id": "evt-1",
		"transaction_id": "mock_tx_abc",
		"amount": 100,
		"currency": "USD",
		"status": "completed"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "payment.success", hook.Event)
	assert.Equal(t, "mock_tx_abc", hook.TransactionID)

	_, err = p.NormalizeWebhook([]byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = p.NormalizeWebhook([]byte(`{"event": "payment.success"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestVerifyWebhookAlwaysAccepts(t *testing.T) {
	p := newTestProvider(t)
	assert.True(t, p.VerifyWebhook([]byte(`{}`), "anything"))
}
