package mock

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shoplane/payments/internal/config"
	"github.com/shoplane/payments/internal/provider/domain"
	"go.uber.org/zap"
)

const (
	minDelay = 100 * time.Millisecond
	maxDelay = 400 * time.Millisecond

	// Simulated decline rate. Roughly one in ten payments fails.
	successRate = 0.9
)

type Factory struct {
	cfg config.Config
	log *zap.Logger
}

func NewFactory(cfg config.Config, log *zap.Logger) *Factory {
	return &Factory{cfg: cfg, log: log}
}

func (f *Factory) Provider() string {
	return config.ProviderMock
}

func (f *Factory) New() (domain.Provider, error) {
	if f.cfg.IsProduction() && !f.cfg.AllowMockInProduction {
		return nil, domain.ErrInvalidConfig
	}
	return &Provider{log: f.log.Named("provider.mock")}, nil
}

// Provider simulates a payment gateway: bounded random latency, a fixed
// success rate, and locally generated transaction ids. Webhook verification
// always passes; the factory refuses to build it in production.
type Provider struct {
	log *zap.Logger
}

func (p *Provider) Name() string { return config.ProviderMock }

func (p *Provider) ProcessPayment(ctx context.Context, req domain.ProcessPaymentRequest) (domain.PaymentResult, error) {
	if err := p.delay(ctx); err != nil {
		return domain.PaymentResult{}, err
	}

	if req.Amount <= 0 {
		return domain.PaymentResult{
			Success:      false,
			Amount:       req.Amount,
			Currency:     req.Currency,
			Status:       domain.StatusFailed,
			ErrorMessage: "amount must be positive",
		}, nil
	}

	if rand.Float64() >= successRate {
		return domain.PaymentResult{
			Success:      false,
			Amount:       req.Amount,
			Currency:     req.Currency,
			Status:       domain.StatusFailed,
			ErrorMessage: "card declined (simulated)",
		}, nil
	}

	txID := "mock_tx_" + uuid.NewString()
	p.log.Debug("simulated payment approved",
		zap.String("transaction_id", txID),
		zap.Int64("amount", req.Amount),
	)

	return domain.PaymentResult{
		Success:       true,
		TransactionID: txID,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
		Status:        domain.StatusCompleted,
		Metadata:      req.Metadata,
	}, nil
}

func (p *Provider) RefundPayment(ctx context.Context, transactionID string, amount *int64) (domain.RefundResult, error) {
	if err := p.delay(ctx); err != nil {
		return domain.RefundResult{}, err
	}

	if strings.TrimSpace(transactionID) == "" {
		return domain.RefundResult{
			Success:      false,
			Status:       domain.StatusFailed,
			ErrorMessage: "missing transaction id",
		}, nil
	}

	var refunded int64
	if amount != nil {
		refunded = *amount
	}

	return domain.RefundResult{
		Success:  true,
		RefundID: "mock_rf_" + uuid.NewString(),
		Amount:   refunded,
		Status:   domain.StatusCompleted,
	}, nil
}

// VerifyWebhook accepts everything. The factory guard keeps this provider out
// of production.
func (p *Provider) VerifyWebhook(payload []byte, signature string) bool {
	return true
}

func (p *Provider) NormalizeWebhook(payload []byte) (domain.WebhookEvent, error) {
	var event domain.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.WebhookEvent{}, domain.ErrInvalidPayload
	}
	if event.Event == "" || event.TransactionID == "" {
		return domain.WebhookEvent{}, domain.ErrInvalidPayload
	}
	return event, nil
}

func (p *Provider) delay(ctx context.Context) error {
	d := minDelay + time.Duration(rand.Int63n(int64(maxDelay-minDelay)))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
