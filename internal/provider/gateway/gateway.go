package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shoplane/payments/internal/config"
	"github.com/shoplane/payments/internal/event"
	"github.com/shoplane/payments/internal/provider/domain"
	"github.com/shoplane/payments/internal/signature"
	"go.uber.org/zap"
)

// statusTable maps the gateway's status vocabulary onto the canonical set.
// Unknown statuses are never inferred; they surface as failed results with
// the raw status in the error message.
var statusTable = map[string]string{
	"authorized": domain.StatusPending,
	"processing": domain.StatusPending,
	"captured":   domain.StatusCompleted,
	"succeeded":  domain.StatusCompleted,
	"declined":   domain.StatusFailed,
	"failed":     domain.StatusFailed,
	"canceled":   domain.StatusFailed,
}

// eventTable maps gateway webhook types onto the domain event enumeration.
var eventTable = map[string]string{
	"payment.captured": event.PaymentSuccess,
	"payment.failed":   event.PaymentFailed,
	"payment.refunded": event.PaymentRefunded,
	"payment.canceled": event.PaymentCancelled,
	"payment.pending":  event.PaymentPending,
}

type Factory struct {
	cfg config.Config
	log *zap.Logger
}

func NewFactory(cfg config.Config, log *zap.Logger) *Factory {
	return &Factory{cfg: cfg, log: log}
}

func (f *Factory) Provider() string {
	return config.ProviderGateway
}

// New fails fast on missing credentials rather than running insecurely.
func (f *Factory) New() (domain.Provider, error) {
	baseURL := strings.TrimRight(f.cfg.GatewayBaseURL, "/")
	if baseURL == "" || f.cfg.GatewayAPIKey == "" || f.cfg.GatewayWebhookSecret == "" {
		return nil, domain.ErrInvalidConfig
	}

	return &Provider{
		log:           f.log.Named("provider.gateway"),
		baseURL:       baseURL,
		apiKey:        f.cfg.GatewayAPIKey,
		webhookSecret: f.cfg.GatewayWebhookSecret,
		client:        &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Provider delegates to the external payment gateway's REST API.
type Provider struct {
	log           *zap.Logger
	baseURL       string
	apiKey        string
	webhookSecret string
	client        *http.Client
}

func (p *Provider) Name() string { return config.ProviderGateway }

type gatewayPayment struct {
	ID       string         `json:"id"`
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
}

type gatewayError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) ProcessPayment(ctx context.Context, req domain.ProcessPaymentRequest) (domain.PaymentResult, error) {
	payload := map[string]any{
		"amount":      req.Amount,
		"currency":    strings.ToUpper(req.Currency),
		"description": req.Description,
		"customer_id": req.CustomerID,
		"metadata":    req.Metadata,
	}

	var payment gatewayPayment
	declined, err := p.call(ctx, http.MethodPost, "/v1/payments", payload, &payment)
	if err != nil {
		// Transport and decoding failures are still payment failures to the
		// caller; the orchestrator persists them.
		return domain.PaymentResult{
			Success:      false,
			Amount:       req.Amount,
			Currency:     strings.ToUpper(req.Currency),
			Status:       domain.StatusFailed,
			ErrorMessage: err.Error(),
		}, nil
	}
	if declined != "" {
		return domain.PaymentResult{
			Success:      false,
			Amount:       req.Amount,
			Currency:     strings.ToUpper(req.Currency),
			Status:       domain.StatusFailed,
			ErrorMessage: declined,
		}, nil
	}

	status, ok := statusTable[strings.ToLower(payment.Status)]
	if !ok {
		return domain.PaymentResult{
			Success:       false,
			TransactionID: payment.ID,
			Amount:        payment.Amount,
			Currency:      payment.Currency,
			Status:        domain.StatusFailed,
			ErrorMessage:  fmt.Sprintf("unmapped gateway status %q", payment.Status),
		}, nil
	}

	return domain.PaymentResult{
		Success:       status != domain.StatusFailed,
		TransactionID: payment.ID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Status:        status,
		Metadata:      payment.Metadata,
	}, nil
}

func (p *Provider) RefundPayment(ctx context.Context, transactionID string, amount *int64) (domain.RefundResult, error) {
	payload := map[string]any{}
	if amount != nil {
		payload["amount"] = *amount
	}

	var refund gatewayPayment
	path := fmt.Sprintf("/v1/payments/%s/refunds", transactionID)
	declined, err := p.call(ctx, http.MethodPost, path, payload, &refund)
	if err != nil {
		return domain.RefundResult{
			Success:      false,
			Status:       domain.StatusFailed,
			ErrorMessage: err.Error(),
		}, nil
	}
	if declined != "" {
		return domain.RefundResult{
			Success:      false,
			Status:       domain.StatusFailed,
			ErrorMessage: declined,
		}, nil
	}

	status, ok := statusTable[strings.ToLower(refund.Status)]
	if !ok {
		status = domain.StatusFailed
	}

	return domain.RefundResult{
		Success:  status != domain.StatusFailed,
		RefundID: refund.ID,
		Amount:   refund.Amount,
		Status:   status,
	}, nil
}

// VerifyWebhook never panics or errors; any verification problem reads as an
// invalid signature and is logged.
func (p *Provider) VerifyWebhook(payload []byte, sig string) bool {
	if len(payload) == 0 || strings.TrimSpace(sig) == "" {
		p.log.Warn("gateway webhook missing payload or signature")
		return false
	}
	ok := signature.Verify(json.RawMessage(payload), sig, p.webhookSecret)
	if !ok {
		p.log.Warn("gateway webhook signature mismatch")
	}
	return ok
}

type gatewayWebhook struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Payment gatewayPayment `json:"payment"`
	} `json:"data"`
}

func (p *Provider) NormalizeWebhook(payload []byte) (domain.WebhookEvent, error) {
	var hook gatewayWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return domain.WebhookEvent{}, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(hook.ID) == "" || strings.TrimSpace(hook.Data.Payment.ID) == "" {
		return domain.WebhookEvent{}, domain.ErrInvalidPayload
	}

	name, ok := eventTable[strings.ToLower(strings.TrimSpace(hook.Type))]
	if !ok {
		return domain.WebhookEvent{}, domain.ErrEventIgnored
	}

	status, ok := statusTable[strings.ToLower(hook.Data.Payment.Status)]
	if !ok {
		return domain.WebhookEvent{}, domain.ErrInvalidPayload
	}

	return domain.WebhookEvent{
		Event:         name,
		EventID:       hook.ID,
		TransactionID: hook.Data.Payment.ID,
		Amount:        hook.Data.Payment.Amount,
		Currency:      strings.ToUpper(hook.Data.Payment.Currency),
		Status:        status,
		Metadata:      hook.Data.Payment.Metadata,
	}, nil
}

// call issues one gateway request. It returns (declineMessage, nil) for
// business rejections so callers can distinguish declines from transport
// errors.
func (p *Provider) call(ctx context.Context, method, path string, payload any, out any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var gwErr gatewayError
		if err := json.Unmarshal(raw, &gwErr); err == nil && gwErr.Error.Message != "" {
			return gwErr.Error.Message, nil
		}
		return fmt.Sprintf("gateway rejected request (%d)", resp.StatusCode), nil
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	return "", nil
}
