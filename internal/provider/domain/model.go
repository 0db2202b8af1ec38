package domain

import (
	"context"
	"errors"
)

// Canonical transaction statuses. Gateway-specific vocabulary is mapped onto
// this set by an explicit lookup table, never inferred.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type ProcessPaymentRequest struct {
	Amount      int64 // minor units
	Currency    string
	Description string
	CustomerID  string
	OrderID     string
	Metadata    map[string]any
}

// PaymentResult is the normalized outcome of one provider call. A declined
// or errored payment is Success:false with ErrorMessage set, never a Go
// error, so the orchestrator can always persist a transaction row.
type PaymentResult struct {
	Success       bool           `json:"success"`
	TransactionID string         `json:"transaction_id"`
	Amount        int64          `json:"amount"`
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

type RefundResult struct {
	Success      bool   `json:"success"`
	RefundID     string `json:"refund_id"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// WebhookEvent is a gateway callback normalized to the canonical vocabulary.
type WebhookEvent struct {
	Event         string         `json:"event"`
	EventID       string         `json:"event_id"`
	TransactionID string         `json:"transaction_id"`
	Amount        int64          `json:"amount"`
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Provider is the payment-gateway capability set. Implementations are
// interchangeable and selected once at startup.
type Provider interface {
	Name() string
	ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (PaymentResult, error)
	RefundPayment(ctx context.Context, transactionID string, amount *int64) (RefundResult, error)
	VerifyWebhook(payload []byte, signature string) bool
	NormalizeWebhook(payload []byte) (WebhookEvent, error)
}

// Factory builds a Provider from application configuration. Construction
// fails fast when required credentials are absent.
type Factory interface {
	Provider() string
	New() (Provider, error)
}

var (
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_provider_config")
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
	ErrEventIgnored     = errors.New("event_ignored")
)
