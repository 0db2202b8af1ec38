package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	providerdomain "github.com/shoplane/payments/internal/provider/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction statuses. The first three mirror the provider's canonical set;
// the refund states are owned by the orchestrator.
const (
	StatusPending       = providerdomain.StatusPending
	StatusCompleted     = providerdomain.StatusCompleted
	StatusFailed        = providerdomain.StatusFailed
	StatusRefundPending = "refund_pending"
	StatusRefunded      = "refunded"
	StatusRefundFailed  = "refund_failed"
)

// Transaction is one payment attempt at the gateway boundary. Failed
// attempts are persisted too; financial state is never silently dropped.
type Transaction struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	ProviderTxID string            `gorm:"column:provider_tx_id;index" json:"provider_tx_id"`
	Provider     string            `gorm:"not null" json:"provider"`
	OrderID      string            `gorm:"column:order_id;index" json:"order_id"`
	CustomerID   string            `gorm:"column:customer_id" json:"customer_id"`
	Amount       int64             `gorm:"not null" json:"amount"`
	Currency     string            `gorm:"not null" json:"currency"`
	Status       string            `gorm:"not null;index" json:"status"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	ErrorMessage string            `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }

type ProcessPaymentRequest struct {
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Description string         `json:"description"`
	OrderID     string         `json:"order_id"`
	CustomerID  string         `json:"customer_id"`
	Metadata    map[string]any `json:"metadata"`
}

type ProcessPaymentResponse struct {
	Transaction Transaction                  `json:"transaction"`
	Result      providerdomain.PaymentResult `json:"result"`
}

type RefundPaymentRequest struct {
	TransactionID string `json:"-"`
	Amount        *int64 `json:"amount"`
}

type RefundPaymentResponse struct {
	Transaction Transaction                 `json:"transaction"`
	Result      providerdomain.RefundResult `json:"result"`
}

type Service interface {
	ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (ProcessPaymentResponse, error)
	RefundPayment(ctx context.Context, req RefundPaymentRequest) (RefundPaymentResponse, error)
	GetByID(ctx context.Context, id string) (Transaction, error)
	MarkStatusByProviderTxID(ctx context.Context, providerTxID, status string) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tx *Transaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
	FindByProviderTxID(ctx context.Context, db *gorm.DB, providerTxID string) (*Transaction, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status, errorMessage string, updatedAt time.Time) error
}

var (
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("transaction_not_found")
	ErrNotRefundable    = errors.New("transaction_not_refundable")
	ErrUnknownStatus    = errors.New("unknown_status")
	ErrAlreadyProcessed = errors.New("event_already_processed")
	ErrProviderRejected = errors.New("provider_rejected")
)
