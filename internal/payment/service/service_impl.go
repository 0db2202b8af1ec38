package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shoplane/payments/internal/clock"
	"github.com/shoplane/payments/internal/event"
	"github.com/shoplane/payments/internal/observability/metrics"
	"github.com/shoplane/payments/internal/payment/domain"
	providerdomain "github.com/shoplane/payments/internal/provider/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Provider  providerdomain.Provider
	Publisher event.Publisher
	Metrics   *metrics.Metrics `optional:"true"`
}

// Service orchestrates payments: it delegates to the active provider,
// persists the resulting transaction (failures included), and emits domain
// events for completed payments and refunds.
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	provider  providerdomain.Provider
	publisher event.Publisher
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		provider:  p.Provider,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) ProcessPayment(ctx context.Context, req domain.ProcessPaymentRequest) (domain.ProcessPaymentResponse, error) {
	if req.Amount <= 0 {
		return domain.ProcessPaymentResponse{}, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return domain.ProcessPaymentResponse{}, domain.ErrInvalidCurrency
	}

	now := s.clock.Now()
	metadata := map[string]any{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["order_id"] = req.OrderID
	metadata["customer_id"] = req.CustomerID
	metadata["requested_at"] = now.Format(time.RFC3339)

	result, err := s.provider.ProcessPayment(ctx, providerdomain.ProcessPaymentRequest{
		Amount:      req.Amount,
		Currency:    currency,
		Description: req.Description,
		CustomerID:  req.CustomerID,
		OrderID:     req.OrderID,
		Metadata:    metadata,
	})
	if err != nil {
		// Infrastructure failure before any provider outcome existed.
		return domain.ProcessPaymentResponse{}, err
	}

	tx := domain.Transaction{
		ID:           s.genID.Generate(),
		ProviderTxID: result.TransactionID,
		Provider:     s.provider.Name(),
		OrderID:      req.OrderID,
		CustomerID:   req.CustomerID,
		Amount:       req.Amount,
		Currency:     currency,
		Status:       result.Status,
		Metadata:     datatypes.JSONMap(metadata),
		ErrorMessage: result.ErrorMessage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Payment and bookkeeping are not atomic: once the provider answered,
	// a persistence failure must not undo or hide the payment outcome.
	if err := s.repo.Insert(ctx, s.db, &tx); err != nil {
		s.log.Error("persist transaction failed",
			zap.String("provider_tx_id", result.TransactionID),
			zap.Error(err),
		)
	}
	s.metrics.RecordPayment(s.provider.Name(), result.Status)

	if result.Success && result.Status == providerdomain.StatusCompleted {
		s.emit(ctx, event.PaymentSuccess, map[string]any{
			"transaction_id": tx.ID.String(),
			"order_id":       req.OrderID,
			"customer_id":    req.CustomerID,
			"amount":         req.Amount,
			"currency":       currency,
		})
	}

	return domain.ProcessPaymentResponse{Transaction: tx, Result: result}, nil
}

func (s *Service) RefundPayment(ctx context.Context, req domain.RefundPaymentRequest) (domain.RefundPaymentResponse, error) {
	tx, err := s.GetByID(ctx, req.TransactionID)
	if err != nil {
		return domain.RefundPaymentResponse{}, err
	}
	if tx.Status != domain.StatusCompleted {
		return domain.RefundPaymentResponse{}, domain.ErrNotRefundable
	}

	result, err := s.provider.RefundPayment(ctx, tx.ProviderTxID, req.Amount)
	if err != nil {
		return domain.RefundPaymentResponse{}, err
	}

	now := s.clock.Now()
	if !result.Success {
		if err := s.repo.UpdateStatus(ctx, s.db, tx.ID, domain.StatusRefundFailed, result.ErrorMessage, now); err != nil {
			s.log.Error("persist refund failure failed", zap.String("transaction_id", tx.ID.String()), zap.Error(err))
		}
		tx.Status = domain.StatusRefundFailed
		tx.ErrorMessage = result.ErrorMessage
		return domain.RefundPaymentResponse{Transaction: tx, Result: result}, nil
	}

	if err := s.repo.UpdateStatus(ctx, s.db, tx.ID, domain.StatusRefunded, "", now); err != nil {
		s.log.Error("persist refund failed", zap.String("transaction_id", tx.ID.String()), zap.Error(err))
	}
	tx.Status = domain.StatusRefunded
	tx.UpdatedAt = now
	s.metrics.RecordPayment(s.provider.Name(), domain.StatusRefunded)

	s.emit(ctx, event.PaymentRefunded, map[string]any{
		"transaction_id": tx.ID.String(),
		"refund_id":      result.RefundID,
		"order_id":       tx.OrderID,
		"amount":         result.Amount,
		"currency":       tx.Currency,
	})

	return domain.RefundPaymentResponse{Transaction: tx, Result: result}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Transaction, error) {
	txID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Transaction{}, domain.ErrInvalidID
	}

	tx, err := s.repo.FindByID(ctx, s.db, txID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx == nil {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return *tx, nil
}

// MarkStatusByProviderTxID applies a status reported by a verified gateway
// webhook to the matching transaction.
func (s *Service) MarkStatusByProviderTxID(ctx context.Context, providerTxID, status string) error {
	switch status {
	case domain.StatusPending, domain.StatusCompleted, domain.StatusFailed,
		domain.StatusRefundPending, domain.StatusRefunded, domain.StatusRefundFailed:
	default:
		return domain.ErrUnknownStatus
	}

	tx, err := s.repo.FindByProviderTxID(ctx, s.db, providerTxID)
	if err != nil {
		return err
	}
	if tx == nil {
		return domain.ErrNotFound
	}

	return s.repo.UpdateStatus(ctx, s.db, tx.ID, status, "", s.clock.Now())
}

// emit is best-effort and non-blocking: the payment response never waits on
// partner retry schedules, and delivery problems are the dispatcher's to
// record. The context is detached so finishing the HTTP request does not
// cancel in-flight deliveries.
func (s *Service) emit(ctx context.Context, name string, data map[string]any) {
	if s.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.publisher.Broadcast(ctx, name, data); err != nil {
			s.log.Error("broadcast failed", zap.String("event", name), zap.Error(err))
		}
	}()
}
