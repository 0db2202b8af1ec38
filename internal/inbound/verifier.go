package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shoplane/payments/internal/clock"
	deliverydomain "github.com/shoplane/payments/internal/delivery/domain"
	"github.com/shoplane/payments/internal/event"
	"github.com/shoplane/payments/internal/observability/metrics"
	partnerdomain "github.com/shoplane/payments/internal/partner/domain"
	paymentdomain "github.com/shoplane/payments/internal/payment/domain"
	providerdomain "github.com/shoplane/payments/internal/provider/domain"
	"github.com/shoplane/payments/internal/signature"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	sourcePartner = "partner"
	sourceGateway = "gateway"
)

var ErrInvalidSignature = errors.New("invalid_signature")

// Result reports what happened to a validly signed inbound webhook.
type Result struct {
	Event     string `json:"event"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Partners   partnerdomain.Repository
	Attempts   deliverydomain.Repository
	Provider   providerdomain.Provider
	PaymentSvc paymentdomain.Service
	Publisher  event.Publisher
	Handlers   *Handlers
	Dedup      *Dedup           `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

// Verifier authenticates inbound webhooks and hands validated payloads to
// typed processing. Every verification outcome, pass or fail, lands in the
// delivery log with direction "received".
type Verifier struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	partners   partnerdomain.Repository
	attempts   deliverydomain.Repository
	provider   providerdomain.Provider
	paymentSvc paymentdomain.Service
	publisher  event.Publisher
	handlers   *Handlers
	dedup      *Dedup
	metrics    *metrics.Metrics
}

func New(p Params) *Verifier {
	return &Verifier{
		db:         p.DB,
		log:        p.Log.Named("webhook.verifier"),
		genID:      p.GenID,
		clock:      p.Clock,
		partners:   p.Partners,
		attempts:   p.Attempts,
		provider:   p.Provider,
		paymentSvc: p.PaymentSvc,
		publisher:  p.Publisher,
		handlers:   p.Handlers,
		dedup:      p.Dedup,
		metrics:    p.Metrics,
	}
}

type inboundEnvelope struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// HandlePartnerWebhook authenticates a partner callback against the
// partner's shared secret and dispatches the recognized events. Unrecognized
// event names are acknowledged without processing so partner retries stay
// safe; handler failures propagate to the caller.
func (v *Verifier) HandlePartnerWebhook(ctx context.Context, partnerID string, body []byte, sig string) (Result, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(partnerID))
	if err != nil {
		return Result{}, partnerdomain.ErrInvalidID
	}

	partner, err := v.partners.FindByID(ctx, v.db, id)
	if err != nil {
		return Result{}, err
	}
	if partner == nil || !partner.Active {
		return Result{}, partnerdomain.ErrNotFound
	}

	var envelope inboundEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Event == "" {
		v.record(ctx, &partner.ID, "", body, sig, deliverydomain.StatusFailed, "malformed payload")
		v.metrics.RecordInbound(sourcePartner, "malformed")
		return Result{}, signature.ErrInvalidPayload
	}

	// The signature covers the body as received, minus any embedded
	// signature field.
	if !signature.Verify(json.RawMessage(body), sig, partner.Secret) {
		v.record(ctx, &partner.ID, envelope.Event, body, sig, deliverydomain.StatusFailed, "signature mismatch")
		v.metrics.RecordInbound(sourcePartner, "rejected")
		return Result{}, ErrInvalidSignature
	}

	v.record(ctx, &partner.ID, envelope.Event, body, sig, deliverydomain.StatusSuccess, "")
	v.metrics.RecordInbound(sourcePartner, "verified")

	handler, ok := v.handlers.Lookup(envelope.Event)
	if !ok {
		v.log.Info("unrecognized inbound event accepted",
			zap.String("partner_id", partner.ID.String()),
			zap.String("event", envelope.Event),
		)
		return Result{Event: envelope.Event, Processed: false}, nil
	}

	if err := handler(ctx, envelope.Data); err != nil {
		// A recognized event failing to process is a bug or downstream
		// outage; it must surface, unlike auth or transport failures.
		return Result{}, fmt.Errorf("process %s: %w", envelope.Event, err)
	}
	return Result{Event: envelope.Event, Processed: true}, nil
}

// HandleGatewayWebhook authenticates a payment-gateway callback via the
// active provider, applies the reported status to the matching transaction,
// and re-broadcasts the normalized domain event to subscribed partners.
func (v *Verifier) HandleGatewayWebhook(ctx context.Context, body []byte, sig string) (Result, error) {
	if !v.provider.VerifyWebhook(body, sig) {
		v.record(ctx, nil, "", body, sig, deliverydomain.StatusFailed, "signature mismatch")
		v.metrics.RecordInbound(sourceGateway, "rejected")
		return Result{}, ErrInvalidSignature
	}

	normalized, err := v.provider.NormalizeWebhook(body)
	if errors.Is(err, providerdomain.ErrEventIgnored) {
		v.record(ctx, nil, "", body, sig, deliverydomain.StatusSuccess, "event ignored")
		v.metrics.RecordInbound(sourceGateway, "ignored")
		return Result{Processed: false}, nil
	}
	if err != nil {
		v.record(ctx, nil, "", body, sig, deliverydomain.StatusFailed, "malformed payload")
		v.metrics.RecordInbound(sourceGateway, "malformed")
		return Result{}, err
	}

	v.record(ctx, nil, normalized.Event, body, sig, deliverydomain.StatusSuccess, "")
	v.metrics.RecordInbound(sourceGateway, "verified")

	if v.dedup.Seen(ctx, normalized.EventID) {
		v.log.Info("duplicate gateway event acknowledged", zap.String("event_id", normalized.EventID))
		return Result{Event: normalized.Event, Processed: false, Duplicate: true}, nil
	}

	status := statusForEvent(normalized)
	if err := v.paymentSvc.MarkStatusByProviderTxID(ctx, normalized.TransactionID, status); err != nil {
		if !errors.Is(err, paymentdomain.ErrNotFound) {
			return Result{}, fmt.Errorf("apply gateway status: %w", err)
		}
		// Gateways replay events for transactions created elsewhere; the
		// broadcast still goes out.
		v.log.Warn("gateway event for unknown transaction",
			zap.String("provider_tx_id", normalized.TransactionID),
			zap.String("event", normalized.Event),
		)
	}

	// The gateway acknowledgement never waits on partner retry schedules;
	// fan-out runs detached and its outcomes live in the attempt log.
	broadcastCtx := context.WithoutCancel(ctx)
	go func() {
		if err := v.publisher.Broadcast(broadcastCtx, normalized.Event, map[string]any{
			"transaction_id": normalized.TransactionID,
			"amount":         normalized.Amount,
			"currency":       normalized.Currency,
			"status":         status,
		}); err != nil {
			v.log.Error("broadcast failed", zap.String("event", normalized.Event), zap.Error(err))
		}
	}()

	return Result{Event: normalized.Event, Processed: true}, nil
}

func statusForEvent(normalized providerdomain.WebhookEvent) string {
	if normalized.Event == event.PaymentRefunded {
		return paymentdomain.StatusRefunded
	}
	return normalized.Status
}

func (v *Verifier) record(ctx context.Context, partnerID *snowflake.ID, eventName string, body []byte, sig, status, reason string) {
	// The payload column is jsonb; a body that is not valid JSON is still
	// worth auditing, wrapped as a JSON string.
	if !json.Valid(body) {
		wrapped, err := json.Marshal(string(body))
		if err == nil {
			body = wrapped
		}
	}

	row := deliverydomain.Attempt{
		ID:            v.genID.Generate(),
		PartnerID:     partnerID,
		Direction:     deliverydomain.DirectionReceived,
		Event:         eventName,
		Payload:       datatypes.JSON(body),
		Signature:     sig,
		AttemptNumber: 1,
		Status:        status,
		ResponseBody:  reason,
		CreatedAt:     v.clock.Now(),
	}
	if err := v.attempts.Append(ctx, v.db, &row); err != nil {
		v.log.Error("record inbound attempt failed", zap.Error(err))
	}
}
