package dispatch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shoplane/payments/internal/clock"
	"github.com/shoplane/payments/internal/config"
	deliverydomain "github.com/shoplane/payments/internal/delivery/domain"
	"github.com/shoplane/payments/internal/observability/metrics"
	partnerdomain "github.com/shoplane/payments/internal/partner/domain"
	"github.com/shoplane/payments/internal/signature"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderPartnerID = "X-Partner-ID"
)

// Response bodies are stored for audit; cap them so a misbehaving partner
// cannot bloat the attempt log.
const maxResponseBodyBytes = 2048

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Partners   partnerdomain.Repository
	Attempts   deliverydomain.Repository
	Metrics    *metrics.Metrics `optional:"true"`
	HTTPClient *http.Client     `optional:"true"`
}

// Dispatcher fans domain events out to subscribed partners with signed
// deliveries, bounded retries, and exponential backoff. It holds no state
// beyond configuration; every attempt lands in the delivery log.
type Dispatcher struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	partners    partnerdomain.Repository
	attempts    deliverydomain.Repository
	metrics     *metrics.Metrics
	client      *http.Client
	maxAttempts int
	backoffBase time.Duration
}

func New(p Params) *Dispatcher {
	maxAttempts := p.Cfg.Webhook.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	backoffBase := p.Cfg.Webhook.BackoffBase
	if backoffBase <= 0 {
		backoffBase = time.Second
	}

	client := p.HTTPClient
	if client == nil {
		timeout := p.Cfg.Webhook.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Dispatcher{
		db:          p.DB,
		log:         p.Log.Named("webhook.dispatcher"),
		genID:       p.GenID,
		clock:       p.Clock,
		partners:    p.Partners,
		attempts:    p.Attempts,
		metrics:     p.Metrics,
		client:      client,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
	}
}

// Broadcast delivers one event to every active subscribed partner. Delivery
// sequences run concurrently and settle independently; a partner that times
// out never blocks or fails the others. The returned error covers only the
// registry lookup; per-partner outcomes live in the attempt log.
func (d *Dispatcher) Broadcast(ctx context.Context, event string, data map[string]any) error {
	partners, err := d.partners.FindActiveSubscribers(ctx, d.db, event)
	if err != nil {
		return err
	}

	d.metrics.RecordBroadcast(event)
	if len(partners) == 0 {
		d.log.Debug("no subscribers for event", zap.String("event", event))
		return nil
	}

	var wg sync.WaitGroup
	for _, partner := range partners {
		wg.Add(1)
		go func(partner *partnerdomain.Partner) {
			defer wg.Done()
			delivered := d.deliver(ctx, partner, event, data)
			if !delivered {
				d.log.Warn("delivery exhausted",
					zap.String("partner_id", partner.ID.String()),
					zap.String("event", event),
					zap.Int("max_attempts", d.maxAttempts),
				)
			}
		}(partner)
	}
	wg.Wait()
	return nil
}

// SendToPartner targets a single partner. It reports false without writing an
// attempt when the partner is inactive or not subscribed to the event.
func (d *Dispatcher) SendToPartner(ctx context.Context, partnerID, event string, data map[string]any) (bool, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(partnerID))
	if err != nil {
		return false, partnerdomain.ErrInvalidID
	}

	partner, err := d.partners.FindByID(ctx, d.db, id)
	if err != nil {
		return false, err
	}
	if partner == nil {
		return false, partnerdomain.ErrNotFound
	}
	if !partner.Active || !partner.Subscribed(event) {
		return false, nil
	}

	return d.deliver(ctx, partner, event, data), nil
}

// deliver runs one partner's delivery sequence: attempts are strictly
// sequential, each one recorded before the next starts.
func (d *Dispatcher) deliver(ctx context.Context, partner *partnerdomain.Partner, event string, data map[string]any) bool {
	envelope := map[string]any{
		"event":     event,
		"data":      data,
		"timestamp": d.clock.Now().Format(time.RFC3339),
	}

	body, err := signature.Canonicalize(envelope)
	if err != nil {
		d.log.Error("envelope encode failed", zap.String("event", event), zap.Error(err))
		return false
	}
	sig, err := signature.Sign(body, partner.Secret)
	if err != nil {
		d.log.Error("envelope sign failed", zap.String("event", event), zap.Error(err))
		return false
	}

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		code, respBody, postErr := d.post(ctx, partner, event, body, sig)

		success := postErr == nil && code >= 200 && code < 300
		status := deliverydomain.StatusPending
		switch {
		case success:
			status = deliverydomain.StatusSuccess
		case attempt == d.maxAttempts:
			status = deliverydomain.StatusFailed
		}

		if postErr != nil {
			respBody = postErr.Error()
		}
		d.record(ctx, partner, event, body, sig, attempt, status, code, respBody)
		d.metrics.RecordDeliveryAttempt(event, status)

		if success {
			return true
		}
		if attempt == d.maxAttempts {
			return false
		}

		// 2^attempt seconds, attempt numbering starting at 1. A cancelled
		// backoff abandons the sequence without a log row; rows exist only
		// for attempts that actually went over the wire.
		backoff := (1 << attempt) * d.backoffBase
		if err := d.clock.Sleep(ctx, backoff); err != nil {
			d.log.Warn("delivery abandoned during backoff",
				zap.String("partner_id", partner.ID.String()),
				zap.String("event", event),
				zap.Int("attempts_made", attempt),
				zap.Error(err),
			)
			return false
		}
	}
	return false
}

func (d *Dispatcher) post(ctx context.Context, partner *partnerdomain.Partner, event string, body []byte, sig string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, partner.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, sig)
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderPartnerID, partner.ID.String())

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	return resp.StatusCode, string(respBody), nil
}

func (d *Dispatcher) record(ctx context.Context, partner *partnerdomain.Partner, event string, body []byte, sig string, attempt int, status string, code int, respBody string) {
	if len(respBody) > maxResponseBodyBytes {
		respBody = respBody[:maxResponseBodyBytes]
	}

	partnerID := partner.ID
	row := deliverydomain.Attempt{
		ID:            d.genID.Generate(),
		PartnerID:     &partnerID,
		Direction:     deliverydomain.DirectionSent,
		Event:         event,
		Payload:       datatypes.JSON(body),
		Signature:     sig,
		AttemptNumber: attempt,
		Status:        status,
		ResponseCode:  code,
		ResponseBody:  respBody,
		CreatedAt:     d.clock.Now(),
	}

	if err := d.attempts.Append(ctx, d.db, &row); err != nil {
		// The delivery outcome stands even when bookkeeping fails.
		d.log.Error("record delivery attempt failed",
			zap.String("partner_id", partnerID.String()),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
