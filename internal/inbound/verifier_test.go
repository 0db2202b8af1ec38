package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shoplane/payments/internal/clock"
	deliverydomain "github.com/shoplane/payments/internal/delivery/domain"
	deliveryrepo "github.com/shoplane/payments/internal/delivery/repository"
	"github.com/shoplane/payments/internal/event"
	partnerdomain "github.com/shoplane/payments/internal/partner/domain"
	partnerrepo "github.com/shoplane/payments/internal/partner/repository"
	paymentdomain "github.com/shoplane/payments/internal/payment/domain"
	providerdomain "github.com/shoplane/payments/internal/provider/domain"
	"github.com/shoplane/payments/internal/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stubPublisher is mutex-guarded because gateway rebroadcasts run on their
// own goroutines.
type stubPublisher struct {
	mu     sync.Mutex
	events []string
	data   []map[string]any
	err    error
}

func (s *stubPublisher) Broadcast(ctx context.Context, name string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
	s.data = append(s.data, data)
	return s.err
}

func (s *stubPublisher) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *stubPublisher) Data(i int) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.data) {
		return nil
	}
	return s.data[i]
}

type stubGatewayProvider struct {
	verifyOK   bool
	normalized providerdomain.WebhookEvent
	normErr    error
}

func (s *stubGatewayProvider) Name() string { return "gateway" }

func (s *stubGatewayProvider) ProcessPayment(ctx context.Context, req providerdomain.ProcessPaymentRequest) (providerdomain.PaymentResult, error) {
	return providerdomain.PaymentResult{}, errors.New("not used")
}

func (s *stubGatewayProvider) RefundPayment(ctx context.Context, transactionID string, amount *int64) (providerdomain.RefundResult, error) {
	return providerdomain.RefundResult{}, errors.New("not used")
}

func (s *stubGatewayProvider) VerifyWebhook(payload []byte, sig string) bool { return s.verifyOK }

func (s *stubGatewayProvider) NormalizeWebhook(payload []byte) (providerdomain.WebhookEvent, error) {
	return s.normalized, s.normErr
}

type stubPaymentService struct {
	markCalls  []string
	markStatus []string
	markErr    error
}

func (s *stubPaymentService) ProcessPayment(ctx context.Context, req paymentdomain.ProcessPaymentRequest) (paymentdomain.ProcessPaymentResponse, error) {
	return paymentdomain.ProcessPaymentResponse{}, errors.New("not used")
}

func (s *stubPaymentService) RefundPayment(ctx context.Context, req paymentdomain.RefundPaymentRequest) (paymentdomain.RefundPaymentResponse, error) {
	return paymentdomain.RefundPaymentResponse{}, errors.New("not used")
}

func (s *stubPaymentService) GetByID(ctx context.Context, id string) (paymentdomain.Transaction, error) {
	return paymentdomain.Transaction{}, paymentdomain.ErrNotFound
}

func (s *stubPaymentService) MarkStatusByProviderTxID(ctx context.Context, providerTxID, status string) error {
	s.markCalls = append(s.markCalls, providerTxID)
	s.markStatus = append(s.markStatus, status)
	return s.markErr
}

type verifierFixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	publisher  *stubPublisher
	provider   *stubGatewayProvider
	paymentSvc *stubPaymentService
	verifier   *Verifier
}

func newVerifierFixture(t *testing.T) *verifierFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&partnerdomain.Partner{}, &deliverydomain.Attempt{}))

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)

	publisher := &stubPublisher{}
	provider := &stubGatewayProvider{verifyOK: true}
	paymentSvc := &stubPaymentService{}

	verifier := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(time.Now()),
		Partners:   partnerrepo.Provide(),
		Attempts:   deliveryrepo.Provide(),
		Provider:   provider,
		PaymentSvc: paymentSvc,
		Publisher:  publisher,
		Handlers:   NewHandlers(zap.NewNop(), publisher),
	})

	return &verifierFixture{
		db:         db,
		node:       node,
		publisher:  publisher,
		provider:   provider,
		paymentSvc: paymentSvc,
		verifier:   verifier,
	}
}

func (f *verifierFixture) seedPartner(t *testing.T, active bool) *partnerdomain.Partner {
	t.Helper()
	encoded, err := partnerdomain.EncodeEvents([]string{"payment.success"})
	require.NoError(t, err)

	now := time.Now().UTC()
	partner := &partnerdomain.Partner{
		ID:          f.node.Generate(),
		Name:        "inbound partner",
		CallbackURL: "https://partner.example.com/hooks",
		Secret:      "inbound-secret",
		Events:      encoded,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.db.Create(partner).Error)
	return partner
}

func (f *verifierFixture) receivedAttempts(t *testing.T) []deliverydomain.Attempt {
	t.Helper()
	var attempts []deliverydomain.Attempt
	require.NoError(t, f.db.
		Where("direction = ?", deliverydomain.DirectionReceived).
		Order("created_at asc, id asc").
		Find(&attempts).Error)
	return attempts
}

func signedBody(t *testing.T, secret string, envelope map[string]any) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(envelope)
	require.NoError(t, err)
	sig, err := signature.Sign(body, secret)
	require.NoError(t, err)
	return body, sig
}

func TestPartnerWebhookRecognizedEvent(t *testing.T) {
	f := newVerifierFixture(t)
	partner := f.seedPartner(t, true)

	body, sig := signedBody(t, partner.Secret, map[string]any{
		"event": "order.created",
		"data":  map[string]any{"order_id": "o-1"},
	})

	result, err := f.verifier.HandlePartnerWebhook(context.Background(), partner.ID.String(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, "order.created", result.Event)
	assert.True(t, result.Processed)

	// order.* events are rebroadcast to the exchange.
	require.Equal(t, []string{"order.created"}, f.publisher.Events())
	assert.Equal(t, "o-1", f.publisher.Data(0)["order_id"])

	attempts := f.receivedAttempts(t)
	require.Len(t, attempts, 1)
	assert.Equal(t, deliverydomain.StatusSuccess, attempts[0].Status)
	assert.Equal(t, "order.created", attempts[0].Event)
	require.NotNil(t, attempts[0].PartnerID)
	assert.Equal(t, partner.ID, *attempts[0].PartnerID)
}

func TestPartnerWebhookBadSignature(t *testing.T) {
	f := newVerifierFixture(t)
	partner := f.seedPartner(t, true)

	body, _ := signedBody(t, partner.Secret, map[string]any{
		"event": "order.created",
		"data":  map[string]any{"order_id": "o-1"},
	})
	wrongSig, err := signature.Sign(body, "some-other-secret")
	require.NoError(t, err)

	_, err = f.verifier.HandlePartnerWebhook(context.Background(), partner.ID.String(), body, wrongSig)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// Rejected before any handler ran.
	assert.Empty(t, f.publisher.Events())

	attempts := f.receivedAttempts(t)
	require.Len(t, attempts, 1)
	assert.Equal(t, deliverydomain.StatusFailed, attempts[0].Status)
	assert.Equal(t, "signature mismatch", attempts[0].ResponseBody)
}

func TestPartnerWebhookUnknownEventAcknowledged(t *testing.T) {
	f := newVerifierFixture(t)
	partner := f.seedPartner(t, true)

	body, sig := signedBody(t, partner.Secret, map[string]any{
		"event": "inventory.low",
		"data":  map[string]any{},
	})

	result, err := f.verifier.HandlePartnerWebhook(context.Background(), partner.ID.String(), body, sig)
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, "inventory.low", result.Event)

	attempts := f.receivedAttempts(t)
	require.Len(t, attempts, 1)
	assert.Equal(t, deliverydomain.StatusSuccess, attempts[0].Status)
}

func TestPartnerWebhookHandlerFailurePropagates(t *testing.T) {
	f := newVerifierFixture(t)
	partner := f.seedPartner(t, true)
	f.publisher.err = errors.New("downstream outage")

	body, sig := signedBody(t, partner.Secret, map[string]any{
		"event": "order.updated",
		"data":  map[string]any{},
	})

	_, err := f.verifier.HandlePartnerWebhook(context.Background(), partner.ID.String(), body, sig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order.updated")
	assert.ErrorIs(t, err, f.publisher.err)
}

func TestPartnerWebhookMalformedBody(t *testing.T) {
	f := newVerifierFixture(t)
	partner := f.seedPartner(t, true)

	_, err := f.verifier.HandlePartnerWebhook(context.Background(), partner.ID.String(), []byte("not json"), "sig")
	assert.ErrorIs(t, err, signature.ErrInvalidPayload)

	attempts := f.receivedAttempts(t)
	require.Len(t, attempts, 1)
	assert.Equal(t, deliverydomain.StatusFailed, attempts[0].Status)
	assert.Equal(t, "malformed payload", attempts[0].ResponseBody)
}

func TestPartnerWebhookUnknownOrInactivePartner(t *testing.T) {
	f := newVerifierFixture(t)
	inactive := f.seedPartner(t, false)
	ctx := context.Background()

	_, err := f.verifier.HandlePartnerWebhook(ctx, f.node.Generate().String(), []byte(`{}`), "sig")
	assert.ErrorIs(t, err, partnerdomain.ErrNotFound)

	_, err = f.verifier.HandlePartnerWebhook(ctx, inactive.ID.String(), []byte(`{}`), "sig")
	assert.ErrorIs(t, err, partnerdomain.ErrNotFound)

	_, err = f.verifier.HandlePartnerWebhook(ctx, "not-a-snowflake", []byte(`{}`), "sig")
	assert.ErrorIs(t, err, partnerdomain.ErrInvalidID)

	assert.Empty(t, f.receivedAttempts(t))
}

func TestGatewayWebhookAppliesStatusAndRebroadcasts(t *testing.T) {
	f := newVerifierFixture(t)
	f.provider.normalized = providerdomain.WebhookEvent{
		Event:         event.PaymentSuccess,
		EventID:       "evt_1",
		TransactionID: "gw_tx_1",
		Amount:        900,
		Currency:      "USD",
		Status:        providerdomain.StatusCompleted,
	}

	result, err := f.verifier.HandleGatewayWebhook(context.Background(), []byte(`{"id":"evt_1"}`), "sig")
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, event.PaymentSuccess, result.Event)

	require.Equal(t, []string{"gw_tx_1"}, f.paymentSvc.markCalls)
	assert.Equal(t, []string{paymentdomain.StatusCompleted}, f.paymentSvc.markStatus)

	// The rebroadcast is detached from the acknowledgement.
	require.Eventually(t, func() bool {
		return len(f.publisher.Events()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{event.PaymentSuccess}, f.publisher.Events())
	assert.Equal(t, "gw_tx_1", f.publisher.Data(0)["transaction_id"])

	attempts := f.receivedAttempts(t)
	require.Len(t, attempts, 1)
	assert.Equal(t, deliverydomain.StatusSuccess, attempts[0].Status)
	assert.Nil(t, attempts[0].PartnerID)
}

func TestGatewayWebhookRefundEventMapsToRefundedStatus(t *testing.T) {
	f := newVerifierFixture(t)
	f.provider.normalized = providerdomain.WebhookEvent{
		Event:         event.PaymentRefunded,
		EventID:       "evt_2",
		TransactionID: "gw_tx_2",
		Status:        providerdomain.StatusCompleted,
	}

	_, err := f.verifier.HandleGatewayWebhook(context.Background(), []byte(`{"id":"evt_2"}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, []string{paymentdomain.StatusRefunded}, f.paymentSvc.markStatus)
}

func TestGatewayWebhookBadSignature(t *testing.T) {
	f := newVerifierFixture(t)
	f.provider.verifyOK = false

	_, err := f.verifier.HandleGatewayWebhook(context.Background(), []byte(`{"id":"evt_1"}`), "bad")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, f.paymentSvc.markCalls)
	assert.Empty(t, f.publisher.Events())

	attempts := f.receivedAttempts(t)
	require.Len(t, attempts, 1)
	assert.Equal(t, deliverydomain.StatusFailed, attempts[0].Status)
}

func TestGatewayWebhookIgnoredEvent(t *testing.T) {
	f := newVerifierFixture(t)
	f.provider.normErr = providerdomain.ErrEventIgnored

	result, err := f.verifier.HandleGatewayWebhook(context.Background(), []byte(`{"id":"evt_3"}`), "sig")
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Empty(t, f.paymentSvc.markCalls)

	attempts := f.receivedAttempts(t)
	require.Len(t, attempts, 1)
	assert.Equal(t, deliverydomain.StatusSuccess, attempts[0].Status)
	assert.Equal(t, "event ignored", attempts[0].ResponseBody)
}

func TestGatewayWebhookUnknownTransactionStillBroadcasts(t *testing.T) {
	f := newVerifierFixture(t)
	f.provider.normalized = providerdomain.WebhookEvent{
		Event:         event.PaymentFailed,
		EventID:       "evt_4",
		TransactionID: "gw_tx_elsewhere",
		Status:        providerdomain.StatusFailed,
	}
	f.paymentSvc.markErr = paymentdomain.ErrNotFound

	result, err := f.verifier.HandleGatewayWebhook(context.Background(), []byte(`{"id":"evt_4"}`), "sig")
	require.NoError(t, err)
	assert.True(t, result.Processed)
	require.Eventually(t, func() bool {
		return len(f.publisher.Events()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{event.PaymentFailed}, f.publisher.Events())
}

func TestDedupWithoutRedisTreatsEverythingAsFirstSeen(t *testing.T) {
	var d *Dedup
	assert.False(t, d.Seen(context.Background(), "evt_1"))
	assert.Nil(t, NewDedup(nil, time.Hour))
}

func TestHandlersLookup(t *testing.T) {
	h := NewHandlers(zap.NewNop(), &stubPublisher{})

	for _, name := range []string{"coupon.issued", "coupon.redeemed", "membership.activated",
		event.OrderCreated, event.OrderUpdated, event.OrderCancelled} {
		_, ok := h.Lookup(name)
		assert.True(t, ok, name)
	}

	_, ok := h.Lookup("payment.success")
	assert.False(t, ok)
}
