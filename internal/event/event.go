package event

import "context"

// Domain event names broadcast to partners. The set is closed; Broadcast and
// the manual replay endpoint reject anything outside it.
const (
	PaymentSuccess   = "payment.success"
	PaymentFailed    = "payment.failed"
	PaymentRefunded  = "payment.refunded"
	PaymentCancelled = "payment.cancelled"
	PaymentPending   = "payment.pending"
	OrderCreated     = "order.created"
	OrderUpdated     = "order.updated"
	OrderCancelled   = "order.cancelled"
	DeliveryFailed   = "delivery.failed"
)

var names = map[string]struct{}{
	PaymentSuccess:   {},
	PaymentFailed:    {},
	PaymentRefunded:  {},
	PaymentCancelled: {},
	PaymentPending:   {},
	OrderCreated:     {},
	OrderUpdated:     {},
	OrderCancelled:   {},
	DeliveryFailed:   {},
}

// Valid reports whether name belongs to the closed event enumeration.
func Valid(name string) bool {
	_, ok := names[name]
	return ok
}

// Names returns the closed enumeration, for validation messages and docs.
func Names() []string {
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	return out
}

// Publisher fans an event out to subscribed partners. Implemented by the
// dispatcher; consumed by the payment orchestrator and inbound processing so
// neither depends on delivery mechanics.
type Publisher interface {
	Broadcast(ctx context.Context, name string, data map[string]any) error
}
