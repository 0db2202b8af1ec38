package inbound

import (
	"context"
	"fmt"

	"github.com/shoplane/payments/internal/event"
	"go.uber.org/zap"
)

// HandlerFunc processes the data of one recognized inbound event.
type HandlerFunc func(ctx context.Context, data map[string]any) error

// Handlers routes validated inbound events by exact name match. The set is
// closed; anything else is acknowledged but not processed.
type Handlers struct {
	byName map[string]HandlerFunc
}

func NewHandlers(log *zap.Logger, publisher event.Publisher) *Handlers {
	log = log.Named("webhook.handlers")

	ack := func(name string) HandlerFunc {
		return func(ctx context.Context, data map[string]any) error {
			// Coupon and membership systems are upstream collaborators;
			// their events only need an audited acknowledgement here.
			log.Info("partner event accepted", zap.String("event", name), zap.Any("data", data))
			return nil
		}
	}

	rebroadcast := func(name string) HandlerFunc {
		return func(ctx context.Context, data map[string]any) error {
			if err := publisher.Broadcast(ctx, name, data); err != nil {
				return fmt.Errorf("rebroadcast %s: %w", name, err)
			}
			return nil
		}
	}

	return &Handlers{byName: map[string]HandlerFunc{
		"coupon.issued":        ack("coupon.issued"),
		"coupon.redeemed":      ack("coupon.redeemed"),
		"membership.activated": ack("membership.activated"),
		event.OrderCreated:     rebroadcast(event.OrderCreated),
		event.OrderUpdated:     rebroadcast(event.OrderUpdated),
		event.OrderCancelled:   rebroadcast(event.OrderCancelled),
	}}
}

// Lookup returns the handler for name, or false when the event is outside
// the recognized set.
func (h *Handlers) Lookup(name string) (HandlerFunc, bool) {
	fn, ok := h.byName[name]
	return fn, ok
}
