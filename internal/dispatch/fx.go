package dispatch

import (
	"github.com/shoplane/payments/internal/event"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.dispatcher",
	fx.Provide(New),
	fx.Provide(func(d *Dispatcher) event.Publisher { return d }),
)
