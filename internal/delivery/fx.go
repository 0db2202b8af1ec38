package delivery

import (
	"github.com/shoplane/payments/internal/delivery/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("delivery.log",
	fx.Provide(repository.Provide),
)
