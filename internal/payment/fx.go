package payment

import (
	"github.com/shoplane/payments/internal/payment/repository"
	"github.com/shoplane/payments/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
