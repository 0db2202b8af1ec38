package provider

import (
	"github.com/shoplane/payments/internal/config"
	"github.com/shoplane/payments/internal/provider/domain"
	"github.com/shoplane/payments/internal/provider/gateway"
	"github.com/shoplane/payments/internal/provider/mock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module builds the provider registry and resolves the active provider once
// from configuration. Call sites only ever see domain.Provider.
var Module = fx.Module("payment.provider",
	fx.Provide(func(cfg config.Config, log *zap.Logger) *Registry {
		return NewRegistry(
			mock.NewFactory(cfg, log),
			gateway.NewFactory(cfg, log),
		)
	}),
	fx.Provide(func(registry *Registry, cfg config.Config) (domain.Provider, error) {
		return registry.New(cfg.PaymentProvider)
	}),
)
