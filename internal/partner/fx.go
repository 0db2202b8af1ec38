package partner

import (
	"github.com/shoplane/payments/internal/partner/repository"
	"github.com/shoplane/payments/internal/partner/service"
	"go.uber.org/fx"
)

var Module = fx.Module("partner.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
