package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shoplane/payments/internal/clock"
	"github.com/shoplane/payments/internal/config"
	"github.com/shoplane/payments/internal/delivery"
	"github.com/shoplane/payments/internal/dispatch"
	"github.com/shoplane/payments/internal/inbound"
	"github.com/shoplane/payments/internal/logger"
	"github.com/shoplane/payments/internal/migration"
	"github.com/shoplane/payments/internal/observability/metrics"
	"github.com/shoplane/payments/internal/partner"
	"github.com/shoplane/payments/internal/payment"
	"github.com/shoplane/payments/internal/provider"
	"github.com/shoplane/payments/internal/ratelimit"
	"github.com/shoplane/payments/internal/server"
	"github.com/shoplane/payments/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(newSnowflakeNode),
		clock.Module,
		db.Module,
		migration.Module,
		metrics.Module,

		// Webhook exchange
		partner.Module,
		delivery.Module,
		dispatch.Module,
		provider.Module,
		payment.Module,
		inbound.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
