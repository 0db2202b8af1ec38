package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/shoplane/payments/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("ratelimit",
	fx.Provide(func(client *redis.Client, cfg config.Config) *TokenBucket {
		return NewTokenBucket(client, cfg.Webhook.InboundRate, cfg.Webhook.InboundBurst)
	}),
)
