package inbound

import (
	"github.com/redis/go-redis/v9"
	"github.com/shoplane/payments/internal/config"
	"go.uber.org/fx"
)

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

var Module = fx.Module("webhook.inbound",
	fx.Provide(newRedisClient),
	fx.Provide(func(client *redis.Client, cfg config.Config) *Dedup {
		return NewDedup(client, cfg.Webhook.DedupTTL)
	}),
	fx.Provide(NewHandlers),
	fx.Provide(New),
)
