package inbound

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	redis "github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "webhook:gateway:event:"

// Dedup remembers processed gateway event ids in redis so partner retries of
// the same event are acknowledged without reprocessing. Best-effort: without
// redis every event is treated as first-seen.
type Dedup struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDedup(client *redis.Client, ttl time.Duration) *Dedup {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Dedup{client: client, ttl: ttl}
}

// Seen marks eventID as processed and reports whether it had been seen
// before. Redis errors read as unseen so an outage never drops events.
func (d *Dedup) Seen(ctx context.Context, eventID string) bool {
	if d == nil || d.client == nil || eventID == "" {
		return false
	}
	token := ulid.Make().String()
	set, err := d.client.SetNX(ctx, dedupKeyPrefix+eventID, token, d.ttl).Result()
	if err != nil {
		return false
	}
	return !set
}
