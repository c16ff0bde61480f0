package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/usecase"
)

var _ usecase.CallbackDeduper = (*CallbackDedupe)(nil)

// CallbackDedupe remembers processed callbacks by (provider, correlation id)
// so re-deliveries can be acknowledged without a ledger round trip. It is a
// best-effort cache: a miss or a redis outage just falls through to the
// database compare-and-set, which stays authoritative.
type CallbackDedupe struct {
	cli RedisClient
	ttl time.Duration
}

func NewCallbackDedupe(cli RedisClient, ttl time.Duration) *CallbackDedupe {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CallbackDedupe{cli: cli, ttl: ttl}
}

func key(provider model.Provider, correlationID string) string {
	return "payments:callback:" + string(provider) + ":" + correlationID
}

func (d *CallbackDedupe) Seen(ctx context.Context, provider model.Provider, correlationID string) (bool, error) {
	_, err := d.cli.Get(ctx, key(provider, correlationID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *CallbackDedupe) Mark(ctx context.Context, provider model.Provider, correlationID string) error {
	_, err := d.cli.SetNX(ctx, key(provider, correlationID), "1", d.ttl)
	return err
}
