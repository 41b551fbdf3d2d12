package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/booking-ledger/internal/common"
)

// FixedWindow builds a per-minute fixed window limiter shared by all replicas
// through redis.
func FixedWindow(client *redis.Client, prefix string, perMinute int) (*limiter.Limiter, error) {
	if client == nil {
		return nil, errors.New("ratelimit: redis client not configured")
	}
	if perMinute <= 0 {
		return nil, errors.New("ratelimit: limit must be positive")
	}
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, limiter.Rate{Period: time.Minute, Limit: int64(perMinute)}), nil
}

// FixedWindowMiddleware limits requests keyed by ActorOrIP. It sits after
// authentication so signed-in callers get their own bucket.
func FixedWindowMiddleware(l *limiter.Limiter, onError func(error)) func(http.Handler) http.Handler {
	mw := stdlib.NewMiddleware(l,
		stdlib.WithKeyGetter(ActorOrIP),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			tooMany(w)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
			if onError != nil {
				onError(err)
			}
			common.JSONError(w, http.StatusServiceUnavailable, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable", nil)
		}),
	)
	return mw.Handler
}
