// Package ratelimit throttles abuse-prone endpoints with a Redis-backed
// limiter so limits hold across replicas.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-printhub/internal/common"
)

// NewStore wires a limiter store backed by Redis.
func NewStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "rl"})
}

// PerMinute builds a limiter allowing max events per minute.
func PerMinute(store limiter.Store, max int) *limiter.Limiter {
	return limiter.New(store, limiter.Rate{Period: time.Minute, Limit: int64(max)})
}

// PerHour builds a limiter allowing max events per hour.
func PerHour(store limiter.Store, max int) *limiter.Limiter {
	return limiter.New(store, limiter.Rate{Period: time.Hour, Limit: int64(max)})
}

// Middleware limits requests per client IP under the given scope. A nil
// limiter disables throttling for the wrapped routes.
func Middleware(l *limiter.Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			lctx, err := l.Get(r.Context(), scope+":"+common.ClientIP(r))
			if err != nil {
				// Redis outages degrade to unthrottled rather than
				// locking every client out.
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
			if lctx.Reached {
				common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
