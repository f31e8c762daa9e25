package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"botoapp/user/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter is a fixed-window counter kept in Redis.
type RateLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
	Logger *zap.Logger
}

func NewRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window, Logger: logger}
}

// ClientIPAndPath keys requests by client address and route.
func ClientIPAndPath(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host + ":" + strings.TrimSuffix(r.URL.Path, "/")
}

func (rl *RateLimiter) MiddlewareByKey(keyFunc func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			redisKey := fmt.Sprintf("%s:%s", rl.Prefix, keyFunc(r))

			count, err := rl.Redis.Incr(ctx, redisKey).Result()
			if err != nil {
				// fail open when Redis is unreachable
				rl.Logger.Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rl.Redis.Expire(ctx, redisKey, rl.Window)
			}
			if count > int64(rl.Limit) {
				if ttl, err := rl.Redis.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
				}
				utils.JSONDetail(w, http.StatusTooManyRequests, "Request was throttled.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
