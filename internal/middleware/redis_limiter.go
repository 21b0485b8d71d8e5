package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindow bumps the counter and starts its expiry on the first hit of a window.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter shares fixed-window counters between processes.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	size   time.Duration
	max    int
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, size time.Duration, max int) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, size: size, max: max}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := incrWindow.Run(ctx, l.client, []string{l.prefix + ":" + key}, l.size.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	return n <= int64(l.max), nil
}
