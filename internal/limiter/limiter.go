package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Strategy decides whether one more hit on key fits inside the limit.
type Strategy interface {
	Allow(ctx context.Context, rdb redis.Scripter, key string, limit int, window time.Duration) (bool, error)
}

// Manager binds a strategy to a redis client.
type Manager struct {
	rdb      redis.Scripter
	strategy Strategy
}

// NewManager creates a limiter that runs strategy against rdb.
func NewManager(rdb redis.Scripter, strategy Strategy) *Manager {
	return &Manager{
		rdb:      rdb,
		strategy: strategy,
	}
}

func (m *Manager) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return m.strategy.Allow(ctx, m.rdb, key, limit, window)
}

// INCR and EXPIRE run in one script so a counter never outlives its window.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`)

// FixedWindowStrategy counts hits per key and resets the count when the window expires.
type FixedWindowStrategy struct{}

func (FixedWindowStrategy) Allow(ctx context.Context, rdb redis.Scripter, key string, limit int, window time.Duration) (bool, error) {
	result, err := fixedWindowScript.Run(ctx, rdb, []string{key}, limit, window.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
