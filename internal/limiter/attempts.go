package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var incrWithTTLScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// PasswordAttempts counts failed room-password attempts per (room, user).
// Once max failures land inside window the pair stays blocked until the
// counter expires.
type PasswordAttempts struct {
	rdb    redis.Cmdable
	max    int
	window time.Duration
}

// NewPasswordAttempts blocks a (room, user) pair after max failures within window.
func NewPasswordAttempts(rdb redis.Cmdable, max int, window time.Duration) *PasswordAttempts {
	return &PasswordAttempts{rdb: rdb, max: max, window: window}
}

func attemptKey(roomID uuid.UUID, userID uint) string {
	return fmt.Sprintf("room:pwfail:%s:%d", roomID, userID)
}

func (p *PasswordAttempts) Blocked(ctx context.Context, roomID uuid.UUID, userID uint) (bool, error) {
	n, err := p.rdb.Get(ctx, attemptKey(roomID, userID)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= p.max, nil
}

func (p *PasswordAttempts) RecordFailure(ctx context.Context, roomID uuid.UUID, userID uint) error {
	return incrWithTTLScript.Run(ctx, p.rdb, []string{attemptKey(roomID, userID)}, p.window.Milliseconds()).Err()
}

func (p *PasswordAttempts) Reset(ctx context.Context, roomID uuid.UUID, userID uint) error {
	return p.rdb.Del(ctx, attemptKey(roomID, userID)).Err()
}
