package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("lock held by another owner")

// Releases the key only if it still carries our owner value.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-instance lease acquired with SET NX PX.
type Lock struct {
	rdb   goredis.Cmdable
	key   string
	owner string
}

// Acquire takes key for ttl or returns ErrLockHeld.
func Acquire(ctx context.Context, rdb goredis.Cmdable, key string, ttl time.Duration) (*Lock, error) {
	owner := uuid.NewString()
	ok, err := rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %q: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{rdb: rdb, key: key, owner: owner}, nil
}

// Release drops the lease if it has not expired and been taken over.
func (l *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.owner).Err(); err != nil {
		return fmt.Errorf("redis unlock %q: %w", l.key, err)
	}
	return nil
}
