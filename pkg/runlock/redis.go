package runlock

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisTTL = 30 * time.Minute

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis takes a SET NX lock with a TTL so a crashed holder cannot block
// later runs forever. Only the token owner can release it.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Acquire(ctx context.Context, key string) (Lease, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis setnx")
	}
	if !ok {
		return nil, errors.Wrapf(ErrLocked, "key %s", key)
	}
	return &redisLease{client: r.client, key: key, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
	once   sync.Once
	err    error
}

func (l *redisLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
			l.err = errors.Wrap(err, "redis release")
		}
	})
	return l.err
}
