package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/repository"
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired lease never removes a lock taken over by another run.
var releaseScript = redislib.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type runLocker struct {
	client *redislib.Client
	prefix string
}

// NewRunLocker creates a Redis-backed advisory lock keyed by therapist pool.
func NewRunLocker(client *redislib.Client) repository.RunLocker {
	return &runLocker{
		client: client,
		prefix: "schedule:lock:",
	}
}

func (l *runLocker) Acquire(ctx context.Context, pool string, ttl time.Duration) (repository.Lease, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(pool), token, ttl).Result()
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "lock store unavailable", err)
	}
	if !ok {
		return nil, domain.Detail(domain.ErrRunInProgress, "pool %s", pool)
	}
	return &lease{client: l.client, key: l.key(pool), token: token}, nil
}

func (l *runLocker) key(pool string) string {
	return fmt.Sprintf("%s%s", l.prefix, pool)
}

type lease struct {
	client *redislib.Client
	key    string
	token  string
}

func (l *lease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
