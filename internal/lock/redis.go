// Package lock распределённые блокировки для фоновых задач.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Снимаем блокировку, только если она всё ещё наша
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker блокировка на SET NX PX
type RedisLocker struct {
	client redis.Cmdable
	token  func() string
}

// NewRedisLocker создаёт блокировщик поверх клиента Redis
func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client, token: uuid.NewString}
}

// TryLock пытается взять блокировку на ttl.
// Если блокировка занята, возвращает ok=false без ошибки.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := l.token()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}

	return release, true, nil
}
