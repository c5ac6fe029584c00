package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker 基于 SET NX PX 的跨副本互斥；只有持有者能释放
type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker { return &Locker{rdb: rdb} }

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func lockKey(name string) string { return "vl:lock:" + name }

// TryLock returns ok=false without error when another holder owns the lock.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	token := uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() {
		// 调用方的 ctx 可能已取消，释放用独立的短超时
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.rdb, []string{lockKey(name)}, token).Err()
	}, true, nil
}

// Once 在 ttl 内对同一个 key 只返回一次 true（提醒去重、节流）
func (l *Locker) Once(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, "vl:once:"+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return ok, err
}
