package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript はカウンタの加算と初回のTTL設定を原子的に行う。
// 戻り値は {count, pttl(ms)}。
var hitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore は複数プロセスでウィンドウを共有するためのStore実装。
// 上限到達後もINCRは続くが、返すカウントはmax+1以上になるため判定は変わらない。
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore は新しいRedisStoreを生成する。キーにはprefixが付与される。
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Hit はStoreインターフェースを実装する。
func (s *RedisStore) Hit(ctx context.Context, key string, _ int, window time.Duration) (int, time.Time, error) {
	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit hit: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("redis rate limit hit: unexpected reply length %d", len(res))
	}

	resetAt := s.now().Add(time.Duration(res[1]) * time.Millisecond)
	return int(res[0]), resetAt, nil
}
