package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIPGuard keeps the per-IP failure counters in Redis. Key TTLs are the
// cleanup mechanism: counters and locks expire on their own once the window
// elapses, no sweep job needed.
type RedisIPGuard struct {
	client redis.UniversalClient
	prefix string
	policy IPGuardPolicy
}

func NewRedisIPGuard(client redis.UniversalClient, prefix string, policy IPGuardPolicy) *RedisIPGuard {
	if prefix == "" {
		prefix = "ip_guard"
	}
	return &RedisIPGuard{client: client, prefix: prefix, policy: policy.normalize()}
}

func (g *RedisIPGuard) Check(ctx context.Context, ip string) (time.Duration, error) {
	ttl, err := g.client.PTTL(ctx, g.lockKey(ip)).Result()
	if err != nil {
		return 0, fmt.Errorf("read ip lock ttl: %w", err)
	}
	if ttl <= 0 {
		// -1 (no expiry) and -2 (no key) both mean the IP is not locked.
		return 0, nil
	}
	return ttl, nil
}

func (g *RedisIPGuard) RegisterFailure(ctx context.Context, ip string) (time.Duration, error) {
	countKey := g.countKey(ip)
	count, err := g.client.Incr(ctx, countKey).Result()
	if err != nil {
		return 0, fmt.Errorf("increment ip failure count: %w", err)
	}
	if count == 1 {
		if err := g.client.Expire(ctx, countKey, g.policy.LockWindow).Err(); err != nil {
			return 0, fmt.Errorf("expire ip failure count: %w", err)
		}
	}
	if count <= int64(g.policy.MaxAttempts) {
		return 0, nil
	}
	if err := g.client.Set(ctx, g.lockKey(ip), "1", g.policy.LockWindow).Err(); err != nil {
		return 0, fmt.Errorf("set ip lock: %w", err)
	}
	return g.policy.LockWindow, nil
}

func (g *RedisIPGuard) Reset(ctx context.Context, ip string) error {
	if err := g.client.Del(ctx, g.countKey(ip), g.lockKey(ip)).Err(); err != nil {
		return fmt.Errorf("reset ip guard: %w", err)
	}
	return nil
}

func (g *RedisIPGuard) countKey(ip string) string { return g.prefix + ":count:" + ip }
func (g *RedisIPGuard) lockKey(ip string) string  { return g.prefix + ":lock:" + ip }
