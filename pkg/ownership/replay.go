package ownership

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard records redeemed challenges. Claim reports true the first time
// a message is claimed within ttl and false afterwards. Release drops a
// claim whose submission was not recorded.
type ReplayGuard interface {
	Claim(ctx context.Context, message string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, message string) error
}

// MemoryReplayGuard keeps claims in process.
type MemoryReplayGuard struct {
	mu      sync.Mutex
	claimed map[string]time.Time
	clock   func() time.Time
}

func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{claimed: make(map[string]time.Time), clock: time.Now}
}

func (g *MemoryReplayGuard) Claim(_ context.Context, message string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	for m, exp := range g.claimed {
		if !now.Before(exp) {
			delete(g.claimed, m)
		}
	}
	if _, ok := g.claimed[message]; ok {
		return false, nil
	}
	g.claimed[message] = now.Add(ttl)
	return true, nil
}

func (g *MemoryReplayGuard) Release(_ context.Context, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, message)
	return nil
}

// RedisReplayGuard shares claims across replicas with SET NX.
type RedisReplayGuard struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisReplayGuard creates a guard backed by Redis.
func NewRedisReplayGuard(addr string, password string, db int) *RedisReplayGuard {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisReplayGuardFromClient(rdb)
}

func NewRedisReplayGuardFromClient(client redis.UniversalClient) *RedisReplayGuard {
	return &RedisReplayGuard{client: client, prefix: "notary:challenge:"}
}

func (g *RedisReplayGuard) Claim(ctx context.Context, message string, ttl time.Duration) (bool, error) {
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := g.client.SetNX(ctx, g.prefix+message, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis replay guard error: %w", err)
	}
	return ok, nil
}

func (g *RedisReplayGuard) Release(ctx context.Context, message string) error {
	if err := g.client.Del(ctx, g.prefix+message).Err(); err != nil {
		return fmt.Errorf("redis replay guard error: %w", err)
	}
	return nil
}

func (g *RedisReplayGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func (g *RedisReplayGuard) Close() error {
	return g.client.Close()
}
