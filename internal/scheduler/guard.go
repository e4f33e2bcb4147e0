package scheduler

import (
	"context"
	"sync"
	"time"
)

// RunLock 跨实例互斥；ok=false 表示其他实例正在执行
type RunLock interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

// LastRunStore 最近一次成功执行时间；从未执行时返回零值
type LastRunStore interface {
	Get(ctx context.Context) (time.Time, error)
	Set(ctx context.Context, t time.Time) error
}

// ── 单实例实现 ──

// LocalLock 单实例部署使用；进程内互斥已由 running 标记保证
type LocalLock struct{}

func (LocalLock) Acquire(context.Context, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

// MemoryStore 进程内保存最近执行时间，重启后清零
type MemoryStore struct {
	mu sync.RWMutex
	t  time.Time
}

func (m *MemoryStore) Get(context.Context) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t, nil
}

func (m *MemoryStore) Set(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = t
	return nil
}

// ── Redis 实现 ──

// LeaseClient Redis 租约锁与时间戳（*redis.Client 实现）
type LeaseClient interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
	SetTime(ctx context.Context, key string, t time.Time) error
	GetTime(ctx context.Context, key string) (time.Time, error)
}

const (
	lockKey    = "moving:completion:lock"
	lastRunKey = "moving:completion:last_run"
)

// RedisLock SET NX PX 租约锁，租约到期自动释放，避免实例崩溃后永久占用
type RedisLock struct {
	client LeaseClient
}

// NewRedisLock 创建 Redis 租约锁
func NewRedisLock(client LeaseClient) *RedisLock {
	return &RedisLock{client: client}
}

func (l *RedisLock) Acquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token, ok, err := l.client.AcquireLock(ctx, lockKey, ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// 调用方 ctx 可能已取消，释放使用独立的短超时
		rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = l.client.ReleaseLock(rctx, lockKey, token)
	}
	return release, true, nil
}

// RedisStore 最近执行时间保存在 Redis，多实例共享
type RedisStore struct {
	client LeaseClient
}

// NewRedisStore 创建 Redis 时间戳存储
func NewRedisStore(client LeaseClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context) (time.Time, error) {
	return s.client.GetTime(ctx, lastRunKey)
}

func (s *RedisStore) Set(ctx context.Context, t time.Time) error {
	return s.client.SetTime(ctx, lastRunKey, t)
}
