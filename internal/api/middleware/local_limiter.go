package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter 进程内令牌桶限流，Redis 不可用时代替滑动窗口
// 每个 key 一个桶：容量 limit，每 window/limit 补充一个令牌
type LocalLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*localBucket
	idleTTL  time.Duration
	now      func() time.Time
	lastScan time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter 创建进程内限流器；idleTTL 内未访问的桶会被回收
func NewLocalLimiter(idleTTL time.Duration) *LocalLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &LocalLimiter{
		buckets: make(map[string]*localBucket),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// CheckRateLimit 实现 Limiter
func (l *LocalLimiter) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictIdle(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1), nil
}

// evictIdle 至多每个 idleTTL 扫描一次
func (l *LocalLimiter) evictIdle(now time.Time) {
	if now.Sub(l.lastScan) < l.idleTTL {
		return
	}
	l.lastScan = now
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, k)
		}
	}
}
