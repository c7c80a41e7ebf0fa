package cache

import (
	"context"
	"sync"
	"time"

	"GameSync/internal/interfaces"
)

type memoryEntry struct {
	value    []byte
	expireAt time.Time
}

// MemoryCache 进程内缓存，Redis 不可用时兜底
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, interfaces.ErrCacheMiss
	}
	if !e.expireAt.IsZero() && !c.now().Before(e.expireAt) {
		c.remove(key)
		return nil, interfaces.ErrCacheMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)
	e := memoryEntry{value: v}
	if ttl > 0 {
		e.expireAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete 删除键（不存在时忽略）
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.remove(key)
	return nil
}

func (c *MemoryCache) remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
