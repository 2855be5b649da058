package market

import (
	"context"
	"strings"
	"sync"
	"time"
)

// CachedSource 按符号缓存行情快照，TTL 内的重复查询不再触达底层数据源。
type CachedSource struct {
	source Source
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	snapshot  Snapshot
	fetchedAt time.Time
}

// 可在测试中替换以固定时间。
var cacheNow = time.Now

// NewCachedSource 包装底层数据源。ttl 不为正时退化为直通。
func NewCachedSource(source Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source:  source,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Fetch 实现 Source 接口。
func (s *CachedSource) Fetch(ctx context.Context, symbol, vsCurrency string) (Snapshot, error) {
	if s.ttl <= 0 {
		return s.source.Fetch(ctx, symbol, vsCurrency)
	}

	key := strings.ToLower(strings.TrimSpace(symbol)) + "/" + normalizeVsCurrency(vsCurrency)

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if ok && cacheNow().Sub(entry.fetchedAt) < s.ttl {
		return entry.snapshot, nil
	}

	snapshot, err := s.source.Fetch(ctx, symbol, vsCurrency)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	s.entries[key] = cacheEntry{snapshot: snapshot, fetchedAt: cacheNow()}
	s.mu.Unlock()
	return snapshot, nil
}
