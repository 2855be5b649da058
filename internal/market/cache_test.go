package market

import (
	"context"
	"testing"
	"time"
)

type countingSource struct {
	calls int
	inner Source
}

func (s *countingSource) Fetch(ctx context.Context, symbol, vsCurrency string) (Snapshot, error) {
	s.calls++
	return s.inner.Fetch(ctx, symbol, vsCurrency)
}

func TestCachedSourceHitsWithinTTL(t *testing.T) {
	counting := &countingSource{inner: NewMockSource()}
	cached := NewCachedSource(counting, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cached.Fetch(context.Background(), "btc", "usd"); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if counting.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", counting.calls)
	}

	if _, err := cached.Fetch(context.Background(), "eth", "usd"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if counting.calls != 2 {
		t.Fatalf("expected separate entry per symbol, got %d calls", counting.calls)
	}
}

func TestCachedSourceExpires(t *testing.T) {
	counting := &countingSource{inner: NewMockSource()}
	cached := NewCachedSource(counting, time.Minute)

	base := time.Now()
	cacheNow = func() time.Time { return base }
	defer func() { cacheNow = time.Now }()

	if _, err := cached.Fetch(context.Background(), "btc", "usd"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	cacheNow = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := cached.Fetch(context.Background(), "btc", "usd"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if counting.calls != 2 {
		t.Fatalf("expected refetch after ttl, got %d calls", counting.calls)
	}
}

func TestCachedSourceZeroTTLPassesThrough(t *testing.T) {
	counting := &countingSource{inner: NewMockSource()}
	cached := NewCachedSource(counting, 0)

	for i := 0; i < 2; i++ {
		if _, err := cached.Fetch(context.Background(), "btc", "usd"); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if counting.calls != 2 {
		t.Fatalf("expected passthrough, got %d calls", counting.calls)
	}
}
