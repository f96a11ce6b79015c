package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads L1 then L2 and backfills L1 on an L2 hit. Writes go to
// L2 first, then L1. An L2 read error degrades to a miss so the provider is
// still reachable when Redis is down.
type LayeredCache struct {
	l1    BytesCache
	l2    BytesCache
	l1TTL time.Duration
	rec   LookupRecorder
}

// NewLayeredCache builds the tiered cache. l2 may be nil, in which case only
// the L1 tier is used. l1TTL caps how long an L2 hit lives in memory.
func NewLayeredCache(l1, l2 BytesCache, l1TTL time.Duration, rec LookupRecorder) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2, l1TTL: l1TTL, rec: rec}
}

func (lc *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if b, err := lc.l1.GetBytes(ctx, key); err == nil {
		lc.record("l1", true)
		return b, nil
	}
	lc.record("l1", false)
	if lc.l2 == nil {
		return nil, ErrCacheMiss
	}

	b, err := lc.l2.GetBytes(ctx, key)
	if err != nil {
		lc.record("l2", false)
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, errors.Join(ErrCacheMiss, err)
	}
	lc.record("l2", true)
	_ = lc.l1.SetBytes(ctx, key, b, lc.l1TTL)
	return b, nil
}

func (lc *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if lc.l2 != nil {
		if err := lc.l2.SetBytes(ctx, key, value, ttl); err != nil {
			_ = lc.l1.SetBytes(ctx, key, value, lc.cap(ttl))
			return err
		}
	}
	return lc.l1.SetBytes(ctx, key, value, lc.cap(ttl))
}

func (lc *LayeredCache) cap(ttl time.Duration) time.Duration {
	if lc.l1TTL > 0 && (ttl <= 0 || ttl > lc.l1TTL) {
		return lc.l1TTL
	}
	return ttl
}

func (lc *LayeredCache) record(tier string, hit bool) {
	if lc.rec != nil {
		lc.rec.RecordCacheLookup(tier, hit)
	}
}
