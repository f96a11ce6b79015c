package marketdata

import (
	"context"
	"fmt"
	"time"

	"StockSignal/internal/domain/models"
	"StockSignal/internal/domain/repository"
	"StockSignal/internal/service/cache"
	applogger "StockSignal/pkg/logger"
)

// TTLs per kind of provider response. Zero disables caching of that kind.
type TTLs struct {
	Quote        time.Duration
	History      time.Duration
	Fundamentals time.Duration
}

// Cached decorates a MarketData source with a byte cache. Cache failures are
// logged and never fail the request.
type Cached struct {
	next  repository.MarketData
	store cache.BytesCache
	ttl   TTLs
	log   *applogger.Logger
}

func NewCached(next repository.MarketData, store cache.BytesCache, ttl TTLs, l *applogger.Logger) *Cached {
	if l == nil {
		l = applogger.Nop()
	}
	return &Cached{next: next, store: store, ttl: ttl, log: l}
}

func (c *Cached) History(ctx context.Context, symbol string, interval repository.Interval, n int) (models.Series, error) {
	key := fmt.Sprintf("history:%s:%s:%d", interval, symbol, n)
	return through(ctx, c, key, c.ttl.History, func() (models.Series, error) {
		return c.next.History(ctx, symbol, interval, n)
	})
}

func (c *Cached) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	return through(ctx, c, "quote:"+symbol, c.ttl.Quote, func() (models.Quote, error) {
		return c.next.Quote(ctx, symbol)
	})
}

func (c *Cached) Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error) {
	return through(ctx, c, "overview:"+symbol, c.ttl.Fundamentals, func() (models.Fundamentals, error) {
		return c.next.Fundamentals(ctx, symbol)
	})
}

func through[T any](ctx context.Context, c *Cached, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if ttl <= 0 {
		return load()
	}
	v, err := cache.GetJSON[T](ctx, c.store, key)
	if err == nil {
		return v, nil
	}
	if err != cache.ErrCacheMiss {
		c.log.Debug("cache read degraded", applogger.String("key", key), applogger.Error(err))
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := cache.SetJSON(ctx, c.store, key, v, ttl); err != nil {
		c.log.Warn("cache write", applogger.String("key", key), applogger.Error(err))
	}
	return v, nil
}
