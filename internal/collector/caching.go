package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"SwingScout/internal/model"
)

// CachingFetcher memoises history and latest prices for ttl. A scan and the
// following update pass often ask for the same symbols.
type CachingFetcher struct {
	inner Fetcher
	cache *cache.Cache
}

func NewCachingFetcher(inner Fetcher, ttl time.Duration) *CachingFetcher {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingFetcher{inner: inner, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachingFetcher) Name() string { return c.inner.Name() }

func (c *CachingFetcher) GetHistory(ctx context.Context, market model.Market, symbol string, lookbackDays int, interval Interval) ([]model.PriceBar, error) {
	key := fmt.Sprintf("hist|%s|%s|%d|%s", market, symbol, lookbackDays, interval)
	if v, ok := c.cache.Get(key); ok {
		return v.([]model.PriceBar), nil
	}
	bars, err := c.inner.GetHistory(ctx, market, symbol, lookbackDays, interval)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, bars)
	return bars, nil
}

func (c *CachingFetcher) GetLatestPrice(ctx context.Context, market model.Market, symbol string) (float64, error) {
	key := fmt.Sprintf("px|%s|%s", market, symbol)
	if v, ok := c.cache.Get(key); ok {
		return v.(float64), nil
	}
	p, err := c.inner.GetLatestPrice(ctx, market, symbol)
	if err != nil {
		return 0, err
	}
	c.cache.SetDefault(key, p)
	return p, nil
}

// Flush drops every cached entry. The scheduler calls it before an update
// pass so hits are judged on fresh prices.
func (c *CachingFetcher) Flush() {
	c.cache.Flush()
}
