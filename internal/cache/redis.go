// Package cache caches price quotes in Redis so repeated portfolio loads
// do not hammer the quote source. Cache failures are never fatal; callers
// fall through to the underlying source.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkstocker/portfolio-service/internal/pricefeed"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when no cached quote exists for a ticker.
var ErrMiss = errors.New("cache miss")

// QuoteCache stores quotes as JSON blobs with a TTL.
type QuoteCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewQuoteCache creates a quote cache on top of a connected Redis client.
func NewQuoteCache(client *redis.Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{redis: client, ttl: ttl}
}

func quoteKey(ticker string) string {
	return "quote:" + ticker
}

// GetQuote returns the cached quote for a ticker, or ErrMiss.
func (c *QuoteCache) GetQuote(ctx context.Context, ticker string) (pricefeed.Quote, error) {
	res, err := c.redis.Get(ctx, quoteKey(ticker)).Result()
	if errors.Is(err, redis.Nil) {
		return pricefeed.Quote{}, ErrMiss
	}
	if err != nil {
		return pricefeed.Quote{}, fmt.Errorf("failed to get quote from redis: %w", err)
	}

	var q pricefeed.Quote
	if err := json.Unmarshal([]byte(res), &q); err != nil {
		return pricefeed.Quote{}, fmt.Errorf("failed to unmarshal cached quote: %w", err)
	}
	return q, nil
}

// SetQuote caches a quote for the configured TTL.
func (c *QuoteCache) SetQuote(ctx context.Context, q pricefeed.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	if err := c.redis.Set(ctx, quoteKey(q.Ticker), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set quote in redis: %w", err)
	}
	return nil
}

// CachedSource wraps a price source with the quote cache.
type CachedSource struct {
	source pricefeed.Source
	cache  *QuoteCache
}

// NewCachedSource wraps source with cache.
func NewCachedSource(source pricefeed.Source, cache *QuoteCache) *CachedSource {
	return &CachedSource{source: source, cache: cache}
}

// CurrentPrice serves from the cache when possible and refreshes it on a
// miss. Redis errors are logged and treated as misses.
func (s *CachedSource) CurrentPrice(ctx context.Context, ticker string) (pricefeed.Quote, error) {
	q, err := s.cache.GetQuote(ctx, ticker)
	if err == nil {
		return q, nil
	}
	if !errors.Is(err, ErrMiss) {
		slog.Warn("quote cache read failed", slog.String("ticker", ticker), slog.String("err", err.Error()))
	}

	q, err = s.source.CurrentPrice(ctx, ticker)
	if err != nil {
		return pricefeed.Quote{}, err
	}

	if err := s.cache.SetQuote(ctx, q); err != nil {
		slog.Warn("quote cache write failed", slog.String("ticker", ticker), slog.String("err", err.Error()))
	}
	return q, nil
}

// HistoricalPrices is not cached; it passes through to the source.
func (s *CachedSource) HistoricalPrices(ctx context.Context, ticker, period string) ([]pricefeed.PricePoint, error) {
	return s.source.HistoricalPrices(ctx, ticker, period)
}
