package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CachedSource wraps a Source with a Redis price cache. A hit within the TTL
// answers without touching the upstream source.
type CachedSource struct {
	upstream Source
	client   *redis.Client
	ttl      time.Duration
}

// NewCachedSource builds a caching layer over the given source.
func NewCachedSource(upstream Source, client *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{upstream: upstream, client: client, ttl: ttl}
}

func cacheKey(symbol string) string {
	return "marketdata:quote:" + symbol
}

func (c *CachedSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	cached, err := c.client.Get(ctx, cacheKey(symbol)).Result()
	if err == nil {
		if price, perr := decimal.NewFromString(cached); perr == nil {
			return Quote{Symbol: symbol, Price: price, AsOf: time.Now().UTC()}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return Quote{}, err
	}

	quote, err := c.upstream.Quote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	if err := c.client.Set(ctx, cacheKey(symbol), quote.Price.String(), c.ttl).Err(); err != nil {
		return Quote{}, err
	}
	return quote, nil
}
