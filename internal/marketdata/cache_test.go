package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func newCacheFixture(t *testing.T) (*StaticSource, *CachedSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	upstream := NewStaticSource()
	return upstream, NewCachedSource(upstream, client, time.Minute), mr
}

func TestStaticSourceQuote(t *testing.T) {
	src := NewStaticSource()
	src.SetQuote("ACME", decimal.RequireFromString("12.34"))

	q, err := src.Quote(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !q.Price.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("price %s, want 12.34", q.Price)
	}

	if _, err := src.Quote(context.Background(), "NOPE"); !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestCachedSourceServesFromCache(t *testing.T) {
	upstream, cached, _ := newCacheFixture(t)
	ctx := context.Background()

	first, err := cached.Quote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("first quote: %v", err)
	}

	// A later upstream change is invisible until the cache entry expires.
	upstream.SetQuote("AAPL", decimal.RequireFromString("999.99"))

	second, err := cached.Quote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("second quote: %v", err)
	}
	if !second.Price.Equal(first.Price) {
		t.Fatalf("expected cached price %s, got %s", first.Price, second.Price)
	}
}

func TestCachedSourceRefreshesAfterTTL(t *testing.T) {
	upstream, cached, mr := newCacheFixture(t)
	ctx := context.Background()

	if _, err := cached.Quote(ctx, "AAPL"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	upstream.SetQuote("AAPL", decimal.RequireFromString("999.99"))
	mr.FastForward(2 * time.Minute)

	q, err := cached.Quote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("quote after expiry: %v", err)
	}
	if !q.Price.Equal(decimal.RequireFromString("999.99")) {
		t.Fatalf("expected refreshed price 999.99, got %s", q.Price)
	}
}

func TestCachedSourcePropagatesUnknownSymbol(t *testing.T) {
	_, cached, _ := newCacheFixture(t)
	if _, err := cached.Quote(context.Background(), "NOPE"); !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
}
