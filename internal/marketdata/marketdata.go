// Package marketdata provides security price quotes. The static source
// stands in for a real provider feed; the cached source fronts any provider
// with Redis so repeated lookups within the TTL skip the upstream call.
package marketdata

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrSymbolNotFound occurs when the source has no quote for the symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// Quote is one price observation for a symbol.
type Quote struct {
	Symbol string
	Price  decimal.Decimal
	AsOf   time.Time
}

// Source supplies the latest quote for a symbol.
type Source interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// StaticSource serves quotes from a fixed in-memory table.
type StaticSource struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewStaticSource seeds a source with reference prices for common symbols.
func NewStaticSource() *StaticSource {
	s := &StaticSource{quotes: make(map[string]Quote)}
	for symbol, price := range map[string]string{
		"AAPL": "178.25",
		"MSFT": "415.80",
		"GOOG": "142.65",
		"SPY":  "502.10",
		"VTI":  "248.35",
		"BTC":  "64250.00",
		"ETH":  "3185.50",
	} {
		s.SetQuote(symbol, decimal.RequireFromString(price))
	}
	return s
}

// SetQuote inserts or replaces the quote for a symbol.
func (s *StaticSource) SetQuote(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[symbol] = Quote{Symbol: symbol, Price: price, AsOf: time.Now().UTC()}
}

func (s *StaticSource) Quote(_ context.Context, symbol string) (Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return Quote{}, ErrSymbolNotFound
	}
	return q, nil
}
