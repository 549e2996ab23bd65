package investments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu          sync.RWMutex
	investments map[uuid.UUID]Investment
	trades      map[uuid.UUID]Trade
	tradeOrder  []uuid.UUID
}

// NewMemoryRepository constructs an in-memory repository for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		investments: make(map[uuid.UUID]Investment),
		trades:      make(map[uuid.UUID]Trade),
	}
}

func (r *memoryRepository) CreateInvestment(_ context.Context, inv *Investment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.OpenedAt.IsZero() {
		inv.OpenedAt = time.Now().UTC()
	}
	r.investments[inv.ID] = *inv
	return nil
}

func (r *memoryRepository) Investment(_ context.Context, id uuid.UUID) (*Investment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.investments[id]
	if !ok {
		return nil, ErrInvestmentNotFound
	}
	return &inv, nil
}

func (r *memoryRepository) ActivePosition(_ context.Context, customerID uuid.UUID, symbol string) (*Investment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inv := range r.investments {
		if inv.CustomerID == customerID && inv.Symbol == symbol && inv.Status == PositionActive {
			out := inv
			return &out, nil
		}
	}
	return nil, ErrInvestmentNotFound
}

func (r *memoryRepository) ActivePositionsBySymbol(_ context.Context, symbol string) ([]Investment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Investment
	for _, inv := range r.investments {
		if inv.Symbol == symbol && inv.Status == PositionActive {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *memoryRepository) InvestmentsForCustomer(_ context.Context, customerID uuid.UUID) ([]Investment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Investment
	for _, inv := range r.investments {
		if inv.CustomerID == customerID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (r *memoryRepository) UpdateInvestment(_ context.Context, inv *Investment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.investments[inv.ID]; !ok {
		return ErrInvestmentNotFound
	}
	r.investments[inv.ID] = *inv
	return nil
}

func (r *memoryRepository) CreateTrade(_ context.Context, trade *Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if trade.ID == uuid.Nil {
		trade.ID = uuid.New()
	}
	if trade.OrderDate.IsZero() {
		trade.OrderDate = time.Now().UTC()
	}
	r.trades[trade.ID] = *trade
	r.tradeOrder = append(r.tradeOrder, trade.ID)
	return nil
}

func (r *memoryRepository) Trade(_ context.Context, id uuid.UUID) (*Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	trade, ok := r.trades[id]
	if !ok {
		return nil, ErrTradeNotFound
	}
	return &trade, nil
}

func (r *memoryRepository) UpdateTrade(_ context.Context, trade *Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trades[trade.ID]; !ok {
		return ErrTradeNotFound
	}
	r.trades[trade.ID] = *trade
	return nil
}

func (r *memoryRepository) TradesForCustomer(_ context.Context, customerID uuid.UUID, limit int) ([]Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := make(map[uuid.UUID]bool)
	for _, inv := range r.investments {
		if inv.CustomerID == customerID {
			owned[inv.ID] = true
		}
	}

	var out []Trade
	for i := len(r.tradeOrder) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		trade := r.trades[r.tradeOrder[i]]
		if owned[trade.InvestmentID] {
			out = append(out, trade)
		}
	}
	return out, nil
}
