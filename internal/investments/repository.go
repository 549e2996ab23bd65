package investments

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrInvestmentNotFound occurs when the referenced position does not exist.
	ErrInvestmentNotFound = errors.New("investment not found")

	// ErrTradeNotFound occurs when the referenced trade does not exist.
	ErrTradeNotFound = errors.New("trade not found")
)

// Repository persists investment positions and trades.
type Repository interface {
	CreateInvestment(ctx context.Context, inv *Investment) error
	Investment(ctx context.Context, id uuid.UUID) (*Investment, error)
	// ActivePosition finds the customer's open position in a symbol, or
	// ErrInvestmentNotFound.
	ActivePosition(ctx context.Context, customerID uuid.UUID, symbol string) (*Investment, error)
	// ActivePositionsBySymbol lists every open position in the symbol,
	// across customers.
	ActivePositionsBySymbol(ctx context.Context, symbol string) ([]Investment, error)
	InvestmentsForCustomer(ctx context.Context, customerID uuid.UUID) ([]Investment, error)
	UpdateInvestment(ctx context.Context, inv *Investment) error

	CreateTrade(ctx context.Context, trade *Trade) error
	Trade(ctx context.Context, id uuid.UUID) (*Trade, error)
	UpdateTrade(ctx context.Context, trade *Trade) error
	// TradesForCustomer returns the customer's trades newest first, at
	// most limit rows.
	TradesForCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]Trade, error)
}
