package investments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Investment and trade statuses.
const (
	PositionActive = "active"
	PositionClosed = "closed"

	TradeBuy  = "buy"
	TradeSell = "sell"

	TradePending  = "pending"
	TradeExecuted = "executed"
	TradeFailed   = "failed"
)

// SecurityTypes enumerates the tradable instrument classes.
var SecurityTypes = map[string]string{
	"stock":       "Individual Stocks",
	"etf":         "Exchange-Traded Funds",
	"mutual_fund": "Mutual Funds",
	"bond":        "Bonds",
	"crypto":      "Cryptocurrency",
}

// Investment is one position per customer and symbol. Quantity and average
// cost mutate as trades execute; price fields refresh from market data.
type Investment struct {
	ID                 uuid.UUID
	Reference          string
	CustomerID         uuid.UUID
	AccountID          uuid.UUID
	Symbol             string
	SecurityName       string
	SecurityType       string
	Quantity           decimal.Decimal
	AverageCost        decimal.Decimal
	CurrentPrice       decimal.Decimal
	MarketValue        decimal.Decimal
	UnrealizedGainLoss decimal.Decimal
	Status             string
	OpenedAt           time.Time
	ClosedAt           *time.Time
}

// Trade is one buy or sell order against a position.
type Trade struct {
	ID             uuid.UUID
	Reference      string
	InvestmentID   uuid.UUID
	TradeType      string
	Symbol         string
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	TotalAmount    decimal.Decimal
	Commission     decimal.Decimal
	Fees           decimal.Decimal
	Status         string
	OrderDate      time.Time
	ExecutionDate  *time.Time
	SettlementDate *time.Time
}
