package investments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/marketdata"
)

// ErrInvalidState indicates an operation against a trade or position in the
// wrong lifecycle state.
var ErrInvalidState = ledger.ErrInvalidState

// ErrInsufficientHoldings rejects sells that exceed the position quantity.
var ErrInsufficientHoldings = fmt.Errorf("insufficient holdings: %w", ledger.ErrInsufficientFunds)

// Commission schedule: bonds pay a flat fee, crypto a percentage, the rest
// trade free.
var (
	bondCommission     = decimal.RequireFromString("10.00")
	cryptoCommissionPt = decimal.RequireFromString("0.01")
)

// Commission computes the commission for a trade of the given security type
// and gross amount.
func Commission(securityType string, totalAmount decimal.Decimal) decimal.Decimal {
	switch securityType {
	case "bond":
		return bondCommission
	case "crypto":
		return totalAmount.Mul(cryptoCommissionPt)
	default:
		return decimal.Zero
	}
}

// Service manages positions and trade execution.
type Service struct {
	repo     Repository
	accounts ledger.Store
	prices   marketdata.Source
	logger   *slog.Logger
	auditor  audit.Recorder
	now      func() time.Time
}

// NewService builds an investment service instance.
func NewService(repo Repository, accounts ledger.Store, prices marketdata.Source, logger *slog.Logger, auditor audit.Recorder) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		prices:   prices,
		logger:   logger,
		auditor:  auditor,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OpenPosition creates an empty active position for the customer. The linked
// account anchors the position to a funded relationship.
func (s *Service) OpenPosition(ctx context.Context, customerID, accountID uuid.UUID, symbol, securityType string) (*Investment, error) {
	if _, ok := SecurityTypes[securityType]; !ok {
		return nil, fmt.Errorf("invalid security type: %q", securityType)
	}

	inv := &Investment{
		ID:           uuid.New(),
		Reference:    ledger.NewReference("INV", 10),
		CustomerID:   customerID,
		AccountID:    accountID,
		Symbol:       symbol,
		SecurityType: securityType,
		Quantity:     decimal.Zero,
		Status:       PositionActive,
		OpenedAt:     s.now(),
	}
	if err := s.repo.CreateInvestment(ctx, inv); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("position opened", "reference", inv.Reference,
			"symbol", symbol, "type", securityType)
	}
	return inv, nil
}

// OrderInput captures one buy or sell request.
type OrderInput struct {
	CustomerID   uuid.UUID
	TradeType    string
	Symbol       string
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	SecurityType string
}

// PlaceOrder records a pending trade against the customer's position in the
// symbol, creating the position if needed, then executes it synchronously.
func (s *Service) PlaceOrder(ctx context.Context, in OrderInput) (*Trade, error) {
	if in.TradeType != TradeBuy && in.TradeType != TradeSell {
		return nil, fmt.Errorf("trade type must be %q or %q, got %q", TradeBuy, TradeSell, in.TradeType)
	}
	if !in.Quantity.IsPositive() || !in.Price.IsPositive() {
		return nil, fmt.Errorf("trade quantity and price must be positive")
	}
	securityType := in.SecurityType
	if securityType == "" {
		securityType = "stock"
	}

	inv, err := s.repo.ActivePosition(ctx, in.CustomerID, in.Symbol)
	if err != nil {
		if !errors.Is(err, ErrInvestmentNotFound) {
			return nil, err
		}
		account, aerr := s.accounts.ActiveAccountForCustomer(ctx, in.CustomerID)
		if aerr != nil {
			return nil, fmt.Errorf("customer has no active account: %w", aerr)
		}
		if inv, err = s.OpenPosition(ctx, in.CustomerID, account.ID, in.Symbol, securityType); err != nil {
			return nil, err
		}
	}

	totalAmount := in.Quantity.Mul(in.Price)
	trade := &Trade{
		ID:           uuid.New(),
		Reference:    ledger.NewReference("TRD", 12),
		InvestmentID: inv.ID,
		TradeType:    in.TradeType,
		Symbol:       in.Symbol,
		Quantity:     in.Quantity,
		Price:        in.Price,
		TotalAmount:  totalAmount,
		Commission:   Commission(inv.SecurityType, totalAmount),
		Fees:         decimal.Zero,
		Status:       TradePending,
		OrderDate:    s.now(),
	}
	if err := s.repo.CreateTrade(ctx, trade); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("trade order placed", "reference", trade.Reference,
			"type", in.TradeType, "symbol", in.Symbol,
			"quantity", in.Quantity.String(), "price", in.Price.String())
	}

	return s.ExecuteTrade(ctx, trade.ID)
}

// ExecuteTrade applies a pending trade to its position. Buys fold the trade
// into a quantity-weighted average cost; sells reduce the position and close
// it at zero. A failed execution stamps the trade failed and returns the
// error.
func (s *Service) ExecuteTrade(ctx context.Context, tradeID uuid.UUID) (*Trade, error) {
	trade, err := s.repo.Trade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade.Status != TradePending {
		return nil, fmt.Errorf("%w: trade is %s, not pending", ErrInvalidState, trade.Status)
	}
	inv, err := s.repo.Investment(ctx, trade.InvestmentID)
	if err != nil {
		return nil, err
	}

	if err := s.applyTrade(ctx, trade, inv); err != nil {
		trade.Status = TradeFailed
		if uerr := s.repo.UpdateTrade(ctx, trade); uerr != nil {
			return nil, uerr
		}
		if s.logger != nil {
			s.logger.Error("trade execution failed", "reference", trade.Reference, "error", err)
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("trade executed", "reference", trade.Reference)
	}
	audit.Emit(ctx, s.auditor, audit.Event{
		Kind:      audit.KindTradeExecuted,
		Entity:    "trade",
		Reference: trade.Reference,
		Detail:    trade.TotalAmount.String(),
	})
	return trade, nil
}

func (s *Service) applyTrade(ctx context.Context, trade *Trade, inv *Investment) error {
	switch trade.TradeType {
	case TradeBuy:
		costBasis := inv.Quantity.Mul(inv.AverageCost)
		newQuantity := inv.Quantity.Add(trade.Quantity)
		inv.Quantity = newQuantity
		inv.AverageCost = costBasis.Add(trade.TotalAmount).Div(newQuantity)
	case TradeSell:
		if inv.Quantity.LessThan(trade.Quantity) {
			return fmt.Errorf("%w: available %s, requested %s",
				ErrInsufficientHoldings, inv.Quantity, trade.Quantity)
		}
		inv.Quantity = inv.Quantity.Sub(trade.Quantity)
		if inv.Quantity.IsZero() {
			now := s.now()
			inv.Status = PositionClosed
			inv.ClosedAt = &now
		}
	}
	if inv.SecurityName == "" {
		inv.SecurityName = trade.Symbol
	}
	if err := s.repo.UpdateInvestment(ctx, inv); err != nil {
		return err
	}

	now := s.now()
	trade.Status = TradeExecuted
	trade.ExecutionDate = &now
	trade.SettlementDate = &now
	return s.repo.UpdateTrade(ctx, trade)
}

// UpdateMarketPrices refreshes every open position in the symbol with the
// given price, recomputing market value and unrealized gain or loss.
func (s *Service) UpdateMarketPrices(ctx context.Context, symbol string, price decimal.Decimal) error {
	positions, err := s.repo.ActivePositionsBySymbol(ctx, symbol)
	if err != nil {
		return err
	}
	for i := range positions {
		inv := positions[i]
		inv.CurrentPrice = price
		inv.MarketValue = inv.Quantity.Mul(price)
		inv.UnrealizedGainLoss = inv.MarketValue.Sub(inv.Quantity.Mul(inv.AverageCost))
		if err := s.repo.UpdateInvestment(ctx, &inv); err != nil {
			return err
		}
	}
	if s.logger != nil {
		s.logger.Info("market prices updated", "symbol", symbol, "price", price.String())
	}
	return nil
}

// RefreshPrice pulls the latest quote for a symbol from the market data
// source and applies it to open positions.
func (s *Service) RefreshPrice(ctx context.Context, symbol string) error {
	if s.prices == nil {
		return fmt.Errorf("no market data source configured")
	}
	quote, err := s.prices.Quote(ctx, symbol)
	if err != nil {
		return err
	}
	return s.UpdateMarketPrices(ctx, symbol, quote.Price)
}

// Holding is one portfolio line.
type Holding struct {
	Symbol       string
	SecurityName string
	SecurityType string
	Quantity     decimal.Decimal
	AverageCost  decimal.Decimal
	CurrentPrice decimal.Decimal
	MarketValue  decimal.Decimal
	CostBasis    decimal.Decimal
	GainLoss     decimal.Decimal
	GainLossPct  decimal.Decimal
}

// PortfolioSummary aggregates a customer's open holdings.
type PortfolioSummary struct {
	TotalMarketValue decimal.Decimal
	TotalCostBasis   decimal.Decimal
	TotalGainLoss    decimal.Decimal
	TotalReturnPct   decimal.Decimal
	Holdings         []Holding
}

// Portfolio builds the customer's portfolio summary. Percentages are zero
// when the cost basis is zero.
func (s *Service) Portfolio(ctx context.Context, customerID uuid.UUID) (*PortfolioSummary, error) {
	positions, err := s.repo.InvestmentsForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	hundred := decimal.NewFromInt(100)
	summary := &PortfolioSummary{
		TotalMarketValue: decimal.Zero,
		TotalCostBasis:   decimal.Zero,
		TotalGainLoss:    decimal.Zero,
		TotalReturnPct:   decimal.Zero,
	}
	for _, inv := range positions {
		if inv.Status != PositionActive || !inv.Quantity.IsPositive() {
			continue
		}
		costBasis := inv.Quantity.Mul(inv.AverageCost)
		gainLoss := inv.MarketValue.Sub(costBasis)

		holding := Holding{
			Symbol:       inv.Symbol,
			SecurityName: inv.SecurityName,
			SecurityType: inv.SecurityType,
			Quantity:     inv.Quantity,
			AverageCost:  inv.AverageCost,
			CurrentPrice: inv.CurrentPrice,
			MarketValue:  inv.MarketValue,
			CostBasis:    costBasis,
			GainLoss:     gainLoss,
			GainLossPct:  decimal.Zero,
		}
		if costBasis.IsPositive() {
			holding.GainLossPct = gainLoss.Div(costBasis).Mul(hundred)
		}
		summary.Holdings = append(summary.Holdings, holding)

		summary.TotalMarketValue = summary.TotalMarketValue.Add(inv.MarketValue)
		summary.TotalCostBasis = summary.TotalCostBasis.Add(costBasis)
		summary.TotalGainLoss = summary.TotalGainLoss.Add(gainLoss)
	}
	if summary.TotalCostBasis.IsPositive() {
		summary.TotalReturnPct = summary.TotalGainLoss.Div(summary.TotalCostBasis).Mul(hundred)
	}
	return summary, nil
}

// TradeHistory returns the customer's trades, newest first.
func (s *Service) TradeHistory(ctx context.Context, customerID uuid.UUID, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.TradesForCustomer(ctx, customerID, limit)
}
