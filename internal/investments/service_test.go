package investments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/marketdata"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*Service, *marketdata.StaticSource, uuid.UUID) {
	t.Helper()
	store := ledger.NewMemoryStore()
	customerID := uuid.New()
	if _, err := ledger.SeedAccount(store, customerID, amount("100000")); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	prices := marketdata.NewStaticSource()
	return NewService(NewMemoryRepository(), store, prices, nil, nil), prices, customerID
}

func TestCommissionSchedule(t *testing.T) {
	cases := []struct {
		securityType string
		total        string
		want         string
	}{
		{"stock", "1000", "0"},
		{"etf", "1000", "0"},
		{"mutual_fund", "1000", "0"},
		{"bond", "1000", "10.00"},
		{"crypto", "1000", "10.00"},
		{"crypto", "250", "2.50"},
	}
	for _, tc := range cases {
		got := Commission(tc.securityType, amount(tc.total))
		if !got.Equal(amount(tc.want)) {
			t.Fatalf("commission(%s, %s) = %s, want %s", tc.securityType, tc.total, got, tc.want)
		}
	}
}

func TestBuyComputesWeightedAverageCost(t *testing.T) {
	svc, _, customerID := newTestService(t)
	ctx := context.Background()

	first, err := svc.PlaceOrder(ctx, OrderInput{
		CustomerID: customerID,
		TradeType:  TradeBuy,
		Symbol:     "AAPL",
		Quantity:   amount("10"),
		Price:      amount("100"),
	})
	if err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if first.Status != TradeExecuted {
		t.Fatalf("expected executed trade, got %s", first.Status)
	}

	if _, err := svc.PlaceOrder(ctx, OrderInput{
		CustomerID: customerID,
		TradeType:  TradeBuy,
		Symbol:     "AAPL",
		Quantity:   amount("10"),
		Price:      amount("200"),
	}); err != nil {
		t.Fatalf("second buy: %v", err)
	}

	inv, err := svc.repo.ActivePosition(ctx, customerID, "AAPL")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if !inv.Quantity.Equal(amount("20")) {
		t.Fatalf("quantity %s, want 20", inv.Quantity)
	}
	if !inv.AverageCost.Equal(amount("150")) {
		t.Fatalf("average cost %s, want 150", inv.AverageCost)
	}
}

func TestSellGuardsQuantityAndMarksTradeFailed(t *testing.T) {
	svc, _, customerID := newTestService(t)
	ctx := context.Background()

	if _, err := svc.PlaceOrder(ctx, OrderInput{
		CustomerID: customerID,
		TradeType:  TradeBuy,
		Symbol:     "AAPL",
		Quantity:   amount("5"),
		Price:      amount("100"),
	}); err != nil {
		t.Fatalf("buy: %v", err)
	}

	_, err := svc.PlaceOrder(ctx, OrderInput{
		CustomerID: customerID,
		TradeType:  TradeSell,
		Symbol:     "AAPL",
		Quantity:   amount("10"),
		Price:      amount("100"),
	})
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}

	// Position is untouched and the rejected order is on record as failed.
	inv, err := svc.repo.ActivePosition(ctx, customerID, "AAPL")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if !inv.Quantity.Equal(amount("5")) {
		t.Fatalf("quantity %s after failed sell, want 5", inv.Quantity)
	}
	trades, err := svc.TradeHistory(ctx, customerID, 10)
	if err != nil {
		t.Fatalf("trade history: %v", err)
	}
	if len(trades) != 2 || trades[0].Status != TradeFailed {
		t.Fatalf("expected newest trade failed, got %+v", trades)
	}
}

func TestSellClosesPositionAtZero(t *testing.T) {
	svc, _, customerID := newTestService(t)
	ctx := context.Background()

	if _, err := svc.PlaceOrder(ctx, OrderInput{
		CustomerID: customerID,
		TradeType:  TradeBuy,
		Symbol:     "AAPL",
		Quantity:   amount("10"),
		Price:      amount("100"),
	}); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := svc.PlaceOrder(ctx, OrderInput{
		CustomerID: customerID,
		TradeType:  TradeSell,
		Symbol:     "AAPL",
		Quantity:   amount("10"),
		Price:      amount("120"),
	}); err != nil {
		t.Fatalf("sell: %v", err)
	}

	if _, err := svc.repo.ActivePosition(ctx, customerID, "AAPL"); !errors.Is(err, ErrInvestmentNotFound) {
		t.Fatalf("expected no active position after full sell, got %v", err)
	}
	positions, err := svc.repo.InvestmentsForCustomer(ctx, customerID)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 1 || positions[0].Status != PositionClosed || positions[0].ClosedAt == nil {
		t.Fatalf("expected one closed position, got %+v", positions)
	}
}

func TestPlaceOrderRequiresActiveAccount(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(NewMemoryRepository(), store, nil, nil, nil)

	_, err := svc.PlaceOrder(context.Background(), OrderInput{
		CustomerID: uuid.New(),
		TradeType:  TradeBuy,
		Symbol:     "AAPL",
		Quantity:   amount("1"),
		Price:      amount("100"),
	})
	if err == nil {
		t.Fatal("expected rejection without an active account")
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	svc, _, customerID := newTestService(t)
	ctx := context.Background()

	if _, err := svc.PlaceOrder(ctx, OrderInput{
		CustomerID: customerID, TradeType: "short", Symbol: "AAPL",
		Quantity: amount("1"), Price: amount("100"),
	}); err == nil {
		t.Fatal("expected rejection of unknown trade type")
	}
	if _, err := svc.PlaceOrder(ctx, OrderInput{
		CustomerID: customerID, TradeType: TradeBuy, Symbol: "AAPL",
		Quantity: amount("0"), Price: amount("100"),
	}); err == nil {
		t.Fatal("expected rejection of zero quantity")
	}
}

func TestPortfolioTotalsAndPercentages(t *testing.T) {
	svc, _, customerID := newTestService(t)
	ctx := context.Background()

	if _, err := svc.PlaceOrder(ctx, OrderInput{
		CustomerID: customerID,
		TradeType:  TradeBuy,
		Symbol:     "AAPL",
		Quantity:   amount("10"),
		Price:      amount("100"),
	}); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := svc.UpdateMarketPrices(ctx, "AAPL", amount("110")); err != nil {
		t.Fatalf("update prices: %v", err)
	}

	summary, err := svc.Portfolio(ctx, customerID)
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(summary.Holdings) != 1 {
		t.Fatalf("expected one holding, got %d", len(summary.Holdings))
	}
	if !summary.TotalMarketValue.Equal(amount("1100")) {
		t.Fatalf("market value %s, want 1100", summary.TotalMarketValue)
	}
	if !summary.TotalGainLoss.Equal(amount("100")) {
		t.Fatalf("gain %s, want 100", summary.TotalGainLoss)
	}
	if !summary.TotalReturnPct.Equal(amount("10")) {
		t.Fatalf("return pct %s, want 10", summary.TotalReturnPct)
	}
}

func TestPortfolioEmptyIsZeroSafe(t *testing.T) {
	svc, _, customerID := newTestService(t)

	summary, err := svc.Portfolio(context.Background(), customerID)
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(summary.Holdings) != 0 {
		t.Fatalf("expected no holdings, got %d", len(summary.Holdings))
	}
	if !summary.TotalReturnPct.IsZero() {
		t.Fatalf("return pct %s, want 0", summary.TotalReturnPct)
	}
}

func TestRefreshPriceUsesSource(t *testing.T) {
	svc, prices, customerID := newTestService(t)
	ctx := context.Background()

	if _, err := svc.PlaceOrder(ctx, OrderInput{
		CustomerID: customerID,
		TradeType:  TradeBuy,
		Symbol:     "ACME",
		Quantity:   amount("4"),
		Price:      amount("25"),
	}); err != nil {
		t.Fatalf("buy: %v", err)
	}

	prices.SetQuote("ACME", amount("30"))
	if err := svc.RefreshPrice(ctx, "ACME"); err != nil {
		t.Fatalf("refresh price: %v", err)
	}

	inv, err := svc.repo.ActivePosition(ctx, customerID, "ACME")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if !inv.CurrentPrice.Equal(amount("30")) {
		t.Fatalf("current price %s, want 30", inv.CurrentPrice)
	}
	if !inv.MarketValue.Equal(amount("120")) {
		t.Fatalf("market value %s, want 120", inv.MarketValue)
	}
	if !inv.UnrealizedGainLoss.Equal(amount("20")) {
		t.Fatalf("unrealized %s, want 20", inv.UnrealizedGainLoss)
	}
}

func TestBondCommissionAppliedToTrade(t *testing.T) {
	svc, _, customerID := newTestService(t)

	trade, err := svc.PlaceOrder(context.Background(), OrderInput{
		CustomerID:   customerID,
		TradeType:    TradeBuy,
		Symbol:       "T10Y",
		Quantity:     amount("5"),
		Price:        amount("1000"),
		SecurityType: "bond",
	})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !trade.Commission.Equal(amount("10.00")) {
		t.Fatalf("commission %s, want 10.00", trade.Commission)
	}
}
