package investments

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
)

// Handler exposes trading and portfolio HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an investments HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvestmentNotFound), errors.Is(err, ErrTradeNotFound),
		errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

type orderRequest struct {
	CustomerID   string `json:"customer_id"`
	TradeType    string `json:"trade_type"`
	Symbol       string `json:"symbol"`
	Quantity     string `json:"quantity"`
	Price        string `json:"price"`
	SecurityType string `json:"security_type"`
}

type tradeResponse struct {
	ID            string     `json:"id"`
	Reference     string     `json:"reference"`
	TradeType     string     `json:"trade_type"`
	Symbol        string     `json:"symbol"`
	Quantity      string     `json:"quantity"`
	Price         string     `json:"price"`
	TotalAmount   string     `json:"total_amount"`
	Commission    string     `json:"commission"`
	Status        string     `json:"status"`
	OrderDate     time.Time  `json:"order_date"`
	ExecutionDate *time.Time `json:"execution_date,omitempty"`
}

func toTradeResponse(t *Trade) tradeResponse {
	return tradeResponse{
		ID:            t.ID.String(),
		Reference:     t.Reference,
		TradeType:     t.TradeType,
		Symbol:        t.Symbol,
		Quantity:      t.Quantity.String(),
		Price:         t.Price.String(),
		TotalAmount:   t.TotalAmount.String(),
		Commission:    t.Commission.String(),
		Status:        t.Status,
		OrderDate:     t.OrderDate,
		ExecutionDate: t.ExecutionDate,
	}
}

// PlaceOrder accepts and executes a buy or sell order.
func (h *Handler) PlaceOrder(c *fiber.Ctx) error {
	var req orderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid customer_id")
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid quantity")
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid price")
	}

	trade, err := h.service.PlaceOrder(c.UserContext(), OrderInput{
		CustomerID:   customerID,
		TradeType:    req.TradeType,
		Symbol:       req.Symbol,
		Quantity:     quantity,
		Price:        price,
		SecurityType: req.SecurityType,
	})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toTradeResponse(trade))
}

// Portfolio returns the customer's holdings and totals.
func (h *Handler) Portfolio(c *fiber.Ctx) error {
	customerID, err := uuid.Parse(c.Params("customerId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid customer id")
	}
	summary, err := h.service.Portfolio(c.UserContext(), customerID)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}

	holdings := make([]fiber.Map, 0, len(summary.Holdings))
	for _, holding := range summary.Holdings {
		holdings = append(holdings, fiber.Map{
			"symbol":        holding.Symbol,
			"security_name": holding.SecurityName,
			"security_type": holding.SecurityType,
			"quantity":      holding.Quantity.String(),
			"average_cost":  holding.AverageCost.String(),
			"current_price": holding.CurrentPrice.String(),
			"market_value":  holding.MarketValue.String(),
			"cost_basis":    holding.CostBasis.String(),
			"gain_loss":     holding.GainLoss.String(),
			"gain_loss_pct": holding.GainLossPct.StringFixed(2),
		})
	}
	return c.JSON(fiber.Map{
		"total_market_value": summary.TotalMarketValue.String(),
		"total_cost_basis":   summary.TotalCostBasis.String(),
		"total_gain_loss":    summary.TotalGainLoss.String(),
		"total_return_pct":   summary.TotalReturnPct.StringFixed(2),
		"holdings":           holdings,
	})
}

// History lists the customer's trades, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	customerID, err := uuid.Parse(c.Params("customerId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid customer id")
	}
	limit := c.QueryInt("limit", 50)

	trades, err := h.service.TradeHistory(c.UserContext(), customerID, limit)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	out := make([]tradeResponse, 0, len(trades))
	for i := range trades {
		out = append(out, toTradeResponse(&trades[i]))
	}
	return c.JSON(fiber.Map{"trades": out})
}

type refreshRequest struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// RefreshPrices updates open positions in a symbol, either from the supplied
// price or from the market data source when none is given.
func (h *Handler) RefreshPrices(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Symbol == "" {
		return fiber.NewError(http.StatusBadRequest, "symbol is required")
	}

	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid price")
		}
		if err := h.service.UpdateMarketPrices(c.UserContext(), req.Symbol, price); err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
	} else if err := h.service.RefreshPrice(c.UserContext(), req.Symbol); err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(fiber.Map{"symbol": req.Symbol, "status": "updated"})
}
