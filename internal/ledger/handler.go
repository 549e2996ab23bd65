package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handler exposes transaction engine HTTP endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler builds a transaction HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

type postRequest struct {
	AccountID           string `json:"account_id"`
	Type                string `json:"type"`
	Amount              string `json:"amount"`
	Description         string `json:"description"`
	Category            string `json:"category"`
	CounterpartyName    string `json:"counterparty_name"`
	CounterpartyAccount string `json:"counterparty_account"`
}

type transactionResponse struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	AccountID    string    `json:"account_id"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	BalanceAfter string    `json:"balance_after"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	Date         time.Time `json:"date"`
}

func toTransactionResponse(t *Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID.String(),
		Reference:    t.Reference,
		AccountID:    t.AccountID.String(),
		Type:         t.Type,
		Amount:       t.Amount.String(),
		Currency:     t.Currency,
		BalanceAfter: t.BalanceAfter.String(),
		Description:  t.Description,
		Status:       t.Status,
		Date:         t.TransactionDate,
	}
}

// Post processes one transaction against an account.
func (h *Handler) Post(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account_id")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	}

	txn, err := h.engine.ProcessTransaction(c.UserContext(), PostingInput{
		AccountID:           accountID,
		Type:                req.Type,
		Amount:              amount,
		Description:         req.Description,
		Category:            req.Category,
		CounterpartyName:    req.CounterpartyName,
		CounterpartyAccount: req.CounterpartyAccount,
	})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(txn))
}

type transferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
}

// Transfer moves funds between two accounts atomically.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid from_account_id")
	}
	toID, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid to_account_id")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	}

	debit, credit, err := h.engine.TransferFunds(c.UserContext(), fromID, toID, amount, req.Description)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"debit":  toTransactionResponse(debit),
		"credit": toTransactionResponse(credit),
	})
}

type reverseRequest struct {
	Reason string `json:"reason"`
}

// Reverse books a compensating transaction for a completed one.
func (h *Handler) Reverse(c *fiber.Ctx) error {
	transactionID, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid transaction id")
	}
	var req reverseRequest
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	reversal, err := h.engine.ReverseTransaction(c.UserContext(), transactionID, req.Reason)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(reversal))
}

// Balance returns the account balance snapshot.
func (h *Handler) Balance(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	snapshot, err := h.engine.AccountBalance(c.UserContext(), accountID)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(fiber.Map{
		"account_number":    snapshot.AccountNumber,
		"account_type":      snapshot.AccountType,
		"balance":           snapshot.Balance.String(),
		"available_balance": snapshot.AvailableBalance.String(),
		"currency":          snapshot.Currency,
		"status":            snapshot.Status,
	})
}

// History lists recent transactions for an account, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	limit := c.QueryInt("limit", 50)

	transactions, err := h.engine.Store().Transactions(c.UserContext(), accountID, limit)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	out := make([]transactionResponse, 0, len(transactions))
	for i := range transactions {
		out = append(out, toTransactionResponse(&transactions[i]))
	}
	return c.JSON(fiber.Map{"transactions": out})
}
