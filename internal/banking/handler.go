package banking

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
)

// Handler exposes account lifecycle HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a banking HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

type openRequest struct {
	CustomerID     string `json:"customer_id"`
	AccountType    string `json:"account_type"`
	Currency       string `json:"currency"`
	InitialDeposit string `json:"initial_deposit"`
}

type accountResponse struct {
	ID               string     `json:"id"`
	AccountNumber    string     `json:"account_number"`
	CustomerID       string     `json:"customer_id"`
	AccountType      string     `json:"account_type"`
	Currency         string     `json:"currency"`
	Balance          string     `json:"balance"`
	AvailableBalance string     `json:"available_balance"`
	Status           string     `json:"status"`
	OpenedAt         time.Time  `json:"opened_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
}

func toAccountResponse(a *ledger.Account) accountResponse {
	return accountResponse{
		ID:               a.ID.String(),
		AccountNumber:    a.AccountNumber,
		CustomerID:       a.CustomerID.String(),
		AccountType:      a.AccountType,
		Currency:         a.Currency,
		Balance:          a.Balance.String(),
		AvailableBalance: a.AvailableBalance.String(),
		Status:           a.Status,
		OpenedAt:         a.OpenedAt,
		ClosedAt:         a.ClosedAt,
	}
}

// Open creates an account, posting the initial deposit when given.
func (h *Handler) Open(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid customer_id")
	}
	deposit := decimal.Zero
	if req.InitialDeposit != "" {
		if deposit, err = decimal.NewFromString(req.InitialDeposit); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid initial_deposit")
		}
	}

	account, err := h.service.OpenAccount(c.UserContext(), OpenAccountInput{
		CustomerID:     customerID,
		AccountType:    req.AccountType,
		Currency:       req.Currency,
		InitialDeposit: deposit,
	})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toAccountResponse(account))
}

// Get returns one account.
func (h *Handler) Get(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	account, err := h.service.Account(c.UserContext(), accountID)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toAccountResponse(account))
}

type closeRequest struct {
	Reason string `json:"reason"`
}

// Close closes a zero-balance account.
func (h *Handler) Close(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	var req closeRequest
	_ = c.BodyParser(&req)

	if err := h.service.CloseAccount(c.UserContext(), accountID, req.Reason); err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(fiber.Map{"status": ledger.AccountStatusClosed})
}
