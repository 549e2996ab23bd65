package payments

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
)

// Handler exposes payment HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a payments HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrPaymentNotFound), errors.Is(err, ErrBillerNotFound),
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

type initiateRequest struct {
	AccountID          string `json:"account_id"`
	PaymentType        string `json:"payment_type"`
	Method             string `json:"method"`
	Amount             string `json:"amount"`
	BeneficiaryName    string `json:"beneficiary_name"`
	BeneficiaryAccount string `json:"beneficiary_account"`
	BeneficiaryBank    string `json:"beneficiary_bank"`
	RoutingNumber      string `json:"routing_number"`
	SwiftCode          string `json:"swift_code"`
	Reference          string `json:"reference"`
	Description        string `json:"description"`
	ScheduledDate      string `json:"scheduled_date"`
}

type paymentResponse struct {
	ID                 string     `json:"id"`
	Reference          string     `json:"reference"`
	Method             string     `json:"method"`
	Amount             string     `json:"amount"`
	Fee                string     `json:"fee"`
	Status             string     `json:"status"`
	FailureReason      string     `json:"failure_reason,omitempty"`
	ConfirmationNumber string     `json:"confirmation_number,omitempty"`
	ScheduledDate      time.Time  `json:"scheduled_date"`
	ExecutionDate      *time.Time `json:"execution_date,omitempty"`
	SettlementDate     *time.Time `json:"settlement_date,omitempty"`
}

func toPaymentResponse(p *PaymentInstruction) paymentResponse {
	return paymentResponse{
		ID:                 p.ID.String(),
		Reference:          p.Reference,
		Method:             p.Method,
		Amount:             p.Amount.String(),
		Fee:                Fee(p.Method, p.Amount).String(),
		Status:             p.Status,
		FailureReason:      p.FailureReason,
		ConfirmationNumber: p.ConfirmationNumber,
		ScheduledDate:      p.ScheduledDate,
		ExecutionDate:      p.ExecutionDate,
		SettlementDate:     p.SettlementDate,
	}
}

// Initiate accepts a payment instruction.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	var req initiateRequest
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
	var scheduled time.Time
	if req.ScheduledDate != "" {
		if scheduled, err = time.Parse("2006-01-02", req.ScheduledDate); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid scheduled_date, want YYYY-MM-DD")
		}
	}

	payment, err := h.service.Initiate(c.UserContext(), InitiateInput{
		AccountID:          accountID,
		PaymentType:        req.PaymentType,
		Method:             req.Method,
		Amount:             amount,
		BeneficiaryName:    req.BeneficiaryName,
		BeneficiaryAccount: req.BeneficiaryAccount,
		BeneficiaryBank:    req.BeneficiaryBank,
		RoutingNumber:      req.RoutingNumber,
		SwiftCode:          req.SwiftCode,
		Reference:          req.Reference,
		Description:        req.Description,
		ScheduledDate:      scheduled,
	})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toPaymentResponse(payment))
}

// Execute runs a pending payment.
func (h *Handler) Execute(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("paymentId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payment id")
	}
	payment, err := h.service.Execute(c.UserContext(), paymentID)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toPaymentResponse(payment))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel withdraws a pending payment.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("paymentId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payment id")
	}
	var req cancelRequest
	_ = c.BodyParser(&req)

	payment, err := h.service.Cancel(c.UserContext(), paymentID, req.Reason)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toPaymentResponse(payment))
}

// Status looks a payment up by its business reference.
func (h *Handler) Status(c *fiber.Ctx) error {
	payment, err := h.service.Status(c.UserContext(), c.Params("reference"))
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toPaymentResponse(payment))
}

type payBillRequest struct {
	AccountID       string `json:"account_id"`
	BillerName      string `json:"biller_name"`
	Amount          string `json:"amount"`
	ReferenceNumber string `json:"reference_number"`
}

// PayBill pays a biller from an account.
func (h *Handler) PayBill(c *fiber.Ctx) error {
	var req payBillRequest
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

	result, err := h.service.PayBill(c.UserContext(), accountID, req.BillerName, amount, req.ReferenceNumber)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"payment_reference":     result.PaymentReference,
		"transaction_reference": result.TransactionReference,
		"biller":                result.Biller,
		"amount":                result.Amount.String(),
		"status":                result.Status,
	})
}

type addBeneficiaryRequest struct {
	CustomerID    string `json:"customer_id"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	RoutingNumber string `json:"routing_number"`
	Nickname      string `json:"nickname"`
}

// AddBeneficiary registers a payee for a customer.
func (h *Handler) AddBeneficiary(c *fiber.Ctx) error {
	var req addBeneficiaryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid customer_id")
	}

	beneficiary, err := h.service.AddBeneficiary(c.UserContext(), AddBeneficiaryInput{
		CustomerID:    customerID,
		Name:          req.Name,
		AccountNumber: req.AccountNumber,
		BankName:      req.BankName,
		RoutingNumber: req.RoutingNumber,
		Nickname:      req.Nickname,
	})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":             beneficiary.ID.String(),
		"name":           beneficiary.Name,
		"account_number": MaskAccountNumber(beneficiary.AccountNumber),
		"bank_name":      beneficiary.BankName,
		"nickname":       beneficiary.Nickname,
	})
}

// Beneficiaries lists a customer's payees with masked account numbers.
func (h *Handler) Beneficiaries(c *fiber.Ctx) error {
	customerID, err := uuid.Parse(c.Params("customerId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid customer id")
	}
	views, err := h.service.Beneficiaries(c.UserContext(), customerID)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	out := make([]fiber.Map, 0, len(views))
	for _, v := range views {
		out = append(out, fiber.Map{
			"id":             v.ID.String(),
			"name":           v.Name,
			"account_number": v.AccountNumber,
			"bank_name":      v.BankName,
			"nickname":       v.Nickname,
		})
	}
	return c.JSON(fiber.Map{"beneficiaries": out})
}
