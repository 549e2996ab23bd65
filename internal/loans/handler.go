package loans

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handler exposes loan HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a loans HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrLoanNotFound), errors.Is(err, ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

type applicationRequest struct {
	CustomerID   string `json:"customer_id"`
	AccountID    string `json:"account_id"`
	LoanType     string `json:"loan_type"`
	Principal    string `json:"principal"`
	TenureMonths int    `json:"tenure_months"`
	InterestRate string `json:"interest_rate"`
}

type loanResponse struct {
	ID                 string     `json:"id"`
	Reference          string     `json:"reference"`
	LoanType           string     `json:"loan_type"`
	Principal          string     `json:"principal"`
	InterestRate       string     `json:"interest_rate"`
	TenureMonths       int        `json:"tenure_months"`
	EMI                string     `json:"emi"`
	OutstandingBalance string     `json:"outstanding_balance"`
	Status             string     `json:"status"`
	ApplicationDate    time.Time  `json:"application_date"`
	ApprovalDate       *time.Time `json:"approval_date,omitempty"`
	DisbursementDate   *time.Time `json:"disbursement_date,omitempty"`
	MaturityDate       *time.Time `json:"maturity_date,omitempty"`
}

func toLoanResponse(l *Loan) loanResponse {
	return loanResponse{
		ID:                 l.ID.String(),
		Reference:          l.Reference,
		LoanType:           l.LoanType,
		Principal:          l.PrincipalAmount.String(),
		InterestRate:       l.InterestRate.String(),
		TenureMonths:       l.TenureMonths,
		EMI:                l.EMIAmount.String(),
		OutstandingBalance: l.OutstandingBalance.String(),
		Status:             l.Status,
		ApplicationDate:    l.ApplicationDate,
		ApprovalDate:       l.ApprovalDate,
		DisbursementDate:   l.DisbursementDate,
		MaturityDate:       l.MaturityDate,
	}
}

// Apply files a loan application.
func (h *Handler) Apply(c *fiber.Ctx) error {
	var req applicationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid customer_id")
	}
	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid principal")
	}
	var accountID *uuid.UUID
	if req.AccountID != "" {
		id, err := uuid.Parse(req.AccountID)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid account_id")
		}
		accountID = &id
	}
	rate := decimal.Zero
	if req.InterestRate != "" {
		if rate, err = decimal.NewFromString(req.InterestRate); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid interest_rate")
		}
	}

	loan, err := h.service.CreateApplication(c.UserContext(), ApplicationInput{
		CustomerID:   customerID,
		AccountID:    accountID,
		LoanType:     req.LoanType,
		Principal:    principal,
		TenureMonths: req.TenureMonths,
		InterestRate: rate,
	})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toLoanResponse(loan))
}

// Approve approves a pending loan and disburses when an account is linked.
func (h *Handler) Approve(c *fiber.Ctx) error {
	loanID, err := uuid.Parse(c.Params("loanId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid loan id")
	}
	loan, err := h.service.Approve(c.UserContext(), loanID)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toLoanResponse(loan))
}

// Disburse pays out an approved loan.
func (h *Handler) Disburse(c *fiber.Ctx) error {
	loanID, err := uuid.Parse(c.Params("loanId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid loan id")
	}
	loan, err := h.service.Disburse(c.UserContext(), loanID)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toLoanResponse(loan))
}

type payRequest struct {
	Amount string `json:"amount"`
	Method string `json:"method"`
}

// Pay applies a payment to one schedule row.
func (h *Handler) Pay(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("paymentId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payment id")
	}
	var req payRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	}

	payment, err := h.service.ProcessPayment(c.UserContext(), paymentID, amount, req.Method)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(fiber.Map{
		"reference":   payment.Reference,
		"status":      payment.Status,
		"paid_amount": payment.PaidAmount.String(),
		"late_fee":    payment.LateFee.String(),
	})
}

// Details returns a loan with its schedule and totals.
func (h *Handler) Details(c *fiber.Ctx) error {
	details, err := h.service.LoanDetails(c.UserContext(), c.Params("reference"))
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}

	schedule := make([]fiber.Map, 0, len(details.Schedule))
	for _, row := range details.Schedule {
		schedule = append(schedule, fiber.Map{
			"payment_number": row.PaymentNumber,
			"due_date":       row.DueDate,
			"amount":         row.ScheduledAmount.String(),
			"principal":      row.PrincipalAmount.String(),
			"interest":       row.InterestAmount.String(),
			"paid_amount":    row.PaidAmount.String(),
			"late_fee":       row.LateFee.String(),
			"status":         row.Status,
		})
	}
	resp := fiber.Map{
		"loan":                toLoanResponse(details.Loan),
		"total_paid":          details.TotalPaid.String(),
		"total_interest_paid": details.TotalInterestPaid.String(),
		"schedule":            schedule,
	}
	if details.NextPayment != nil {
		resp["next_payment"] = fiber.Map{
			"payment_number": details.NextPayment.PaymentNumber,
			"due_date":       details.NextPayment.DueDate,
			"amount":         details.NextPayment.Amount.String(),
			"principal":      details.NextPayment.Principal.String(),
			"interest":       details.NextPayment.Interest.String(),
		}
	}
	return c.JSON(resp)
}
