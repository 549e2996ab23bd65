package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/loans"
)

// RegisterLoanRoutes wires loan lifecycle endpoints.
func RegisterLoanRoutes(r fiber.Router, h *loans.Handler) {
	r.Post("/loans", h.Apply)
	r.Post("/loans/:loanId/approve", h.Approve)
	r.Post("/loans/:loanId/disburse", h.Disburse)
	r.Get("/loans/:reference", h.Details)
	r.Post("/loan-payments/:paymentId", h.Pay)
}
