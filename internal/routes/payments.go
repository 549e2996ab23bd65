package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/payments"
)

// RegisterPaymentRoutes wires payment endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/payments", h.Initiate)
	r.Post("/payments/:paymentId/execute", h.Execute)
	r.Post("/payments/:paymentId/cancel", h.Cancel)
	r.Get("/payments/:reference", h.Status)
	r.Post("/bill-payments", h.PayBill)
	r.Post("/beneficiaries", h.AddBeneficiary)
	r.Get("/customers/:customerId/beneficiaries", h.Beneficiaries)
}
