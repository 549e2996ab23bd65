package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/ledger"
)

// RegisterTransactionRoutes wires transaction engine endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/transactions", h.Post)
	r.Post("/transactions/:transactionId/reverse", h.Reverse)
	r.Post("/transfers", h.Transfer)
	r.Get("/accounts/:accountId/balance", h.Balance)
	r.Get("/accounts/:accountId/transactions", h.History)
}
