package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/banking"
)

// RegisterAccountRoutes wires account lifecycle endpoints.
func RegisterAccountRoutes(r fiber.Router, h *banking.Handler) {
	r.Post("/accounts", h.Open)
	r.Get("/accounts/:accountId", h.Get)
	r.Post("/accounts/:accountId/close", h.Close)
}
