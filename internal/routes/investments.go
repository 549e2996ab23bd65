package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/investments"
)

// RegisterInvestmentRoutes wires trading and portfolio endpoints.
func RegisterInvestmentRoutes(r fiber.Router, h *investments.Handler) {
	r.Post("/trades", h.PlaceOrder)
	r.Get("/customers/:customerId/portfolio", h.Portfolio)
	r.Get("/customers/:customerId/trades", h.History)
	r.Post("/market-prices/refresh", h.RefreshPrices)
}
