package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/customers"
)

// RegisterCustomerRoutes wires customer registry endpoints.
func RegisterCustomerRoutes(r fiber.Router, h *customers.Handler) {
	r.Post("/customers", h.Create)
	r.Get("/customers/:customerId", h.Get)
}
