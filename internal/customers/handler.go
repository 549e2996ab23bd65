package customers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handler exposes customer registry HTTP endpoints.
type Handler struct {
	repo Repository
}

// NewHandler builds a customers HTTP handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

type createRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type customerResponse struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	KYCStatus string `json:"kyc_status"`
	Status    string `json:"status"`
}

func toCustomerResponse(c *Customer) customerResponse {
	return customerResponse{
		ID:        c.ID.String(),
		Reference: c.Reference,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		KYCStatus: c.KYCStatus,
		Status:    c.Status,
	}
}

// Create registers a customer.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "first_name, last_name, and email are required")
	}
	if existing, err := h.repo.CustomerByEmail(c.UserContext(), req.Email); err == nil && existing != nil {
		return fiber.NewError(http.StatusConflict, "email already registered")
	}

	customer := New(req.FirstName, req.LastName, req.Email, req.Phone)
	if err := h.repo.Create(c.UserContext(), customer); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toCustomerResponse(customer))
}

// Get returns one customer.
func (h *Handler) Get(c *fiber.Ctx) error {
	customerID, err := uuid.Parse(c.Params("customerId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid customer id")
	}
	customer, err := h.repo.Customer(c.UserContext(), customerID)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(toCustomerResponse(customer))
}
