// Package customers is the registry of account, loan, and position owners.
package customers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/harborbank/harbor-core/internal/ledger"
)

// Customer statuses and KYC states.
const (
	StatusActive = "active"
	StatusClosed = "closed"

	KYCPending  = "pending"
	KYCVerified = "verified"
)

// ErrCustomerNotFound occurs when the referenced customer does not exist.
var ErrCustomerNotFound = errors.New("customer not found")

// Customer owns accounts, loans, and investment positions.
type Customer struct {
	ID        uuid.UUID
	Reference string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	KYCStatus string
	Status    string
	CreatedAt time.Time
}

// Repository persists customers.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	Customer(ctx context.Context, id uuid.UUID) (*Customer, error)
	CustomerByEmail(ctx context.Context, email string) (*Customer, error)
}

// New builds an active customer with a fresh reference.
func New(firstName, lastName, email, phone string) *Customer {
	return &Customer{
		ID:        uuid.New(),
		Reference: ledger.NewReference("CUS", 10),
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
		KYCStatus: KYCPending,
		Status:    StatusActive,
		CreatedAt: time.Now().UTC(),
	}
}
