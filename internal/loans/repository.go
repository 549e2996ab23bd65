package loans

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrLoanNotFound occurs when the referenced loan does not exist.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrPaymentNotFound occurs when the referenced schedule row does not exist.
	ErrPaymentNotFound = errors.New("loan payment not found")
)

// Repository persists loans and their amortization schedules.
type Repository interface {
	CreateLoan(ctx context.Context, loan *Loan) error
	Loan(ctx context.Context, id uuid.UUID) (*Loan, error)
	LoanByReference(ctx context.Context, reference string) (*Loan, error)
	UpdateLoan(ctx context.Context, loan *Loan) error

	// ReplaceSchedule discards any existing schedule for the loan and
	// stores the given rows.
	ReplaceSchedule(ctx context.Context, loanID uuid.UUID, schedule []LoanPayment) error
	Schedule(ctx context.Context, loanID uuid.UUID) ([]LoanPayment, error)
	Payment(ctx context.Context, id uuid.UUID) (*LoanPayment, error)
	UpdatePayment(ctx context.Context, payment *LoanPayment) error
}
