package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrPaymentNotFound occurs when the referenced payment instruction does not exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrBillerNotFound occurs when the referenced biller does not exist.
	ErrBillerNotFound = errors.New("biller not found")
)

// Repository persists payment instructions, beneficiaries, billers, and
// bill payments.
type Repository interface {
	CreateInstruction(ctx context.Context, p *PaymentInstruction) error
	Instruction(ctx context.Context, id uuid.UUID) (*PaymentInstruction, error)
	InstructionByReference(ctx context.Context, reference string) (*PaymentInstruction, error)
	UpdateInstruction(ctx context.Context, p *PaymentInstruction) error

	CreateBeneficiary(ctx context.Context, b *Beneficiary) error
	BeneficiariesForCustomer(ctx context.Context, customerID uuid.UUID) ([]Beneficiary, error)

	BillerByName(ctx context.Context, name string) (*Biller, error)
	CreateBiller(ctx context.Context, b *Biller) error
	CreateBillPayment(ctx context.Context, bp *BillPayment) error
}
