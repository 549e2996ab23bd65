package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment methods supported by the processor.
const (
	MethodACH      = "ach"
	MethodWire     = "wire"
	MethodCard     = "card"
	MethodRTP      = "rtp"
	MethodInternal = "internal"
)

// Payment instruction statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Payment types.
const (
	TypeTransfer      = "transfer"
	TypeBillPayment   = "bill_payment"
	TypePayroll       = "payroll"
	TypeVendorPayment = "vendor_payment"
	TypeLoanPayment   = "loan_payment"
)

// PaymentInstruction is an outbound payment intent. Only pending
// instructions may be executed or cancelled.
type PaymentInstruction struct {
	ID                 uuid.UUID
	Reference          string
	AccountID          uuid.UUID
	PaymentType        string
	Method             string
	Amount             decimal.Decimal
	Currency           string
	BeneficiaryName    string
	BeneficiaryAccount string
	BeneficiaryBank    string
	RoutingNumber      string
	SwiftCode          string
	PaymentReference   string
	Description        string
	Status             string
	FailureReason      string
	ConfirmationNumber string
	ScheduledDate      time.Time
	ExecutionDate      *time.Time
	SettlementDate     *time.Time
	CreatedAt          time.Time
}

// Beneficiary is a saved payee for a customer.
type Beneficiary struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	Name          string
	AccountNumber string
	BankName      string
	RoutingNumber string
	Nickname      string
	Status        string
	CreatedAt     time.Time
}

// Biller is a payee for bill payments.
type Biller struct {
	ID        uuid.UUID
	Reference string
	Name      string
	Category  string
	Status    string
	CreatedAt time.Time
}

// BillPayment records one bill payment against a biller.
type BillPayment struct {
	ID              uuid.UUID
	Reference       string
	AccountID       uuid.UUID
	BillerID        uuid.UUID
	Amount          decimal.Decimal
	ReferenceNumber string
	Status          string
	CreatedAt       time.Time
}

// MaskAccountNumber hides all but the last four digits of an account number.
func MaskAccountNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "****" + number[len(number)-4:]
}
