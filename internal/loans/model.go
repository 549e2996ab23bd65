package loans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loan statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusActive   = "active"
	StatusClosed   = "closed"
	StatusDeclined = "declined"
)

// Schedule row statuses.
const (
	PaymentPending = "pending"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
	PaymentOverdue = "overdue"
)

// Policy bounds amount, tenure, and default rate per loan type.
type Policy struct {
	MaxAmount   decimal.Decimal
	MaxTenure   int
	DefaultRate decimal.Decimal
}

// Policies is the fixed per-type origination table.
var Policies = map[string]Policy{
	"personal": {
		MaxAmount:   decimal.RequireFromString("50000"),
		MaxTenure:   60,
		DefaultRate: decimal.RequireFromString("0.0899"),
	},
	"auto": {
		MaxAmount:   decimal.RequireFromString("75000"),
		MaxTenure:   72,
		DefaultRate: decimal.RequireFromString("0.0499"),
	},
	"home": {
		MaxAmount:   decimal.RequireFromString("1000000"),
		MaxTenure:   360,
		DefaultRate: decimal.RequireFromString("0.0349"),
	},
	"business": {
		MaxAmount:   decimal.RequireFromString("500000"),
		MaxTenure:   120,
		DefaultRate: decimal.RequireFromString("0.0699"),
	},
}

// Loan is one loan from application through payoff. OutstandingBalance only
// decreases as principal components of payments post; the loan closes when
// it reaches zero.
type Loan struct {
	ID                 uuid.UUID
	Reference          string
	CustomerID         uuid.UUID
	AccountID          *uuid.UUID
	LoanType           string
	PrincipalAmount    decimal.Decimal
	InterestRate       decimal.Decimal
	TenureMonths       int
	EMIAmount          decimal.Decimal
	OutstandingBalance decimal.Decimal
	Status             string
	ApplicationDate    time.Time
	ApprovalDate       *time.Time
	DisbursementDate   *time.Time
	MaturityDate       *time.Time
}

// LoanPayment is one row of the amortization schedule. The schedule's shape
// is fixed at generation (one row per tenure month); individual rows mutate
// as payments post.
type LoanPayment struct {
	ID                 uuid.UUID
	Reference          string
	LoanID             uuid.UUID
	PaymentNumber      int
	DueDate            time.Time
	ScheduledAmount    decimal.Decimal
	PrincipalAmount    decimal.Decimal
	InterestAmount     decimal.Decimal
	OutstandingBalance decimal.Decimal
	PaidAmount         decimal.Decimal
	LateFee            decimal.Decimal
	PaymentMethod      string
	PaymentDate        *time.Time
	Status             string
}
