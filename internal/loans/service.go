package loans

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/ledger"
)

// ErrInvalidState indicates an operation against a loan or schedule row in
// the wrong lifecycle state.
var ErrInvalidState = ledger.ErrInvalidState

// lateFeePerBlock is charged per elapsed 30-day block past the due date.
var lateFeePerBlock = decimal.RequireFromString("25.00")

// Service manages the loan lifecycle. Disbursements are the only loan money
// movement and go through the transaction engine.
type Service struct {
	repo    Repository
	engine  *ledger.Engine
	logger  *slog.Logger
	auditor audit.Recorder
	now     func() time.Time
}

// NewService builds a loan service instance.
func NewService(repo Repository, engine *ledger.Engine, logger *slog.Logger, auditor audit.Recorder) *Service {
	return &Service{repo: repo, engine: engine, logger: logger, auditor: auditor, now: func() time.Time { return time.Now().UTC() }}
}

// CalculateEMI computes the equated monthly installment:
//
//	EMI = P * r * (1+r)^n / ((1+r)^n - 1)
//
// with r the monthly rate. A zero rate degenerates to principal / tenure.
// The result is rounded to the cent. tenureMonths must be positive.
func CalculateEMI(principal, annualRate decimal.Decimal, tenureMonths int) decimal.Decimal {
	monthlyRate := annualRate.Div(decimal.NewFromInt(12))
	if monthlyRate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(tenureMonths))).Round(2)
	}

	r, _ := monthlyRate.Float64()
	p, _ := principal.Float64()
	pow := math.Pow(1+r, float64(tenureMonths))
	emi := p * r * pow / (pow - 1)
	return decimal.NewFromFloat(emi).Round(2)
}

// ApplicationInput captures a loan application.
type ApplicationInput struct {
	CustomerID   uuid.UUID
	AccountID    *uuid.UUID
	LoanType     string
	Principal    decimal.Decimal
	TenureMonths int
	// InterestRate falls back to the type's default rate when zero.
	InterestRate decimal.Decimal
}

// CreateApplication validates the request against the per-type policy table
// and persists a pending loan with the computed EMI.
func (s *Service) CreateApplication(ctx context.Context, in ApplicationInput) (*Loan, error) {
	policy, ok := Policies[in.LoanType]
	if !ok {
		return nil, fmt.Errorf("invalid loan type: %q", in.LoanType)
	}
	if !in.Principal.IsPositive() {
		return nil, fmt.Errorf("loan principal must be positive, got %s", in.Principal)
	}
	if in.TenureMonths < 1 {
		return nil, fmt.Errorf("loan tenure must be at least one month, got %d", in.TenureMonths)
	}
	if in.Principal.GreaterThan(policy.MaxAmount) {
		return nil, fmt.Errorf("loan amount %s exceeds maximum %s for %s loans",
			in.Principal, policy.MaxAmount, in.LoanType)
	}
	if in.TenureMonths > policy.MaxTenure {
		return nil, fmt.Errorf("tenure %d months exceeds maximum %d for %s loans",
			in.TenureMonths, policy.MaxTenure, in.LoanType)
	}

	rate := in.InterestRate
	if rate.IsZero() {
		rate = policy.DefaultRate
	}
	emi := CalculateEMI(in.Principal, rate, in.TenureMonths)

	loan := &Loan{
		ID:                 uuid.New(),
		Reference:          ledger.NewReference("LOAN", 10),
		CustomerID:         in.CustomerID,
		AccountID:          in.AccountID,
		LoanType:           in.LoanType,
		PrincipalAmount:    in.Principal,
		InterestRate:       rate,
		TenureMonths:       in.TenureMonths,
		EMIAmount:          emi,
		OutstandingBalance: in.Principal,
		Status:             StatusPending,
		ApplicationDate:    s.now(),
	}
	if err := s.repo.CreateLoan(ctx, loan); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("loan application created", "reference", loan.Reference,
			"type", in.LoanType, "principal", in.Principal.String(), "emi", emi.String())
	}
	return loan, nil
}

// Approve moves a pending loan to approved, generates its payment schedule,
// and disburses immediately when an account is linked.
func (s *Service) Approve(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	loan, err := s.repo.Loan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusPending {
		return nil, fmt.Errorf("%w: loan is %s, not pending", ErrInvalidState, loan.Status)
	}

	now := s.now()
	loan.Status = StatusApproved
	loan.ApprovalDate = &now
	if err := s.repo.UpdateLoan(ctx, loan); err != nil {
		return nil, err
	}

	if _, err := s.GenerateSchedule(ctx, loanID); err != nil {
		return nil, err
	}

	if loan.AccountID != nil {
		return s.Disburse(ctx, loanID)
	}
	return loan, nil
}

// GenerateSchedule builds the amortization table: each period's interest is
// computed fresh from the running outstanding balance so rounding drift
// cannot accumulate into the final row. Any existing schedule is replaced.
func (s *Service) GenerateSchedule(ctx context.Context, loanID uuid.UUID) ([]LoanPayment, error) {
	loan, err := s.repo.Loan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	monthlyRate := loan.InterestRate.Div(decimal.NewFromInt(12))
	outstanding := loan.PrincipalAmount
	start := s.now()
	if loan.DisbursementDate != nil {
		start = *loan.DisbursementDate
	}

	schedule := make([]LoanPayment, 0, loan.TenureMonths)
	for month := 1; month <= loan.TenureMonths; month++ {
		interest := outstanding.Mul(monthlyRate)
		principal := loan.EMIAmount.Sub(interest)
		outstanding = outstanding.Sub(principal)

		schedule = append(schedule, LoanPayment{
			ID:                 uuid.New(),
			Reference:          ledger.NewReference("LP", 12),
			LoanID:             loan.ID,
			PaymentNumber:      month,
			DueDate:            start.AddDate(0, month, 0),
			ScheduledAmount:    loan.EMIAmount,
			PrincipalAmount:    principal,
			InterestAmount:     interest,
			OutstandingBalance: decimal.Max(outstanding, decimal.Zero),
			Status:             PaymentPending,
		})
	}

	if err := s.repo.ReplaceSchedule(ctx, loan.ID, schedule); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("payment schedule generated", "reference", loan.Reference,
			"payments", len(schedule))
	}
	return schedule, nil
}

// Disburse credits the linked account with the principal and activates the
// loan. Only approved, undisbursed loans with a linked account qualify.
func (s *Service) Disburse(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	loan, err := s.repo.Loan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusApproved {
		return nil, fmt.Errorf("%w: loan must be approved before disbursement, is %s",
			ErrInvalidState, loan.Status)
	}
	if loan.AccountID == nil {
		return nil, fmt.Errorf("%w: loan has no linked account for disbursement", ErrInvalidState)
	}
	if loan.DisbursementDate != nil {
		return nil, fmt.Errorf("%w: loan already disbursed", ErrInvalidState)
	}

	if _, err := s.engine.ProcessTransaction(ctx, ledger.PostingInput{
		AccountID:   *loan.AccountID,
		Type:        ledger.TypeCredit,
		Amount:      loan.PrincipalAmount,
		Description: fmt.Sprintf("Loan disbursement - %s", loan.Reference),
	}); err != nil {
		return nil, err
	}

	now := s.now()
	maturity := now.AddDate(0, loan.TenureMonths, 0)
	loan.Status = StatusActive
	loan.DisbursementDate = &now
	loan.MaturityDate = &maturity
	if err := s.repo.UpdateLoan(ctx, loan); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("loan disbursed", "reference", loan.Reference,
			"amount", loan.PrincipalAmount.String())
	}
	audit.Emit(ctx, s.auditor, audit.Event{
		Kind:      audit.KindLoanDisbursed,
		Entity:    "loan",
		Reference: loan.Reference,
		Detail:    loan.PrincipalAmount.String(),
	})
	return loan, nil
}

// ProcessPayment applies a payment to one schedule row: late fees accrue per
// elapsed 30-day block past the due date, short payments mark the row
// partial, and the loan closes once its outstanding balance reaches zero.
func (s *Service) ProcessPayment(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, method string) (*LoanPayment, error) {
	payment, err := s.repo.Payment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == PaymentPaid {
		return nil, fmt.Errorf("%w: payment already processed", ErrInvalidState)
	}

	loan, err := s.repo.Loan(ctx, payment.LoanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	lateFee := decimal.Zero
	if now.After(payment.DueDate) && payment.Status == PaymentPending {
		daysOverdue := int(now.Sub(payment.DueDate).Hours() / 24)
		blocks := int(math.Ceil(float64(daysOverdue) / 30))
		if blocks < 1 {
			blocks = 1
		}
		lateFee = lateFeePerBlock.Mul(decimal.NewFromInt(int64(blocks)))
	}

	totalDue := payment.ScheduledAmount.Add(lateFee)
	if amount.LessThan(totalDue) {
		payment.PaidAmount = amount
		payment.Status = PaymentPartial
	} else {
		payment.PaidAmount = totalDue
		payment.Status = PaymentPaid
		payment.PaymentDate = &now
	}
	payment.LateFee = lateFee
	payment.PaymentMethod = method
	if err := s.repo.UpdatePayment(ctx, payment); err != nil {
		return nil, err
	}

	loan.OutstandingBalance = loan.OutstandingBalance.Sub(payment.PrincipalAmount)
	if loan.OutstandingBalance.LessThanOrEqual(decimal.Zero) {
		loan.Status = StatusClosed
		loan.OutstandingBalance = decimal.Zero
	}
	if err := s.repo.UpdateLoan(ctx, loan); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("loan payment processed", "reference", payment.Reference,
			"amount", amount.String(), "status", payment.Status)
	}
	return payment, nil
}

// NextPayment summarizes the next unpaid schedule row.
type NextPayment struct {
	PaymentNumber int
	DueDate       time.Time
	Amount        decimal.Decimal
	Principal     decimal.Decimal
	Interest      decimal.Decimal
}

// Details aggregates a loan with its schedule and payment totals.
type Details struct {
	Loan              *Loan
	TotalPaid         decimal.Decimal
	TotalInterestPaid decimal.Decimal
	NextPayment       *NextPayment
	Schedule          []LoanPayment
}

// LoanDetails returns the loan identified by its business reference together
// with schedule totals.
func (s *Service) LoanDetails(ctx context.Context, reference string) (*Details, error) {
	loan, err := s.repo.LoanByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	schedule, err := s.repo.Schedule(ctx, loan.ID)
	if err != nil {
		return nil, err
	}

	details := &Details{
		Loan:              loan,
		TotalPaid:         decimal.Zero,
		TotalInterestPaid: decimal.Zero,
		Schedule:          schedule,
	}
	for i := range schedule {
		row := schedule[i]
		details.TotalPaid = details.TotalPaid.Add(row.PaidAmount)
		if row.Status == PaymentPaid || row.Status == PaymentPartial {
			details.TotalInterestPaid = details.TotalInterestPaid.Add(row.InterestAmount)
		}
		if details.NextPayment == nil && (row.Status == PaymentPending || row.Status == PaymentOverdue) {
			details.NextPayment = &NextPayment{
				PaymentNumber: row.PaymentNumber,
				DueDate:       row.DueDate,
				Amount:        row.ScheduledAmount,
				Principal:     row.PrincipalAmount,
				Interest:      row.InterestAmount,
			}
		}
	}
	return details, nil
}
