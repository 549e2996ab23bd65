package loans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
)

func newTestService(t *testing.T) (*Service, *ledger.Engine, ledger.Store) {
	t.Helper()
	store := ledger.NewMemoryStore()
	engine := ledger.NewEngine(store, nil, nil)
	return NewService(NewMemoryRepository(), engine, nil, nil), engine, store
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateEMI(t *testing.T) {
	emi := CalculateEMI(amount("10000"), amount("0.12"), 12)
	if !emi.Equal(amount("888.49")) {
		t.Fatalf("expected EMI 888.49, got %s", emi)
	}
}

func TestCalculateEMIZeroRate(t *testing.T) {
	emi := CalculateEMI(amount("12000"), decimal.Zero, 12)
	if !emi.Equal(amount("1000")) {
		t.Fatalf("expected EMI 1000.00, got %s", emi)
	}
}

func TestCreateApplicationDefaultsRate(t *testing.T) {
	svc, _, _ := newTestService(t)

	loan, err := svc.CreateApplication(context.Background(), ApplicationInput{
		CustomerID:   uuid.New(),
		LoanType:     "personal",
		Principal:    amount("10000"),
		TenureMonths: 12,
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if !loan.InterestRate.Equal(amount("0.0899")) {
		t.Fatalf("expected default personal rate 0.0899, got %s", loan.InterestRate)
	}
	if loan.Status != StatusPending {
		t.Fatalf("expected pending loan, got %s", loan.Status)
	}
	if !loan.OutstandingBalance.Equal(loan.PrincipalAmount) {
		t.Fatalf("outstanding balance should equal principal at application")
	}
}

func TestCreateApplicationPolicyLimits(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   ApplicationInput
	}{
		{"unknown type", ApplicationInput{LoanType: "yacht", Principal: amount("1000"), TenureMonths: 12}},
		{"over max amount", ApplicationInput{LoanType: "personal", Principal: amount("50001"), TenureMonths: 12}},
		{"over max tenure", ApplicationInput{LoanType: "auto", Principal: amount("10000"), TenureMonths: 73}},
		{"zero principal", ApplicationInput{LoanType: "personal", Principal: decimal.Zero, TenureMonths: 12}},
		{"zero tenure", ApplicationInput{LoanType: "personal", Principal: amount("1000"), TenureMonths: 0}},
	}
	for _, tc := range cases {
		tc.in.CustomerID = uuid.New()
		if _, err := svc.CreateApplication(ctx, tc.in); err == nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
	}
}

func TestApproveGeneratesSchedule(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	loan, err := svc.CreateApplication(ctx, ApplicationInput{
		CustomerID:   uuid.New(),
		LoanType:     "personal",
		Principal:    amount("10000"),
		TenureMonths: 12,
		InterestRate: amount("0.12"),
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}

	approved, err := svc.Approve(ctx, loan.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Fatalf("expected approved status, got %s", approved.Status)
	}
	if approved.ApprovalDate == nil {
		t.Fatal("approval date not set")
	}

	schedule, err := svc.repo.Schedule(ctx, loan.ID)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(schedule) != 12 {
		t.Fatalf("expected 12 schedule rows, got %d", len(schedule))
	}

	principalSum := decimal.Zero
	for _, row := range schedule {
		if !row.ScheduledAmount.Equal(amount("888.49")) {
			t.Fatalf("row %d scheduled %s, want 888.49", row.PaymentNumber, row.ScheduledAmount)
		}
		principalSum = principalSum.Add(row.PrincipalAmount)
	}
	// Per-period cent rounding bounds total drift at one cent per row.
	tolerance := amount("0.01").Mul(decimal.NewFromInt(12))
	if principalSum.Sub(amount("10000")).Abs().GreaterThan(tolerance) {
		t.Fatalf("principal components sum to %s, want ~10000", principalSum)
	}
	last := schedule[len(schedule)-1]
	if last.OutstandingBalance.GreaterThan(tolerance) {
		t.Fatalf("final row outstanding %s, want ~0", last.OutstandingBalance)
	}
}

func TestApproveRejectsNonPending(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	loan, err := svc.CreateApplication(ctx, ApplicationInput{
		CustomerID:   uuid.New(),
		LoanType:     "personal",
		Principal:    amount("5000"),
		TenureMonths: 12,
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if _, err := svc.Approve(ctx, loan.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if _, err := svc.Approve(ctx, loan.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on re-approve, got %v", err)
	}
}

func TestDisburseCreditsAccount(t *testing.T) {
	svc, engine, store := newTestService(t)
	ctx := context.Background()

	customerID := uuid.New()
	account, err := ledger.SeedAccount(store, customerID, amount("500"))
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}

	loan, err := svc.CreateApplication(ctx, ApplicationInput{
		CustomerID:   customerID,
		AccountID:    &account.ID,
		LoanType:     "auto",
		Principal:    amount("20000"),
		TenureMonths: 48,
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}

	disbursed, err := svc.Approve(ctx, loan.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if disbursed.Status != StatusActive {
		t.Fatalf("expected active loan after linked-account approval, got %s", disbursed.Status)
	}
	if disbursed.DisbursementDate == nil || disbursed.MaturityDate == nil {
		t.Fatal("disbursement and maturity dates not set")
	}

	balance, err := engine.AccountBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("account balance: %v", err)
	}
	if !balance.Balance.Equal(amount("20500")) {
		t.Fatalf("expected balance 20500 after disbursement, got %s", balance.Balance)
	}
}

func TestDisburseGuards(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	loan, err := svc.CreateApplication(ctx, ApplicationInput{
		CustomerID:   uuid.New(),
		LoanType:     "personal",
		Principal:    amount("5000"),
		TenureMonths: 12,
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}

	// Pending loans cannot be disbursed.
	if _, err := svc.Disburse(ctx, loan.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for pending loan, got %v", err)
	}

	// Approved but unlinked loans cannot be disbursed either.
	if _, err := svc.Approve(ctx, loan.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Disburse(ctx, loan.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for unlinked loan, got %v", err)
	}
}

func TestProcessPaymentLifecycle(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()

	customerID := uuid.New()
	account, err := ledger.SeedAccount(store, customerID, amount("0"))
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}

	loan, err := svc.CreateApplication(ctx, ApplicationInput{
		CustomerID:   customerID,
		AccountID:    &account.ID,
		LoanType:     "personal",
		Principal:    amount("10000"),
		TenureMonths: 12,
		InterestRate: amount("0.12"),
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if _, err := svc.Approve(ctx, loan.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	schedule, err := svc.repo.Schedule(ctx, loan.ID)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	first := schedule[0]

	paid, err := svc.ProcessPayment(ctx, first.ID, amount("888.49"), "transfer")
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if paid.Status != PaymentPaid {
		t.Fatalf("expected paid row, got %s", paid.Status)
	}
	if paid.PaymentDate == nil {
		t.Fatal("payment date not stamped")
	}
	if !paid.LateFee.IsZero() {
		t.Fatalf("on-time payment accrued late fee %s", paid.LateFee)
	}

	updated, err := svc.repo.Loan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("reload loan: %v", err)
	}
	want := amount("10000").Sub(first.PrincipalAmount)
	if !updated.OutstandingBalance.Equal(want) {
		t.Fatalf("outstanding %s, want %s", updated.OutstandingBalance, want)
	}

	if _, err := svc.ProcessPayment(ctx, first.ID, amount("888.49"), "transfer"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on duplicate payment, got %v", err)
	}
}

func TestProcessPaymentPartial(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	loan, err := svc.CreateApplication(ctx, ApplicationInput{
		CustomerID:   uuid.New(),
		LoanType:     "personal",
		Principal:    amount("10000"),
		TenureMonths: 12,
		InterestRate: amount("0.12"),
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if _, err := svc.Approve(ctx, loan.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	schedule, err := svc.repo.Schedule(ctx, loan.ID)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	paid, err := svc.ProcessPayment(ctx, schedule[0].ID, amount("400"), "transfer")
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if paid.Status != PaymentPartial {
		t.Fatalf("expected partial row, got %s", paid.Status)
	}
	if !paid.PaidAmount.Equal(amount("400")) {
		t.Fatalf("paid amount %s, want 400", paid.PaidAmount)
	}
	if paid.PaymentDate != nil {
		t.Fatal("partial payment should not stamp payment date")
	}
}

func TestProcessPaymentLateFee(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	loan, err := svc.CreateApplication(ctx, ApplicationInput{
		CustomerID:   uuid.New(),
		LoanType:     "personal",
		Principal:    amount("10000"),
		TenureMonths: 12,
		InterestRate: amount("0.12"),
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if _, err := svc.Approve(ctx, loan.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	schedule, err := svc.repo.Schedule(ctx, loan.ID)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	first := schedule[0]

	// 45 days past due lands in the second 30-day block: two fee units.
	svc.now = func() time.Time { return first.DueDate.AddDate(0, 0, 45) }

	paid, err := svc.ProcessPayment(ctx, first.ID, amount("2000"), "transfer")
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if !paid.LateFee.Equal(amount("50")) {
		t.Fatalf("late fee %s, want 50.00", paid.LateFee)
	}
	wantPaid := first.ScheduledAmount.Add(amount("50"))
	if !paid.PaidAmount.Equal(wantPaid) {
		t.Fatalf("paid amount %s, want %s", paid.PaidAmount, wantPaid)
	}
}

func TestLoanClosesAtZeroOutstanding(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	loan, err := svc.CreateApplication(ctx, ApplicationInput{
		CustomerID:   uuid.New(),
		LoanType:     "personal",
		Principal:    amount("1200"),
		TenureMonths: 2,
		InterestRate: amount("0.12"),
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if _, err := svc.Approve(ctx, loan.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	schedule, err := svc.repo.Schedule(ctx, loan.ID)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	for _, row := range schedule {
		if _, err := svc.ProcessPayment(ctx, row.ID, row.ScheduledAmount, "transfer"); err != nil {
			t.Fatalf("process payment %d: %v", row.PaymentNumber, err)
		}
	}

	closed, err := svc.repo.Loan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("reload loan: %v", err)
	}
	if closed.Status != StatusClosed {
		t.Fatalf("expected closed loan, got %s", closed.Status)
	}
	if !closed.OutstandingBalance.IsZero() {
		t.Fatalf("expected zero outstanding, got %s", closed.OutstandingBalance)
	}
}

func TestLoanDetails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	loan, err := svc.CreateApplication(ctx, ApplicationInput{
		CustomerID:   uuid.New(),
		LoanType:     "personal",
		Principal:    amount("10000"),
		TenureMonths: 12,
		InterestRate: amount("0.12"),
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if _, err := svc.Approve(ctx, loan.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	schedule, err := svc.repo.Schedule(ctx, loan.ID)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := svc.ProcessPayment(ctx, schedule[0].ID, amount("888.49"), "transfer"); err != nil {
		t.Fatalf("process payment: %v", err)
	}

	details, err := svc.LoanDetails(ctx, loan.Reference)
	if err != nil {
		t.Fatalf("loan details: %v", err)
	}
	if !details.TotalPaid.Equal(amount("888.49")) {
		t.Fatalf("total paid %s, want 888.49", details.TotalPaid)
	}
	if details.NextPayment == nil || details.NextPayment.PaymentNumber != 2 {
		t.Fatalf("expected next payment number 2, got %+v", details.NextPayment)
	}
	if len(details.Schedule) != 12 {
		t.Fatalf("expected 12 rows in details, got %d", len(details.Schedule))
	}
}
