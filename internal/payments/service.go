package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/ledger"
)

// ErrInvalidState indicates an operation against an instruction outside the
// pending state, such as executing or cancelling twice.
var ErrInvalidState = ledger.ErrInvalidState

// Flat fees per method. Card is percentage-based and handled separately.
var flatFees = map[string]decimal.Decimal{
	MethodACH:      decimal.RequireFromString("0.25"),
	MethodWire:     decimal.RequireFromString("25.00"),
	MethodRTP:      decimal.RequireFromString("0.50"),
	MethodInternal: decimal.Zero,
}

var cardFeeRate = decimal.RequireFromString("0.029")

// Settlement offsets in business days. Everything but ACH settles same day.
var settlementDays = map[string]int{
	MethodACH:      1,
	MethodWire:     0,
	MethodCard:     0,
	MethodRTP:      0,
	MethodInternal: 0,
}

// Service is the multi-channel payment processor. Every debit it produces
// goes through the transaction engine.
type Service struct {
	repo     Repository
	engine   *ledger.Engine
	accounts ledger.Store
	network  Network
	logger   *slog.Logger
	auditor  audit.Recorder
}

// NewService builds a payment processor. A nil network falls back to the stub.
func NewService(repo Repository, engine *ledger.Engine, network Network, logger *slog.Logger, auditor audit.Recorder) *Service {
	if network == nil {
		network = StubNetwork{}
	}
	return &Service{
		repo:     repo,
		engine:   engine,
		accounts: engine.Store(),
		network:  network,
		logger:   logger,
		auditor:  auditor,
	}
}

// Fee returns the processing fee for a method and amount.
func Fee(method string, amount decimal.Decimal) decimal.Decimal {
	if method == MethodCard {
		return amount.Mul(cardFeeRate)
	}
	if fee, ok := flatFees[method]; ok {
		return fee
	}
	return decimal.Zero
}

// SettlementDate computes when a payment settles: next business day for ACH,
// same day for everything else.
func SettlementDate(method string, from time.Time) time.Time {
	days := settlementDays[method]
	settles := from
	for i := 0; i < days; i++ {
		settles = settles.AddDate(0, 0, 1)
		for settles.Weekday() == time.Saturday || settles.Weekday() == time.Sunday {
			settles = settles.AddDate(0, 0, 1)
		}
	}
	return settles
}

// InitiateInput captures the data required to initiate a payment.
type InitiateInput struct {
	AccountID          uuid.UUID
	PaymentType        string
	Method             string
	Amount             decimal.Decimal
	BeneficiaryName    string
	BeneficiaryAccount string
	BeneficiaryBank    string
	RoutingNumber      string
	SwiftCode          string
	Reference          string
	Description        string
	ScheduledDate      time.Time
}

// Initiate validates and persists a pending payment instruction. Payments
// scheduled for today execute immediately.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (*PaymentInstruction, error) {
	account, err := s.accounts.Account(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}
	if account.Status != ledger.AccountStatusActive {
		return nil, fmt.Errorf("%w: account is %s, not active", ErrInvalidState, account.Status)
	}

	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive, got %s", in.Amount)
	}
	total := in.Amount.Add(Fee(in.Method, in.Amount))
	if account.AvailableBalance.LessThan(total) {
		return nil, fmt.Errorf("%w: required %s, available %s",
			ledger.ErrInsufficientFunds, total, account.AvailableBalance)
	}

	if err := validateMethodRequirements(in); err != nil {
		return nil, err
	}

	reference := ledger.NewReference("PMT", 12)
	scheduled := in.ScheduledDate
	if scheduled.IsZero() {
		scheduled = time.Now().UTC()
	}
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("%s payment", in.PaymentType)
	}
	paymentRef := in.Reference
	if paymentRef == "" {
		paymentRef = reference
	}

	payment := &PaymentInstruction{
		ID:                 uuid.New(),
		Reference:          reference,
		AccountID:          in.AccountID,
		PaymentType:        in.PaymentType,
		Method:             in.Method,
		Amount:             in.Amount,
		Currency:           account.Currency,
		BeneficiaryName:    in.BeneficiaryName,
		BeneficiaryAccount: in.BeneficiaryAccount,
		BeneficiaryBank:    in.BeneficiaryBank,
		RoutingNumber:      in.RoutingNumber,
		SwiftCode:          in.SwiftCode,
		PaymentReference:   paymentRef,
		Description:        description,
		Status:             StatusPending,
		ScheduledDate:      scheduled,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.repo.CreateInstruction(ctx, payment); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("payment initiated", "reference", reference,
			"method", in.Method, "amount", in.Amount.String(),
			"beneficiary", in.BeneficiaryName)
	}

	if sameDay(scheduled, time.Now().UTC()) {
		return s.Execute(ctx, payment.ID)
	}
	return payment, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func validateMethodRequirements(in InitiateInput) error {
	switch in.Method {
	case MethodACH:
		if in.BeneficiaryAccount == "" || in.RoutingNumber == "" {
			return fmt.Errorf("ach payments require beneficiary account and routing number")
		}
	case MethodWire:
		if in.BeneficiaryAccount == "" {
			return fmt.Errorf("wire transfers require beneficiary account")
		}
		if in.SwiftCode != "" && len(in.SwiftCode) != 8 && len(in.SwiftCode) != 11 {
			return fmt.Errorf("invalid swift code format: %q", in.SwiftCode)
		}
	}
	return nil
}

// Execute processes a pending instruction: rail submission, the debit of
// amount plus fee through the transaction engine, then completion stamping.
// On any failure mid-sequence the instruction is marked failed with the
// captured error before it propagates to the caller.
func (s *Service) Execute(ctx context.Context, paymentID uuid.UUID) (*PaymentInstruction, error) {
	payment, err := s.repo.Instruction(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != StatusPending {
		return nil, fmt.Errorf("%w: payment is %s, not pending", ErrInvalidState, payment.Status)
	}

	if err := s.execute(ctx, payment); err != nil {
		payment.Status = StatusFailed
		payment.FailureReason = err.Error()
		if updateErr := s.repo.UpdateInstruction(ctx, payment); updateErr != nil && s.logger != nil {
			s.logger.Error("record payment failure", "reference", payment.Reference, "error", updateErr)
		}
		return nil, err
	}
	return payment, nil
}

func (s *Service) execute(ctx context.Context, payment *PaymentInstruction) error {
	if _, ok := settlementDays[payment.Method]; !ok {
		return fmt.Errorf("unsupported payment method: %s", payment.Method)
	}

	fee := Fee(payment.Method, payment.Amount)
	total := payment.Amount.Add(fee)

	if payment.Method == MethodInternal {
		if err := s.creditInternalBeneficiary(ctx, payment); err != nil {
			return err
		}
	} else {
		receipt, err := s.network.Submit(ctx, payment.Method, payment)
		if err != nil {
			return fmt.Errorf("submit to %s rail: %w", payment.Method, err)
		}
		if s.logger != nil {
			s.logger.Info("payment submitted to rail", "reference", payment.Reference,
				"method", payment.Method, "rail_reference", receipt.Reference)
		}
	}

	if _, err := s.engine.ProcessTransaction(ctx, ledger.PostingInput{
		AccountID:           payment.AccountID,
		Type:                ledger.TypePayment,
		Amount:              total,
		Description:         fmt.Sprintf("%s (Fee: %s)", payment.Description, fee),
		CounterpartyName:    payment.BeneficiaryName,
		CounterpartyAccount: payment.BeneficiaryAccount,
	}); err != nil {
		return err
	}

	now := time.Now().UTC()
	settles := SettlementDate(payment.Method, now)
	payment.Status = StatusCompleted
	payment.ExecutionDate = &now
	payment.SettlementDate = &settles
	payment.ConfirmationNumber = ledger.NewReference("CONF", 12)
	if err := s.repo.UpdateInstruction(ctx, payment); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("payment executed", "reference", payment.Reference,
			"confirmation", payment.ConfirmationNumber)
	}
	audit.Emit(ctx, s.auditor, audit.Event{
		Kind:      audit.KindPaymentExecuted,
		Entity:    "payment",
		Reference: payment.Reference,
		Detail:    fmt.Sprintf("%s %s via %s", payment.Amount, payment.Currency, payment.Method),
	})
	return nil
}

// creditInternalBeneficiary credits the destination account of an internal
// transfer when its account number resolves in this bank.
func (s *Service) creditInternalBeneficiary(ctx context.Context, payment *PaymentInstruction) error {
	if payment.BeneficiaryAccount == "" {
		return nil
	}
	beneficiary, err := s.accounts.AccountByNumber(ctx, payment.BeneficiaryAccount)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil
		}
		return err
	}
	_, err = s.engine.ProcessTransaction(ctx, ledger.PostingInput{
		AccountID:           beneficiary.ID,
		Type:                ledger.TypeDeposit,
		Amount:              payment.Amount,
		Description:         fmt.Sprintf("Transfer from %s", payment.BeneficiaryName),
		CounterpartyAccount: payment.AccountID.String(),
	})
	return err
}

// Cancel aborts a pending instruction. Executed or failed payments cannot
// be cancelled.
func (s *Service) Cancel(ctx context.Context, paymentID uuid.UUID, reason string) (*PaymentInstruction, error) {
	payment, err := s.repo.Instruction(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != StatusPending {
		return nil, fmt.Errorf("%w: cannot cancel payment with status %s", ErrInvalidState, payment.Status)
	}

	payment.Status = StatusCancelled
	payment.FailureReason = fmt.Sprintf("Cancelled: %s", reason)
	if err := s.repo.UpdateInstruction(ctx, payment); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("payment cancelled", "reference", payment.Reference, "reason", reason)
	}
	return payment, nil
}

// Status looks up an instruction by its business reference.
func (s *Service) Status(ctx context.Context, reference string) (*PaymentInstruction, error) {
	return s.repo.InstructionByReference(ctx, reference)
}

// BillPaymentResult summarizes a completed bill payment.
type BillPaymentResult struct {
	PaymentReference     string
	TransactionReference string
	Biller               string
	Amount               decimal.Decimal
	Status               string
}

// PayBill debits the account and records a bill payment, creating the biller
// on first use.
func (s *Service) PayBill(ctx context.Context, accountID uuid.UUID, billerName string, amount decimal.Decimal, reference string) (*BillPaymentResult, error) {
	biller, err := s.repo.BillerByName(ctx, billerName)
	if err != nil {
		if !errors.Is(err, ErrBillerNotFound) {
			return nil, err
		}
		biller = &Biller{
			ID:        uuid.New(),
			Reference: ledger.NewReference("BILL", 8),
			Name:      billerName,
			Category:  "Utility",
			Status:    "active",
		}
		if err := s.repo.CreateBiller(ctx, biller); err != nil {
			return nil, err
		}
	}

	txn, err := s.engine.ProcessTransaction(ctx, ledger.PostingInput{
		AccountID:   accountID,
		Type:        ledger.TypeDebit,
		Amount:      amount,
		Description: fmt.Sprintf("Bill Payment to %s", billerName),
		Category:    "Bill Payment",
	})
	if err != nil {
		return nil, err
	}

	billPayment := &BillPayment{
		ID:              uuid.New(),
		Reference:       ledger.NewReference("BP", 10),
		AccountID:       accountID,
		BillerID:        biller.ID,
		Amount:          amount,
		ReferenceNumber: reference,
		Status:          StatusCompleted,
	}
	if err := s.repo.CreateBillPayment(ctx, billPayment); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("bill payment processed", "biller", billerName, "amount", amount.String())
	}
	return &BillPaymentResult{
		PaymentReference:     billPayment.Reference,
		TransactionReference: txn.Reference,
		Biller:               billerName,
		Amount:               amount,
		Status:               StatusCompleted,
	}, nil
}

// AddBeneficiaryInput captures a new saved payee.
type AddBeneficiaryInput struct {
	CustomerID    uuid.UUID
	Name          string
	AccountNumber string
	BankName      string
	RoutingNumber string
	Nickname      string
}

// AddBeneficiary saves a payee for later payments.
func (s *Service) AddBeneficiary(ctx context.Context, in AddBeneficiaryInput) (*Beneficiary, error) {
	if in.Name == "" || in.AccountNumber == "" {
		return nil, fmt.Errorf("beneficiary name and account number are required")
	}
	beneficiary := &Beneficiary{
		ID:            uuid.New(),
		CustomerID:    in.CustomerID,
		Name:          in.Name,
		AccountNumber: in.AccountNumber,
		BankName:      in.BankName,
		RoutingNumber: in.RoutingNumber,
		Nickname:      in.Nickname,
		Status:        "active",
	}
	if err := s.repo.CreateBeneficiary(ctx, beneficiary); err != nil {
		return nil, err
	}
	return beneficiary, nil
}

// BeneficiaryView is a beneficiary with its account number masked for display.
type BeneficiaryView struct {
	ID            uuid.UUID
	Name          string
	AccountNumber string
	BankName      string
	Nickname      string
}

// Beneficiaries lists a customer's active payees with masked account numbers.
func (s *Service) Beneficiaries(ctx context.Context, customerID uuid.UUID) ([]BeneficiaryView, error) {
	beneficiaries, err := s.repo.BeneficiariesForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	views := make([]BeneficiaryView, 0, len(beneficiaries))
	for _, b := range beneficiaries {
		views = append(views, BeneficiaryView{
			ID:            b.ID,
			Name:          b.Name,
			AccountNumber: MaskAccountNumber(b.AccountNumber),
			BankName:      b.BankName,
			Nickname:      b.Nickname,
		})
	}
	return views, nil
}
