package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/audit"
)

// reversalTypes maps a completed transaction's type to the type of its
// offsetting posting. Types without an inverse cannot be reversed.
var reversalTypes = map[string]string{
	TypeDeposit:    TypeWithdrawal,
	TypeWithdrawal: TypeDeposit,
	TypeCredit:     TypeDebit,
	TypeDebit:      TypeCredit,
}

// PostingInput describes one requested ledger movement.
type PostingInput struct {
	AccountID           uuid.UUID
	Type                string
	Amount              decimal.Decimal
	Description         string
	Category            string
	CounterpartyName    string
	CounterpartyAccount string
}

// Engine is the atomic posting primitive. Every money movement in the system
// funnels through ProcessTransaction: it validates funds, mutates the
// balance under an exclusive account lock, and writes the transaction row
// plus its double-entry ledger lines in one unit of work.
type Engine struct {
	store   Store
	logger  *slog.Logger
	auditor audit.Recorder
}

// NewEngine builds a transaction engine over the given store. Logger and
// auditor may be nil.
func NewEngine(store Store, logger *slog.Logger, auditor audit.Recorder) *Engine {
	return &Engine{store: store, logger: logger, auditor: auditor}
}

// Store exposes the engine's backing store for collaborators that need
// read-only account lookups.
func (e *Engine) Store() Store {
	return e.store
}

// ProcessTransaction posts one ledger movement. Credit-class types raise the
// balance, debit-class types lower it after an available-funds check, and
// unrecognized types are rejected before any mutation.
func (e *Engine) ProcessTransaction(ctx context.Context, in PostingInput) (*Transaction, error) {
	var txn *Transaction
	err := e.store.Atomic(ctx, func(s Store) error {
		var err error
		txn, err = e.post(ctx, s, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// post runs inside an open unit of work so TransferFunds can wrap two
// postings in one outer unit.
func (e *Engine) post(ctx context.Context, s Store, in PostingInput) (*Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("transaction amount must be positive, got %s", in.Amount)
	}

	account, err := s.AccountForUpdate(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}

	var newBalance decimal.Decimal
	switch {
	case creditTypes[in.Type]:
		newBalance = account.Balance.Add(in.Amount)
	case debitTypes[in.Type]:
		if account.AvailableBalance.LessThan(in.Amount) {
			return nil, fmt.Errorf("%w: required %s, available %s",
				ErrInsufficientFunds, in.Amount, account.AvailableBalance)
		}
		newBalance = account.Balance.Sub(in.Amount)
	default:
		return nil, fmt.Errorf("unknown transaction type: %q", in.Type)
	}

	now := time.Now().UTC()
	txn := &Transaction{
		ID:                  uuid.New(),
		Reference:           NewReference("TXN", 12),
		AccountID:           account.ID,
		Type:                in.Type,
		Amount:              in.Amount,
		Currency:            account.Currency,
		BalanceAfter:        newBalance,
		Description:         in.Description,
		Category:            in.Category,
		CounterpartyName:    in.CounterpartyName,
		CounterpartyAccount: in.CounterpartyAccount,
		Status:              TxnStatusCompleted,
		TransactionDate:     now,
		CreatedAt:           now,
	}
	if err := s.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	account.Balance = newBalance
	account.AvailableBalance = newBalance
	if err := s.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	if err := s.CreateLedgerEntries(ctx, ledgerEntriesFor(txn)); err != nil {
		return nil, err
	}

	if e.logger != nil {
		e.logger.Info("transaction posted",
			"reference", txn.Reference, "type", in.Type,
			"amount", in.Amount.String(), "balance_after", newBalance.String())
	}
	audit.Emit(ctx, e.auditor, audit.Event{
		Kind:      audit.KindTransactionPosted,
		Entity:    "transaction",
		Reference: txn.Reference,
		Detail:    fmt.Sprintf("%s %s %s", in.Type, in.Amount, account.Currency),
	})

	return txn, nil
}

// ledgerEntriesFor builds the double-entry lines for a posting. Deposits
// debit Cash and credit Customer Deposits; withdrawals and payments do the
// inverse. All other types land on a single Miscellaneous line, preserving
// the posting table the engine has always used.
func ledgerEntriesFor(txn *Transaction) []GeneralLedgerEntry {
	base := GeneralLedgerEntry{
		TransactionID: txn.ID,
		Currency:      txn.Currency,
		Description:   txn.Description,
		ReferenceNo:   txn.Reference,
		PostingDate:   txn.TransactionDate,
	}
	entry := func(code, name string, debit, credit decimal.Decimal) GeneralLedgerEntry {
		e := base
		e.ID = uuid.New()
		e.Reference = NewReference("GL", 12)
		e.AccountCode = code
		e.AccountName = name
		e.DebitAmount = debit
		e.CreditAmount = credit
		return e
	}

	switch txn.Type {
	case TypeDeposit:
		return []GeneralLedgerEntry{
			entry(GLCash, "Cash", txn.Amount, decimal.Zero),
			entry(GLCustomerDeposits, "Customer Deposits", decimal.Zero, txn.Amount),
		}
	case TypeWithdrawal, TypePayment:
		return []GeneralLedgerEntry{
			entry(GLCustomerDeposits, "Customer Deposits", txn.Amount, decimal.Zero),
			entry(GLCash, "Cash", decimal.Zero, txn.Amount),
		}
	default:
		return []GeneralLedgerEntry{
			entry(GLMiscellaneous, "Miscellaneous", txn.Amount, decimal.Zero),
		}
	}
}

// TransferFunds moves amount between two accounts: a transfer debit on the
// source, then a deposit credit on the destination, wrapped in one outer
// unit of work. If the credit leg fails the debit leg rolls back with it.
func (e *Engine) TransferFunds(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, description string) (*Transaction, *Transaction, error) {
	if description == "" {
		description = "Fund Transfer"
	}
	var debitTxn, creditTxn *Transaction
	err := e.store.Atomic(ctx, func(s Store) error {
		var err error
		debitTxn, err = e.post(ctx, s, PostingInput{
			AccountID:           fromID,
			Type:                TypeTransfer,
			Amount:              amount,
			Description:         description + " - Debit",
			CounterpartyAccount: toID.String(),
		})
		if err != nil {
			return err
		}
		creditTxn, err = e.post(ctx, s, PostingInput{
			AccountID:           toID,
			Type:                TypeDeposit,
			Amount:              amount,
			Description:         description + " - Credit",
			CounterpartyAccount: fromID.String(),
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return debitTxn, creditTxn, nil
}

// ReverseTransaction posts an offsetting transaction of the inverse type for
// the same amount and marks the original reversed. Only completed
// transactions may be reversed.
func (e *Engine) ReverseTransaction(ctx context.Context, transactionID uuid.UUID, reason string) (*Transaction, error) {
	if reason == "" {
		reason = "Transaction reversal"
	}
	var reversal *Transaction
	err := e.store.Atomic(ctx, func(s Store) error {
		original, err := s.Transaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if original.Status != TxnStatusCompleted {
			return fmt.Errorf("%w: can only reverse completed transactions, status is %q",
				ErrInvalidState, original.Status)
		}

		reversalType, ok := reversalTypes[original.Type]
		if !ok {
			return fmt.Errorf("transactions of type %q cannot be reversed", original.Type)
		}

		reversal, err = e.post(ctx, s, PostingInput{
			AccountID:           original.AccountID,
			Type:                reversalType,
			Amount:              original.Amount,
			Description:         fmt.Sprintf("REVERSAL: %s (Original: %s)", reason, original.Reference),
			CounterpartyName:    original.CounterpartyName,
			CounterpartyAccount: original.CounterpartyAccount,
		})
		if err != nil {
			return err
		}

		return s.SetTransactionStatus(ctx, original.ID, TxnStatusReversed)
	})
	if err != nil {
		return nil, err
	}

	audit.Emit(ctx, e.auditor, audit.Event{
		Kind:      audit.KindTransactionReversed,
		Entity:    "transaction",
		Reference: reversal.Reference,
		Detail:    reason,
	})
	return reversal, nil
}

// AccountBalance returns a read-only balance projection.
func (e *Engine) AccountBalance(ctx context.Context, accountID uuid.UUID) (BalanceSnapshot, error) {
	account, err := e.store.Account(ctx, accountID)
	if err != nil {
		return BalanceSnapshot{}, err
	}
	return BalanceSnapshot{
		AccountNumber:    account.AccountNumber,
		AccountType:      account.AccountType,
		Balance:          account.Balance,
		AvailableBalance: account.AvailableBalance,
		Currency:         account.Currency,
		Status:           account.Status,
	}, nil
}
