package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound occurs when the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound occurs when the referenced transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInsufficientFunds occurs when available balance cannot cover a
	// debit-class posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidState indicates an operation against an entity in the wrong
	// lifecycle state, such as reversing a non-completed transaction.
	ErrInvalidState = errors.New("invalid state")
)

// Store is the durable backend for accounts, transactions, and general
// ledger entries.
//
// Atomic runs fn inside one all-or-nothing unit of work: either every write
// issued through the store fn receives lands, or none do. Nested Atomic
// calls join the enclosing unit. AccountForUpdate must only be called inside
// Atomic; it acquires an exclusive lock on the account row which is held
// until the unit commits or rolls back.
type Store interface {
	Atomic(ctx context.Context, fn func(Store) error) error

	CreateAccount(ctx context.Context, account *Account) error
	Account(ctx context.Context, id uuid.UUID) (*Account, error)
	AccountByNumber(ctx context.Context, number string) (*Account, error)
	AccountForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	ActiveAccountForCustomer(ctx context.Context, customerID uuid.UUID) (*Account, error)
	UpdateAccount(ctx context.Context, account *Account) error

	CreateTransaction(ctx context.Context, txn *Transaction) error
	Transaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	SetTransactionStatus(ctx context.Context, id uuid.UUID, status string) error
	Transactions(ctx context.Context, accountID uuid.UUID, limit int) ([]Transaction, error)

	CreateLedgerEntries(ctx context.Context, entries []GeneralLedgerEntry) error
	LedgerEntries(ctx context.Context, transactionID uuid.UUID) ([]GeneralLedgerEntry, error)
}
