package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account statuses.
const (
	AccountStatusActive = "active"
	AccountStatusClosed = "closed"
)

// Transaction types recognized by the engine.
const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
	TypeTransfer   = "transfer"
	TypeCredit     = "credit"
	TypeDebit      = "debit"
	TypePayment    = "payment"
	TypeRefund     = "refund"
	TypeReversal   = "reversal"
)

// Transaction statuses.
const (
	TxnStatusCompleted = "completed"
	TxnStatusReversed  = "reversed"
	TxnStatusBlocked   = "blocked"
)

// General ledger account codes used for double-entry postings.
const (
	GLCash             = "1100"
	GLLoanAssets       = "1200"
	GLInterestRecv     = "1300"
	GLCustomerDeposits = "2100"
	GLInterestPayable  = "2200"
	GLFeeIncome        = "4100"
	GLInterestIncome   = "4200"
	GLInterestExpense  = "5100"
	GLMiscellaneous    = "9999"
)

// creditTypes increase the account balance; debitTypes decrease it. Any type
// outside both sets is rejected before mutation.
var (
	creditTypes = map[string]bool{TypeDeposit: true, TypeCredit: true, TypeRefund: true}
	debitTypes  = map[string]bool{TypeWithdrawal: true, TypeDebit: true, TypePayment: true, TypeTransfer: true}
)

// Account is a customer deposit account. Balance only changes through the
// transaction engine; AvailableBalance never exceeds Balance.
type Account struct {
	ID               uuid.UUID
	AccountNumber    string
	CustomerID       uuid.UUID
	AccountType      string
	Currency         string
	Balance          decimal.Decimal
	AvailableBalance decimal.Decimal
	Status           string
	OpenedAt         time.Time
	ClosedAt         *time.Time
	UpdatedAt        time.Time
}

// Transaction is an immutable record of one ledger movement. Amount and type
// never change after completion; a reversal is a new offsetting transaction.
type Transaction struct {
	ID                  uuid.UUID
	Reference           string
	AccountID           uuid.UUID
	Type                string
	Amount              decimal.Decimal
	Currency            string
	BalanceAfter        decimal.Decimal
	Description         string
	Category            string
	CounterpartyName    string
	CounterpartyAccount string
	Status              string
	TransactionDate     time.Time
	CreatedAt           time.Time
}

// GeneralLedgerEntry is one side of a double-entry posting tied to a
// transaction. Per transaction, total debits equal total credits.
type GeneralLedgerEntry struct {
	ID            uuid.UUID
	Reference     string
	TransactionID uuid.UUID
	AccountCode   string
	AccountName   string
	DebitAmount   decimal.Decimal
	CreditAmount  decimal.Decimal
	Currency      string
	Description   string
	ReferenceNo   string
	PostingDate   time.Time
}

// BalanceSnapshot is a read-only projection of an account's balances.
type BalanceSnapshot struct {
	AccountNumber    string
	AccountType      string
	Balance          decimal.Decimal
	AvailableBalance decimal.Decimal
	Currency         string
	Status           string
}

// NewReference builds a short uppercase business reference such as TXN4F2A….
func NewReference(prefix string, n int) string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > len(hex) {
		n = len(hex)
	}
	return prefix + hex[:n]
}
