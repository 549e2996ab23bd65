package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so store methods run
// the same inside and outside a unit of work.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists the ledger in PostgreSQL. Exclusive account
// acquisition uses SELECT ... FOR UPDATE inside the enclosing transaction.
type PostgresStore struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Atomic opens a database transaction and passes a transaction-scoped store
// to fn. A nested call joins the open transaction.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&PostgresStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const accountColumns = `id, account_number, customer_id, account_type, currency,
    balance::text, available_balance::text, status, opened_at, closed_at, updated_at`

func (s *PostgresStore) CreateAccount(ctx context.Context, account *Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	if account.OpenedAt.IsZero() {
		account.OpenedAt = now
	}
	account.UpdatedAt = now
	_, err := s.q().Exec(ctx, `INSERT INTO accounts
        (id, account_number, customer_id, account_type, currency, balance, available_balance, status, opened_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		account.ID, account.AccountNumber, account.CustomerID, account.AccountType,
		account.Currency, account.Balance.String(), account.AvailableBalance.String(),
		account.Status, account.OpenedAt, account.UpdatedAt)
	return err
}

func (s *PostgresStore) scanAccount(row pgx.Row) (*Account, error) {
	var (
		a              Account
		balance, avail string
	)
	err := row.Scan(&a.ID, &a.AccountNumber, &a.CustomerID, &a.AccountType, &a.Currency,
		&balance, &avail, &a.Status, &a.OpenedAt, &a.ClosedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	if a.AvailableBalance, err = decimal.NewFromString(avail); err != nil {
		return nil, fmt.Errorf("parse available balance: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) Account(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.scanAccount(s.q().QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (s *PostgresStore) AccountByNumber(ctx context.Context, number string) (*Account, error) {
	return s.scanAccount(s.q().QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, number))
}

func (s *PostgresStore) AccountForUpdate(ctx context.Context, id uuid.UUID) (*Account, error) {
	if s.tx == nil {
		return nil, fmt.Errorf("account lock requires an open unit of work")
	}
	return s.scanAccount(s.q().QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

func (s *PostgresStore) ActiveAccountForCustomer(ctx context.Context, customerID uuid.UUID) (*Account, error) {
	return s.scanAccount(s.q().QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts
         WHERE customer_id = $1 AND status = $2 ORDER BY opened_at LIMIT 1`,
		customerID, AccountStatusActive))
}

func (s *PostgresStore) UpdateAccount(ctx context.Context, account *Account) error {
	account.UpdatedAt = time.Now().UTC()
	tag, err := s.q().Exec(ctx, `UPDATE accounts SET
        balance = $2, available_balance = $3, status = $4, closed_at = $5, updated_at = $6
        WHERE id = $1`,
		account.ID, account.Balance.String(), account.AvailableBalance.String(),
		account.Status, account.ClosedAt, account.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, txn *Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	_, err := s.q().Exec(ctx, `INSERT INTO transactions
        (id, reference, account_id, transaction_type, amount, currency, balance_after,
         description, category, counterparty_name, counterparty_account, status,
         transaction_date, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		txn.ID, txn.Reference, txn.AccountID, txn.Type, txn.Amount.String(), txn.Currency,
		txn.BalanceAfter.String(), txn.Description, txn.Category, txn.CounterpartyName,
		txn.CounterpartyAccount, txn.Status, txn.TransactionDate, txn.CreatedAt)
	return err
}

const transactionColumns = `id, reference, account_id, transaction_type, amount::text,
    currency, balance_after::text, description, category, counterparty_name,
    counterparty_account, status, transaction_date, created_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		t             Transaction
		amount, after string
	)
	err := row.Scan(&t.ID, &t.Reference, &t.AccountID, &t.Type, &amount, &t.Currency,
		&after, &t.Description, &t.Category, &t.CounterpartyName, &t.CounterpartyAccount,
		&t.Status, &t.TransactionDate, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if t.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return nil, fmt.Errorf("parse balance_after: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) Transaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return scanTransaction(s.q().QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

func (s *PostgresStore) SetTransactionStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.q().Exec(ctx,
		`UPDATE transactions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (s *PostgresStore) Transactions(ctx context.Context, accountID uuid.UUID, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q().Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
         WHERE account_id = $1 ORDER BY transaction_date DESC LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateLedgerEntries(ctx context.Context, entries []GeneralLedgerEntry) error {
	for i := range entries {
		if entries[i].ID == uuid.Nil {
			entries[i].ID = uuid.New()
		}
		_, err := s.q().Exec(ctx, `INSERT INTO general_ledger
            (id, reference, transaction_id, account_code, account_name, debit_amount,
             credit_amount, currency, description, reference_number, posting_date)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			entries[i].ID, entries[i].Reference, entries[i].TransactionID,
			entries[i].AccountCode, entries[i].AccountName, entries[i].DebitAmount.String(),
			entries[i].CreditAmount.String(), entries[i].Currency, entries[i].Description,
			entries[i].ReferenceNo, entries[i].PostingDate)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) LedgerEntries(ctx context.Context, transactionID uuid.UUID) ([]GeneralLedgerEntry, error) {
	rows, err := s.q().Query(ctx, `SELECT id, reference, transaction_id, account_code,
        account_name, debit_amount::text, credit_amount::text, currency, description,
        reference_number, posting_date
        FROM general_ledger WHERE transaction_id = $1 ORDER BY account_code`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GeneralLedgerEntry
	for rows.Next() {
		var (
			e             GeneralLedgerEntry
			debit, credit string
		)
		err := rows.Scan(&e.ID, &e.Reference, &e.TransactionID, &e.AccountCode,
			&e.AccountName, &debit, &credit, &e.Currency, &e.Description,
			&e.ReferenceNo, &e.PostingDate)
		if err != nil {
			return nil, err
		}
		if e.DebitAmount, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("parse debit amount: %w", err)
		}
		if e.CreditAmount, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("parse credit amount: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
