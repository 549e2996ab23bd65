package loans

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository stores loans and schedules in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateLoan(ctx context.Context, l *Loan) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO loans
        (id, reference, customer_id, account_id, loan_type, principal_amount,
         interest_rate, tenure_months, emi_amount, outstanding_balance, status,
         application_date, approval_date, disbursement_date, maturity_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		l.ID, l.Reference, l.CustomerID, l.AccountID, l.LoanType,
		l.PrincipalAmount.String(), l.InterestRate.String(), l.TenureMonths,
		l.EMIAmount.String(), l.OutstandingBalance.String(), l.Status,
		l.ApplicationDate, l.ApprovalDate, l.DisbursementDate, l.MaturityDate)
	return err
}

const loanColumns = `id, reference, customer_id, account_id, loan_type,
    principal_amount::text, interest_rate::text, tenure_months, emi_amount::text,
    outstanding_balance::text, status, application_date, approval_date,
    disbursement_date, maturity_date`

func scanLoan(row pgx.Row) (*Loan, error) {
	var (
		l           Loan
		principal   string
		rate        string
		emi         string
		outstanding string
	)
	err := row.Scan(&l.ID, &l.Reference, &l.CustomerID, &l.AccountID, &l.LoanType,
		&principal, &rate, &l.TenureMonths, &emi, &outstanding, &l.Status,
		&l.ApplicationDate, &l.ApprovalDate, &l.DisbursementDate, &l.MaturityDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	if l.PrincipalAmount, err = decimal.NewFromString(principal); err != nil {
		return nil, fmt.Errorf("parse principal: %w", err)
	}
	if l.InterestRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("parse interest rate: %w", err)
	}
	if l.EMIAmount, err = decimal.NewFromString(emi); err != nil {
		return nil, fmt.Errorf("parse emi: %w", err)
	}
	if l.OutstandingBalance, err = decimal.NewFromString(outstanding); err != nil {
		return nil, fmt.Errorf("parse outstanding balance: %w", err)
	}
	return &l, nil
}

func (r *PostgresRepository) Loan(ctx context.Context, id uuid.UUID) (*Loan, error) {
	return scanLoan(r.db.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id))
}

func (r *PostgresRepository) LoanByReference(ctx context.Context, reference string) (*Loan, error) {
	return scanLoan(r.db.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE reference = $1`, reference))
}

func (r *PostgresRepository) UpdateLoan(ctx context.Context, l *Loan) error {
	tag, err := r.db.Exec(ctx, `UPDATE loans SET
        account_id = $2, outstanding_balance = $3, status = $4,
        approval_date = $5, disbursement_date = $6, maturity_date = $7
        WHERE id = $1`,
		l.ID, l.AccountID, l.OutstandingBalance.String(), l.Status,
		l.ApprovalDate, l.DisbursementDate, l.MaturityDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLoanNotFound
	}
	return nil
}

func (r *PostgresRepository) ReplaceSchedule(ctx context.Context, loanID uuid.UUID, schedule []LoanPayment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM loan_payments WHERE loan_id = $1`, loanID); err != nil {
		return err
	}
	for i := range schedule {
		p := &schedule[i]
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if _, err := tx.Exec(ctx, `INSERT INTO loan_payments
            (id, reference, loan_id, payment_number, due_date, scheduled_amount,
             principal_amount, interest_amount, outstanding_balance, paid_amount,
             late_fee, payment_method, payment_date, status)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			p.ID, p.Reference, p.LoanID, p.PaymentNumber, p.DueDate,
			p.ScheduledAmount.String(), p.PrincipalAmount.String(),
			p.InterestAmount.String(), p.OutstandingBalance.String(),
			p.PaidAmount.String(), p.LateFee.String(), p.PaymentMethod,
			p.PaymentDate, p.Status); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const paymentColumns = `id, reference, loan_id, payment_number, due_date,
    scheduled_amount::text, principal_amount::text, interest_amount::text,
    outstanding_balance::text, paid_amount::text, late_fee::text,
    payment_method, payment_date, status`

func scanPayment(row pgx.Row) (*LoanPayment, error) {
	var (
		p           LoanPayment
		scheduled   string
		principal   string
		interest    string
		outstanding string
		paid        string
		lateFee     string
	)
	err := row.Scan(&p.ID, &p.Reference, &p.LoanID, &p.PaymentNumber, &p.DueDate,
		&scheduled, &principal, &interest, &outstanding, &paid, &lateFee,
		&p.PaymentMethod, &p.PaymentDate, &p.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.ScheduledAmount, scheduled},
		{&p.PrincipalAmount, principal},
		{&p.InterestAmount, interest},
		{&p.OutstandingBalance, outstanding},
		{&p.PaidAmount, paid},
		{&p.LateFee, lateFee},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("parse payment amount: %w", err)
		}
	}
	return &p, nil
}

func (r *PostgresRepository) Schedule(ctx context.Context, loanID uuid.UUID) ([]LoanPayment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+`
        FROM loan_payments WHERE loan_id = $1 ORDER BY payment_number`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LoanPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Payment(ctx context.Context, id uuid.UUID) (*LoanPayment, error) {
	return scanPayment(r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM loan_payments WHERE id = $1`, id))
}

func (r *PostgresRepository) UpdatePayment(ctx context.Context, p *LoanPayment) error {
	tag, err := r.db.Exec(ctx, `UPDATE loan_payments SET
        paid_amount = $2, late_fee = $3, payment_method = $4,
        payment_date = $5, status = $6
        WHERE id = $1`,
		p.ID, p.PaidAmount.String(), p.LateFee.String(), p.PaymentMethod,
		p.PaymentDate, p.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
