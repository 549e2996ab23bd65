package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository stores payment data in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateInstruction(ctx context.Context, p *PaymentInstruction) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO payment_instructions
        (id, reference, account_id, payment_type, payment_method, amount, currency,
         beneficiary_name, beneficiary_account, beneficiary_bank, routing_number,
         swift_code, payment_reference, description, status, failure_reason,
         confirmation_number, scheduled_date, execution_date, settlement_date, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		p.ID, p.Reference, p.AccountID, p.PaymentType, p.Method, p.Amount.String(),
		p.Currency, p.BeneficiaryName, p.BeneficiaryAccount, p.BeneficiaryBank,
		p.RoutingNumber, p.SwiftCode, p.PaymentReference, p.Description, p.Status,
		p.FailureReason, p.ConfirmationNumber, p.ScheduledDate, p.ExecutionDate,
		p.SettlementDate, p.CreatedAt)
	return err
}

const instructionColumns = `id, reference, account_id, payment_type, payment_method,
    amount::text, currency, beneficiary_name, beneficiary_account, beneficiary_bank,
    routing_number, swift_code, payment_reference, description, status, failure_reason,
    confirmation_number, scheduled_date, execution_date, settlement_date, created_at`

func scanInstruction(row pgx.Row) (*PaymentInstruction, error) {
	var (
		p      PaymentInstruction
		amount string
	)
	err := row.Scan(&p.ID, &p.Reference, &p.AccountID, &p.PaymentType, &p.Method,
		&amount, &p.Currency, &p.BeneficiaryName, &p.BeneficiaryAccount,
		&p.BeneficiaryBank, &p.RoutingNumber, &p.SwiftCode, &p.PaymentReference,
		&p.Description, &p.Status, &p.FailureReason, &p.ConfirmationNumber,
		&p.ScheduledDate, &p.ExecutionDate, &p.SettlementDate, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) Instruction(ctx context.Context, id uuid.UUID) (*PaymentInstruction, error) {
	return scanInstruction(r.db.QueryRow(ctx,
		`SELECT `+instructionColumns+` FROM payment_instructions WHERE id = $1`, id))
}

func (r *PostgresRepository) InstructionByReference(ctx context.Context, reference string) (*PaymentInstruction, error) {
	return scanInstruction(r.db.QueryRow(ctx,
		`SELECT `+instructionColumns+` FROM payment_instructions WHERE reference = $1`, reference))
}

func (r *PostgresRepository) UpdateInstruction(ctx context.Context, p *PaymentInstruction) error {
	tag, err := r.db.Exec(ctx, `UPDATE payment_instructions SET
        status = $2, failure_reason = $3, confirmation_number = $4,
        execution_date = $5, settlement_date = $6
        WHERE id = $1`,
		p.ID, p.Status, p.FailureReason, p.ConfirmationNumber, p.ExecutionDate, p.SettlementDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateBeneficiary(ctx context.Context, b *Beneficiary) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO beneficiaries
        (id, customer_id, name, account_number, bank_name, routing_number, nickname, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		b.ID, b.CustomerID, b.Name, b.AccountNumber, b.BankName, b.RoutingNumber,
		b.Nickname, b.Status, b.CreatedAt)
	return err
}

func (r *PostgresRepository) BeneficiariesForCustomer(ctx context.Context, customerID uuid.UUID) ([]Beneficiary, error) {
	rows, err := r.db.Query(ctx, `SELECT id, customer_id, name, account_number,
        bank_name, routing_number, nickname, status, created_at
        FROM beneficiaries WHERE customer_id = $1 AND status = 'active'
        ORDER BY created_at`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Beneficiary
	for rows.Next() {
		var b Beneficiary
		if err := rows.Scan(&b.ID, &b.CustomerID, &b.Name, &b.AccountNumber,
			&b.BankName, &b.RoutingNumber, &b.Nickname, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) BillerByName(ctx context.Context, name string) (*Biller, error) {
	var b Biller
	err := r.db.QueryRow(ctx, `SELECT id, reference, name, category, status, created_at
        FROM billers WHERE name = $1`, name).
		Scan(&b.ID, &b.Reference, &b.Name, &b.Category, &b.Status, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillerNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepository) CreateBiller(ctx context.Context, b *Biller) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO billers (id, reference, name, category, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`,
		b.ID, b.Reference, b.Name, b.Category, b.Status, b.CreatedAt)
	return err
}

func (r *PostgresRepository) CreateBillPayment(ctx context.Context, bp *BillPayment) error {
	if bp.ID == uuid.Nil {
		bp.ID = uuid.New()
	}
	if bp.CreatedAt.IsZero() {
		bp.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO bill_payments
        (id, reference, account_id, biller_id, amount, reference_number, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		bp.ID, bp.Reference, bp.AccountID, bp.BillerID, bp.Amount.String(),
		bp.ReferenceNumber, bp.Status, bp.CreatedAt)
	return err
}
