package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores customers in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO customers
        (id, reference, first_name, last_name, email, phone, kyc_status, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.Reference, c.FirstName, c.LastName, c.Email, c.Phone,
		c.KYCStatus, c.Status, c.CreatedAt)
	return err
}

const customerColumns = `id, reference, first_name, last_name, email, phone,
    kyc_status, status, created_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Reference, &c.FirstName, &c.LastName, &c.Email,
		&c.Phone, &c.KYCStatus, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) Customer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *PostgresRepository) CustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = $1`, email))
}
