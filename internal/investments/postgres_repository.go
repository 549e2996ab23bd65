package investments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository stores positions and trades in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateInvestment(ctx context.Context, inv *Investment) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO investments
        (id, reference, customer_id, account_id, symbol, security_name,
         security_type, quantity, average_cost, current_price, market_value,
         unrealized_gain_loss, status, opened_at, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		inv.ID, inv.Reference, inv.CustomerID, inv.AccountID, inv.Symbol,
		inv.SecurityName, inv.SecurityType, inv.Quantity.String(),
		inv.AverageCost.String(), inv.CurrentPrice.String(),
		inv.MarketValue.String(), inv.UnrealizedGainLoss.String(),
		inv.Status, inv.OpenedAt, inv.ClosedAt)
	return err
}

const investmentColumns = `id, reference, customer_id, account_id, symbol,
    security_name, security_type, quantity::text, average_cost::text,
    current_price::text, market_value::text, unrealized_gain_loss::text,
    status, opened_at, closed_at`

func scanInvestment(row pgx.Row) (*Investment, error) {
	var (
		inv        Investment
		quantity   string
		avgCost    string
		price      string
		market     string
		unrealized string
	)
	err := row.Scan(&inv.ID, &inv.Reference, &inv.CustomerID, &inv.AccountID,
		&inv.Symbol, &inv.SecurityName, &inv.SecurityType, &quantity, &avgCost,
		&price, &market, &unrealized, &inv.Status, &inv.OpenedAt, &inv.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&inv.Quantity, quantity},
		{&inv.AverageCost, avgCost},
		{&inv.CurrentPrice, price},
		{&inv.MarketValue, market},
		{&inv.UnrealizedGainLoss, unrealized},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("parse investment amount: %w", err)
		}
	}
	return &inv, nil
}

func (r *PostgresRepository) Investment(ctx context.Context, id uuid.UUID) (*Investment, error) {
	return scanInvestment(r.db.QueryRow(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = $1`, id))
}

func (r *PostgresRepository) ActivePosition(ctx context.Context, customerID uuid.UUID, symbol string) (*Investment, error) {
	return scanInvestment(r.db.QueryRow(ctx,
		`SELECT `+investmentColumns+` FROM investments
        WHERE customer_id = $1 AND symbol = $2 AND status = 'active'
        LIMIT 1`, customerID, symbol))
}

func (r *PostgresRepository) scanInvestments(rows pgx.Rows) ([]Investment, error) {
	defer rows.Close()
	var out []Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ActivePositionsBySymbol(ctx context.Context, symbol string) ([]Investment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+investmentColumns+`
        FROM investments WHERE symbol = $1 AND status = 'active'`, symbol)
	if err != nil {
		return nil, err
	}
	return r.scanInvestments(rows)
}

func (r *PostgresRepository) InvestmentsForCustomer(ctx context.Context, customerID uuid.UUID) ([]Investment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+investmentColumns+`
        FROM investments WHERE customer_id = $1 ORDER BY opened_at`, customerID)
	if err != nil {
		return nil, err
	}
	return r.scanInvestments(rows)
}

func (r *PostgresRepository) UpdateInvestment(ctx context.Context, inv *Investment) error {
	tag, err := r.db.Exec(ctx, `UPDATE investments SET
        security_name = $2, quantity = $3, average_cost = $4, current_price = $5,
        market_value = $6, unrealized_gain_loss = $7, status = $8, closed_at = $9
        WHERE id = $1`,
		inv.ID, inv.SecurityName, inv.Quantity.String(), inv.AverageCost.String(),
		inv.CurrentPrice.String(), inv.MarketValue.String(),
		inv.UnrealizedGainLoss.String(), inv.Status, inv.ClosedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvestmentNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateTrade(ctx context.Context, t *Trade) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO trades
        (id, reference, investment_id, trade_type, symbol, quantity, price,
         total_amount, commission, fees, status, order_date, execution_date,
         settlement_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		t.ID, t.Reference, t.InvestmentID, t.TradeType, t.Symbol,
		t.Quantity.String(), t.Price.String(), t.TotalAmount.String(),
		t.Commission.String(), t.Fees.String(), t.Status, t.OrderDate,
		t.ExecutionDate, t.SettlementDate)
	return err
}

const tradeColumns = `id, reference, investment_id, trade_type, symbol,
    quantity::text, price::text, total_amount::text, commission::text,
    fees::text, status, order_date, execution_date, settlement_date`

func scanTrade(row pgx.Row) (*Trade, error) {
	var (
		t          Trade
		quantity   string
		price      string
		total      string
		commission string
		fees       string
	)
	err := row.Scan(&t.ID, &t.Reference, &t.InvestmentID, &t.TradeType,
		&t.Symbol, &quantity, &price, &total, &commission, &fees, &t.Status,
		&t.OrderDate, &t.ExecutionDate, &t.SettlementDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&t.Quantity, quantity},
		{&t.Price, price},
		{&t.TotalAmount, total},
		{&t.Commission, commission},
		{&t.Fees, fees},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("parse trade amount: %w", err)
		}
	}
	return &t, nil
}

func (r *PostgresRepository) Trade(ctx context.Context, id uuid.UUID) (*Trade, error) {
	return scanTrade(r.db.QueryRow(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id))
}

func (r *PostgresRepository) UpdateTrade(ctx context.Context, t *Trade) error {
	tag, err := r.db.Exec(ctx, `UPDATE trades SET
        status = $2, execution_date = $3, settlement_date = $4
        WHERE id = $1`,
		t.ID, t.Status, t.ExecutionDate, t.SettlementDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTradeNotFound
	}
	return nil
}

func (r *PostgresRepository) TradesForCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]Trade, error) {
	rows, err := r.db.Query(ctx, `SELECT `+tradeColumns+` FROM trades
        WHERE investment_id IN (SELECT id FROM investments WHERE customer_id = $1)
        ORDER BY order_date DESC LIMIT $2`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
