package banking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
)

func newTestService() (*Service, *ledger.MemoryStore) {
	store := ledger.NewMemoryStore()
	engine := ledger.NewEngine(store, nil, nil)
	return NewService(store, engine, nil, nil), store
}

func TestOpenAccountWithInitialDeposit(t *testing.T) {
	svc, store := newTestService()

	ctx := context.Background()
	account, err := svc.OpenAccount(ctx, OpenAccountInput{
		CustomerID:     uuid.New(),
		AccountType:    "checking",
		InitialDeposit: decimal.RequireFromString("10000.00"),
	})
	if err != nil {
		t.Fatalf("open account: %v", err)
	}

	if account.Status != ledger.AccountStatusActive {
		t.Fatalf("expected active account, got %s", account.Status)
	}
	if !account.Balance.Equal(decimal.RequireFromString("10000.00")) {
		t.Fatalf("expected balance 10000.00, got %s", account.Balance)
	}
	if account.Currency != "USD" {
		t.Fatalf("expected USD default currency, got %s", account.Currency)
	}

	txns, err := store.Transactions(ctx, account.ID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 1 || txns[0].Type != ledger.TypeDeposit {
		t.Fatalf("expected one deposit transaction, got %+v", txns)
	}
}

func TestOpenAccountWithoutDeposit(t *testing.T) {
	svc, _ := newTestService()

	account, err := svc.OpenAccount(context.Background(), OpenAccountInput{
		CustomerID:  uuid.New(),
		AccountType: "savings",
		Currency:    "EUR",
	})
	if err != nil {
		t.Fatalf("open account: %v", err)
	}
	if !account.Balance.IsZero() || account.Currency != "EUR" {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestCloseAccountRequiresZeroBalance(t *testing.T) {
	svc, store := newTestService()

	ctx := context.Background()
	funded, err := svc.OpenAccount(ctx, OpenAccountInput{
		CustomerID:     uuid.New(),
		AccountType:    "checking",
		InitialDeposit: decimal.RequireFromString("5.00"),
	})
	if err != nil {
		t.Fatalf("open account: %v", err)
	}

	if err := svc.CloseAccount(ctx, funded.ID, "moving banks"); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}

	empty, err := svc.OpenAccount(ctx, OpenAccountInput{CustomerID: uuid.New(), AccountType: "checking"})
	if err != nil {
		t.Fatalf("open account: %v", err)
	}
	if err := svc.CloseAccount(ctx, empty.ID, "unused"); err != nil {
		t.Fatalf("close account: %v", err)
	}

	closed, _ := store.Account(ctx, empty.ID)
	if closed.Status != ledger.AccountStatusClosed || closed.ClosedAt == nil {
		t.Fatalf("account not closed: %+v", closed)
	}
}

func TestCloseAccountNotFound(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.CloseAccount(context.Background(), uuid.New(), ""); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}
