package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newTestEngine(t *testing.T) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewEngine(store, nil, nil), store
}

func mustSeed(t *testing.T, store Store, balance string) *Account {
	t.Helper()
	account, err := SeedAccount(store, uuid.New(), decimal.RequireFromString(balance))
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func TestProcessTransactionDeposit(t *testing.T) {
	engine, store := newTestEngine(t)
	account := mustSeed(t, store, "100.00")

	ctx := context.Background()
	txn, err := engine.ProcessTransaction(ctx, PostingInput{
		AccountID:   account.ID,
		Type:        TypeDeposit,
		Amount:      decimal.RequireFromString("50.00"),
		Description: "cash deposit",
	})
	if err != nil {
		t.Fatalf("process transaction: %v", err)
	}

	if !txn.BalanceAfter.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("expected balance_after 150.00, got %s", txn.BalanceAfter)
	}
	if txn.Status != TxnStatusCompleted {
		t.Fatalf("expected completed status, got %s", txn.Status)
	}

	updated, err := store.Account(ctx, account.ID)
	if err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if !updated.Balance.Equal(txn.BalanceAfter) || !updated.AvailableBalance.Equal(txn.BalanceAfter) {
		t.Fatalf("account balances not updated: %s / %s", updated.Balance, updated.AvailableBalance)
	}
}

func TestProcessTransactionDoubleEntryBalances(t *testing.T) {
	engine, store := newTestEngine(t)
	account := mustSeed(t, store, "500.00")

	ctx := context.Background()
	for _, typ := range []string{TypeDeposit, TypeWithdrawal, TypePayment} {
		txn, err := engine.ProcessTransaction(ctx, PostingInput{
			AccountID: account.ID,
			Type:      typ,
			Amount:    decimal.RequireFromString("25.00"),
		})
		if err != nil {
			t.Fatalf("post %s: %v", typ, err)
		}

		entries, err := store.LedgerEntries(ctx, txn.ID)
		if err != nil {
			t.Fatalf("ledger entries: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 ledger entries for %s, got %d", typ, len(entries))
		}
		debits, credits := decimal.Zero, decimal.Zero
		for _, e := range entries {
			debits = debits.Add(e.DebitAmount)
			credits = credits.Add(e.CreditAmount)
		}
		if !debits.Equal(credits) {
			t.Fatalf("%s posting unbalanced: debits %s, credits %s", typ, debits, credits)
		}
	}
}

func TestProcessTransactionInsufficientFunds(t *testing.T) {
	engine, store := newTestEngine(t)
	account := mustSeed(t, store, "10.00")

	ctx := context.Background()
	_, err := engine.ProcessTransaction(ctx, PostingInput{
		AccountID: account.ID,
		Type:      TypeWithdrawal,
		Amount:    decimal.RequireFromString("10.01"),
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	unchanged, _ := store.Account(ctx, account.ID)
	if !unchanged.Balance.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("rejected posting mutated balance: %s", unchanged.Balance)
	}
	txns, _ := store.Transactions(ctx, account.ID, 0)
	if len(txns) != 0 {
		t.Fatalf("rejected posting wrote %d transaction rows", len(txns))
	}
}

func TestProcessTransactionUnknownType(t *testing.T) {
	engine, store := newTestEngine(t)
	account := mustSeed(t, store, "10.00")

	_, err := engine.ProcessTransaction(context.Background(), PostingInput{
		AccountID: account.ID,
		Type:      "teleport",
		Amount:    decimal.RequireFromString("1.00"),
	})
	if err == nil {
		t.Fatal("expected error for unknown transaction type")
	}
}

func TestProcessTransactionRejectsNonPositiveAmount(t *testing.T) {
	engine, store := newTestEngine(t)
	account := mustSeed(t, store, "10.00")

	for _, amount := range []string{"0", "-5.00"} {
		_, err := engine.ProcessTransaction(context.Background(), PostingInput{
			AccountID: account.ID,
			Type:      TypeDeposit,
			Amount:    decimal.RequireFromString(amount),
		})
		if err == nil {
			t.Fatalf("expected error for amount %s", amount)
		}
	}
}

func TestTransferFundsConservation(t *testing.T) {
	engine, store := newTestEngine(t)
	src := mustSeed(t, store, "10000.00")
	dst := mustSeed(t, store, "0.00")

	ctx := context.Background()
	debitTxn, creditTxn, err := engine.TransferFunds(ctx, src.ID, dst.ID,
		decimal.RequireFromString("500.00"), "rent")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if debitTxn.Type != TypeTransfer || creditTxn.Type != TypeDeposit {
		t.Fatalf("unexpected leg types: %s / %s", debitTxn.Type, creditTxn.Type)
	}

	srcAfter, _ := store.Account(ctx, src.ID)
	dstAfter, _ := store.Account(ctx, dst.ID)
	if !srcAfter.Balance.Equal(decimal.RequireFromString("9500.00")) {
		t.Fatalf("source balance: %s", srcAfter.Balance)
	}
	if !dstAfter.Balance.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("destination balance: %s", dstAfter.Balance)
	}
	total := srcAfter.Balance.Add(dstAfter.Balance)
	if !total.Equal(decimal.RequireFromString("10000.00")) {
		t.Fatalf("money not conserved: %s", total)
	}
}

func TestTransferFundsInsufficientLeavesBalancesUnchanged(t *testing.T) {
	engine, store := newTestEngine(t)
	src := mustSeed(t, store, "9500.00")
	dst := mustSeed(t, store, "500.00")

	ctx := context.Background()
	_, _, err := engine.TransferFunds(ctx, src.ID, dst.ID,
		decimal.RequireFromString("20000.00"), "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	srcAfter, _ := store.Account(ctx, src.ID)
	dstAfter, _ := store.Account(ctx, dst.ID)
	if !srcAfter.Balance.Equal(decimal.RequireFromString("9500.00")) ||
		!dstAfter.Balance.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("balances changed: %s / %s", srcAfter.Balance, dstAfter.Balance)
	}
}

func TestTransferFundsRollsBackDebitWhenCreditFails(t *testing.T) {
	engine, store := newTestEngine(t)
	src := mustSeed(t, store, "1000.00")

	ctx := context.Background()
	_, _, err := engine.TransferFunds(ctx, src.ID, uuid.New(),
		decimal.RequireFromString("100.00"), "")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}

	srcAfter, _ := store.Account(ctx, src.ID)
	if !srcAfter.Balance.Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("debit leg not rolled back: %s", srcAfter.Balance)
	}
	txns, _ := store.Transactions(ctx, src.ID, 0)
	if len(txns) != 0 {
		t.Fatalf("rolled-back transfer left %d transaction rows", len(txns))
	}
}

func TestReverseTransactionRoundTrip(t *testing.T) {
	engine, store := newTestEngine(t)
	account := mustSeed(t, store, "200.00")

	ctx := context.Background()
	txn, err := engine.ProcessTransaction(ctx, PostingInput{
		AccountID: account.ID,
		Type:      TypeDeposit,
		Amount:    decimal.RequireFromString("75.00"),
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	reversal, err := engine.ReverseTransaction(ctx, txn.ID, "customer dispute")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if reversal.Type != TypeWithdrawal {
		t.Fatalf("expected withdrawal reversal, got %s", reversal.Type)
	}

	after, _ := store.Account(ctx, account.ID)
	if !after.Balance.Equal(decimal.RequireFromString("200.00")) {
		t.Fatalf("balance not restored: %s", after.Balance)
	}

	original, _ := store.Transaction(ctx, txn.ID)
	if original.Status != TxnStatusReversed {
		t.Fatalf("original status: %s", original.Status)
	}
}

func TestReverseTransactionGuards(t *testing.T) {
	engine, store := newTestEngine(t)
	account := mustSeed(t, store, "200.00")

	ctx := context.Background()
	if _, err := engine.ReverseTransaction(ctx, uuid.New(), ""); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected transaction not found, got %v", err)
	}

	txn, err := engine.ProcessTransaction(ctx, PostingInput{
		AccountID: account.ID,
		Type:      TypeDeposit,
		Amount:    decimal.RequireFromString("10.00"),
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := engine.ReverseTransaction(ctx, txn.ID, ""); err != nil {
		t.Fatalf("first reversal: %v", err)
	}
	if _, err := engine.ReverseTransaction(ctx, txn.ID, ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state on double reversal, got %v", err)
	}
}

func TestReverseTransactionRejectsTransferLeg(t *testing.T) {
	engine, store := newTestEngine(t)
	from := mustSeed(t, store, "200.00")
	to := mustSeed(t, store, "0.00")

	ctx := context.Background()
	debit, _, err := engine.TransferFunds(ctx, from.ID, to.ID, decimal.RequireFromString("50.00"), "")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	_, err = engine.ReverseTransaction(ctx, debit.ID, "")
	if err == nil {
		t.Fatal("expected transfer leg reversal to be rejected")
	}
	if !strings.Contains(err.Error(), "cannot be reversed") {
		t.Fatalf("expected an irreversible-type error, got %v", err)
	}

	after, _ := store.Account(ctx, from.ID)
	if !after.Balance.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("rejected reversal moved money: %s", after.Balance)
	}
	original, _ := store.Transaction(ctx, debit.ID)
	if original.Status != TxnStatusCompleted {
		t.Fatalf("original status changed: %s", original.Status)
	}
}

func TestAccountBalanceSnapshot(t *testing.T) {
	engine, store := newTestEngine(t)
	account := mustSeed(t, store, "42.00")

	snap, err := engine.AccountBalance(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if snap.AccountNumber != account.AccountNumber || !snap.Balance.Equal(account.Balance) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if _, err := engine.AccountBalance(context.Background(), uuid.New()); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestConcurrentTransfersSerialize(t *testing.T) {
	engine, store := newTestEngine(t)
	src := mustSeed(t, store, "1000.00")
	dst := mustSeed(t, store, "0.00")

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := engine.TransferFunds(ctx, src.ID, dst.ID,
				decimal.RequireFromString("100.00"), "drain")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("unexpected transfer error: %v", err)
		}
	}
	// 1000.00 funds exactly ten 100.00 transfers; the rest must reject.
	if succeeded != 10 {
		t.Fatalf("expected 10 successful transfers, got %d", succeeded)
	}

	srcAfter, _ := store.Account(ctx, src.ID)
	dstAfter, _ := store.Account(ctx, dst.ID)
	if !srcAfter.Balance.IsZero() || !dstAfter.Balance.Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("balances after concurrent transfers: %s / %s", srcAfter.Balance, dstAfter.Balance)
	}
}

func TestMiscellaneousFallbackEntry(t *testing.T) {
	engine, store := newTestEngine(t)
	account := mustSeed(t, store, "100.00")

	ctx := context.Background()
	txn, err := engine.ProcessTransaction(ctx, PostingInput{
		AccountID: account.ID,
		Type:      TypeCredit,
		Amount:    decimal.RequireFromString("5.00"),
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	entries, _ := store.LedgerEntries(ctx, txn.ID)
	if len(entries) != 1 || entries[0].AccountCode != GLMiscellaneous {
		t.Fatalf("expected single miscellaneous entry, got %+v", entries)
	}
}
