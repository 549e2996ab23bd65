package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeedAccount is a test helper that creates an active account with the given
// opening balance directly in the store, bypassing the engine.
func SeedAccount(s Store, customerID uuid.UUID, balance decimal.Decimal) (*Account, error) {
	account := &Account{
		ID:               uuid.New(),
		AccountNumber:    NewReference("ACC", 10),
		CustomerID:       customerID,
		AccountType:      "checking",
		Currency:         "USD",
		Balance:          balance,
		AvailableBalance: balance,
		Status:           AccountStatusActive,
	}
	if err := s.CreateAccount(context.Background(), account); err != nil {
		return nil, err
	}
	return account, nil
}
