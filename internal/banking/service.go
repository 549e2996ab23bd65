package banking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/ledger"
)

// Service manages the account lifecycle on top of the transaction engine.
type Service struct {
	store   ledger.Store
	engine  *ledger.Engine
	logger  *slog.Logger
	auditor audit.Recorder
}

// NewService builds a banking service instance.
func NewService(store ledger.Store, engine *ledger.Engine, logger *slog.Logger, auditor audit.Recorder) *Service {
	return &Service{store: store, engine: engine, logger: logger, auditor: auditor}
}

// OpenAccountInput captures the data required to open an account.
type OpenAccountInput struct {
	CustomerID     uuid.UUID
	AccountType    string
	Currency       string
	InitialDeposit decimal.Decimal
}

// OpenAccount creates an active account and, when an initial deposit is
// given, posts it through the transaction engine. The account row must exist
// before a transaction can reference it, so creation and first deposit are
// two consecutive units of work, not one.
func (s *Service) OpenAccount(ctx context.Context, in OpenAccountInput) (*ledger.Account, error) {
	if in.AccountType == "" {
		return nil, fmt.Errorf("account type is required")
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	account := &ledger.Account{
		ID:               uuid.New(),
		AccountNumber:    ledger.NewReference("ACC", 10),
		CustomerID:       in.CustomerID,
		AccountType:      in.AccountType,
		Currency:         currency,
		Balance:          decimal.Zero,
		AvailableBalance: decimal.Zero,
		Status:           ledger.AccountStatusActive,
		OpenedAt:         time.Now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	if in.InitialDeposit.IsPositive() {
		if _, err := s.engine.ProcessTransaction(ctx, ledger.PostingInput{
			AccountID:   account.ID,
			Type:        ledger.TypeDeposit,
			Amount:      in.InitialDeposit,
			Description: "Initial deposit",
		}); err != nil {
			return nil, err
		}
		account, err := s.store.Account(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		s.logOpened(account)
		return account, nil
	}

	s.logOpened(account)
	return account, nil
}

func (s *Service) logOpened(account *ledger.Account) {
	if s.logger != nil {
		s.logger.Info("account opened",
			"account_number", account.AccountNumber, "type", account.AccountType)
	}
	audit.Emit(context.Background(), s.auditor, audit.Event{
		Kind:      audit.KindAccountOpened,
		Entity:    "account",
		Reference: account.AccountNumber,
	})
}

// CloseAccount marks an account closed. Accounts with a non-zero balance
// cannot close.
func (s *Service) CloseAccount(ctx context.Context, accountID uuid.UUID, reason string) error {
	return s.store.Atomic(ctx, func(tx ledger.Store) error {
		account, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.Balance.IsZero() {
			return fmt.Errorf("%w: cannot close account with non-zero balance %s",
				ledger.ErrInvalidState, account.Balance)
		}

		now := time.Now().UTC()
		account.Status = ledger.AccountStatusClosed
		account.ClosedAt = &now
		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}

		if s.logger != nil {
			s.logger.Info("account closed",
				"account_number", account.AccountNumber, "reason", reason)
		}
		audit.Emit(ctx, s.auditor, audit.Event{
			Kind:      audit.KindAccountClosed,
			Entity:    "account",
			Reference: account.AccountNumber,
			Detail:    reason,
		})
		return nil
	})
}

// Account returns account details by id.
func (s *Service) Account(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error) {
	return s.store.Account(ctx, accountID)
}
