package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a concurrency-safe in-memory store used by tests and dev
// mode. One mutex guards all state: Atomic holds it for the duration of the
// unit of work, so balance mutations on the same account can never
// interleave, matching the row-lock discipline of the Postgres store.
type MemoryStore struct {
	mu   sync.Mutex
	inTx bool

	accounts     map[uuid.UUID]Account
	byNumber     map[string]uuid.UUID
	transactions map[uuid.UUID]Transaction
	txnOrder     []uuid.UUID
	entries      map[uuid.UUID][]GeneralLedgerEntry
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[uuid.UUID]Account),
		byNumber:     make(map[string]uuid.UUID),
		transactions: make(map[uuid.UUID]Transaction),
		entries:      make(map[uuid.UUID][]GeneralLedgerEntry),
	}
}

type memorySnapshot struct {
	accounts     map[uuid.UUID]Account
	byNumber     map[string]uuid.UUID
	transactions map[uuid.UUID]Transaction
	txnOrder     []uuid.UUID
	entries      map[uuid.UUID][]GeneralLedgerEntry
}

func (s *MemoryStore) snapshot() memorySnapshot {
	snap := memorySnapshot{
		accounts:     make(map[uuid.UUID]Account, len(s.accounts)),
		byNumber:     make(map[string]uuid.UUID, len(s.byNumber)),
		transactions: make(map[uuid.UUID]Transaction, len(s.transactions)),
		txnOrder:     append([]uuid.UUID(nil), s.txnOrder...),
		entries:      make(map[uuid.UUID][]GeneralLedgerEntry, len(s.entries)),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.byNumber {
		snap.byNumber[k] = v
	}
	for k, v := range s.transactions {
		snap.transactions[k] = v
	}
	for k, v := range s.entries {
		snap.entries[k] = append([]GeneralLedgerEntry(nil), v...)
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.accounts = snap.accounts
	s.byNumber = snap.byNumber
	s.transactions = snap.transactions
	s.txnOrder = snap.txnOrder
	s.entries = snap.entries
}

// Atomic serializes the unit of work under the store mutex and rolls every
// write back when fn fails. Nested calls join the open unit.
func (s *MemoryStore) Atomic(_ context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	tx := &MemoryStore{
		inTx:         true,
		accounts:     s.accounts,
		byNumber:     s.byNumber,
		transactions: s.transactions,
		txnOrder:     s.txnOrder,
		entries:      s.entries,
	}
	if err := fn(tx); err != nil {
		s.restore(snap)
		return err
	}
	// txnOrder may have been reallocated by append inside the unit.
	s.txnOrder = tx.txnOrder
	return nil
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *Account) error {
	defer s.lock()()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.OpenedAt.IsZero() {
		account.OpenedAt = time.Now().UTC()
	}
	account.UpdatedAt = time.Now().UTC()
	s.accounts[account.ID] = *account
	s.byNumber[account.AccountNumber] = account.ID
	return nil
}

func (s *MemoryStore) Account(_ context.Context, id uuid.UUID) (*Account, error) {
	defer s.lock()()
	return s.accountLocked(id)
}

func (s *MemoryStore) accountLocked(id uuid.UUID) (*Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (s *MemoryStore) AccountByNumber(_ context.Context, number string) (*Account, error) {
	defer s.lock()()
	id, ok := s.byNumber[number]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.accountLocked(id)
}

// AccountForUpdate relies on the Atomic mutex for exclusivity; outside a
// unit of work it degrades to a plain read.
func (s *MemoryStore) AccountForUpdate(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.Account(ctx, id)
}

func (s *MemoryStore) ActiveAccountForCustomer(_ context.Context, customerID uuid.UUID) (*Account, error) {
	defer s.lock()()
	var found *Account
	for id := range s.accounts {
		account := s.accounts[id]
		if account.CustomerID == customerID && account.Status == AccountStatusActive {
			if found == nil || account.OpenedAt.Before(found.OpenedAt) {
				copied := account
				found = &copied
			}
		}
	}
	if found == nil {
		return nil, ErrAccountNotFound
	}
	return found, nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, account *Account) error {
	defer s.lock()()
	if _, ok := s.accounts[account.ID]; !ok {
		return ErrAccountNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	s.accounts[account.ID] = *account
	return nil
}

func (s *MemoryStore) CreateTransaction(_ context.Context, txn *Transaction) error {
	defer s.lock()()
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	s.transactions[txn.ID] = *txn
	s.txnOrder = append(s.txnOrder, txn.ID)
	return nil
}

func (s *MemoryStore) Transaction(_ context.Context, id uuid.UUID) (*Transaction, error) {
	defer s.lock()()
	txn, ok := s.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &txn, nil
}

func (s *MemoryStore) SetTransactionStatus(_ context.Context, id uuid.UUID, status string) error {
	defer s.lock()()
	txn, ok := s.transactions[id]
	if !ok {
		return ErrTransactionNotFound
	}
	txn.Status = status
	s.transactions[id] = txn
	return nil
}

func (s *MemoryStore) Transactions(_ context.Context, accountID uuid.UUID, limit int) ([]Transaction, error) {
	defer s.lock()()
	var out []Transaction
	for i := len(s.txnOrder) - 1; i >= 0; i-- {
		txn := s.transactions[s.txnOrder[i]]
		if txn.AccountID != accountID {
			continue
		}
		out = append(out, txn)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateLedgerEntries(_ context.Context, entries []GeneralLedgerEntry) error {
	defer s.lock()()
	for i := range entries {
		if entries[i].ID == uuid.Nil {
			entries[i].ID = uuid.New()
		}
		s.entries[entries[i].TransactionID] = append(s.entries[entries[i].TransactionID], entries[i])
	}
	return nil
}

func (s *MemoryStore) LedgerEntries(_ context.Context, transactionID uuid.UUID) ([]GeneralLedgerEntry, error) {
	defer s.lock()()
	entries := append([]GeneralLedgerEntry(nil), s.entries[transactionID]...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AccountCode < entries[j].AccountCode
	})
	return entries, nil
}
