package loans

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu          sync.RWMutex
	loans       map[uuid.UUID]Loan
	byReference map[string]uuid.UUID
	schedules   map[uuid.UUID][]LoanPayment
	payments    map[uuid.UUID]uuid.UUID // payment id -> loan id
}

// NewMemoryRepository constructs an in-memory repository for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		loans:       make(map[uuid.UUID]Loan),
		byReference: make(map[string]uuid.UUID),
		schedules:   make(map[uuid.UUID][]LoanPayment),
		payments:    make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *memoryRepository) CreateLoan(_ context.Context, loan *Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	r.loans[loan.ID] = *loan
	r.byReference[loan.Reference] = loan.ID
	return nil
}

func (r *memoryRepository) Loan(_ context.Context, id uuid.UUID) (*Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loan, ok := r.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	return &loan, nil
}

func (r *memoryRepository) LoanByReference(_ context.Context, reference string) (*Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byReference[reference]
	if !ok {
		return nil, ErrLoanNotFound
	}
	loan := r.loans[id]
	return &loan, nil
}

func (r *memoryRepository) UpdateLoan(_ context.Context, loan *Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loans[loan.ID]; !ok {
		return ErrLoanNotFound
	}
	r.loans[loan.ID] = *loan
	return nil
}

func (r *memoryRepository) ReplaceSchedule(_ context.Context, loanID uuid.UUID, schedule []LoanPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, old := range r.schedules[loanID] {
		delete(r.payments, old.ID)
	}
	rows := make([]LoanPayment, len(schedule))
	copy(rows, schedule)
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
		r.payments[rows[i].ID] = loanID
	}
	r.schedules[loanID] = rows
	return nil
}

func (r *memoryRepository) Schedule(_ context.Context, loanID uuid.UUID) ([]LoanPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := append([]LoanPayment(nil), r.schedules[loanID]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].PaymentNumber < rows[j].PaymentNumber })
	return rows, nil
}

func (r *memoryRepository) Payment(_ context.Context, id uuid.UUID) (*LoanPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loanID, ok := r.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	for _, row := range r.schedules[loanID] {
		if row.ID == id {
			return &row, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (r *memoryRepository) UpdatePayment(_ context.Context, payment *LoanPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loanID, ok := r.payments[payment.ID]
	if !ok {
		return ErrPaymentNotFound
	}
	rows := r.schedules[loanID]
	for i := range rows {
		if rows[i].ID == payment.ID {
			rows[i] = *payment
			return nil
		}
	}
	return ErrPaymentNotFound
}
