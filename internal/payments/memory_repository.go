package payments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu            sync.RWMutex
	instructions  map[uuid.UUID]PaymentInstruction
	byReference   map[string]uuid.UUID
	beneficiaries map[uuid.UUID][]Beneficiary
	billers       map[string]Biller
	billPayments  []BillPayment
}

// NewMemoryRepository constructs an in-memory repository for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		instructions:  make(map[uuid.UUID]PaymentInstruction),
		byReference:   make(map[string]uuid.UUID),
		beneficiaries: make(map[uuid.UUID][]Beneficiary),
		billers:       make(map[string]Biller),
	}
}

func (r *memoryRepository) CreateInstruction(_ context.Context, p *PaymentInstruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.instructions[p.ID] = *p
	r.byReference[p.Reference] = p.ID
	return nil
}

func (r *memoryRepository) Instruction(_ context.Context, id uuid.UUID) (*PaymentInstruction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instructions[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return &p, nil
}

func (r *memoryRepository) InstructionByReference(_ context.Context, reference string) (*PaymentInstruction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byReference[reference]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	p := r.instructions[id]
	return &p, nil
}

func (r *memoryRepository) UpdateInstruction(_ context.Context, p *PaymentInstruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instructions[p.ID]; !ok {
		return ErrPaymentNotFound
	}
	r.instructions[p.ID] = *p
	return nil
}

func (r *memoryRepository) CreateBeneficiary(_ context.Context, b *Beneficiary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	r.beneficiaries[b.CustomerID] = append(r.beneficiaries[b.CustomerID], *b)
	return nil
}

func (r *memoryRepository) BeneficiariesForCustomer(_ context.Context, customerID uuid.UUID) ([]Beneficiary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Beneficiary
	for _, b := range r.beneficiaries[customerID] {
		if b.Status == "active" {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memoryRepository) BillerByName(_ context.Context, name string) (*Biller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.billers[name]
	if !ok {
		return nil, ErrBillerNotFound
	}
	return &b, nil
}

func (r *memoryRepository) CreateBiller(_ context.Context, b *Biller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	r.billers[b.Name] = *b
	return nil
}

func (r *memoryRepository) CreateBillPayment(_ context.Context, bp *BillPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bp.ID == uuid.Nil {
		bp.ID = uuid.New()
	}
	if bp.CreatedAt.IsZero() {
		bp.CreatedAt = time.Now().UTC()
	}
	r.billPayments = append(r.billPayments, *bp)
	return nil
}
