package customers

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]Customer
	byEmail   map[string]uuid.UUID
}

// NewMemoryRepository constructs an in-memory repository for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		customers: make(map[uuid.UUID]Customer),
		byEmail:   make(map[string]uuid.UUID),
	}
}

func (r *memoryRepository) Create(_ context.Context, c *Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.customers[c.ID] = *c
	r.byEmail[c.Email] = c.ID
	return nil
}

func (r *memoryRepository) Customer(_ context.Context, id uuid.UUID) (*Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &c, nil
}

func (r *memoryRepository) CustomerByEmail(_ context.Context, email string) (*Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	c := r.customers[id]
	return &c, nil
}
