package database

import (
	"context"
	"sync"
	"time"

	"stolik/internal/models"
)

// MemoryStore is an in-memory CustomerStore with the same contract as
// the sqlite store. Used by tests and as a fallback when no database
// path is configured.
type MemoryStore struct {
	mu        sync.Mutex
	customers map[int64]*models.Customer
	nextID    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{customers: make(map[int64]*models.Customer), nextID: 1}
}

func (s *MemoryStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	customer.ID = s.nextID
	s.nextID++
	customer.TableID = nil
	customer.CheckedIn = false
	customer.CreatedAt = now
	customer.UpdatedAt = now

	clone := *customer
	s.customers[customer.ID] = &clone
	return nil
}

func (s *MemoryStore) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	clone := *customer
	if customer.TableID != nil {
		tableID := *customer.TableID
		clone.TableID = &tableID
	}
	return &clone, nil
}

func (s *MemoryStore) GetCustomerByTable(ctx context.Context, tableID int64) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, customer := range s.customers {
		if customer.TableID != nil && *customer.TableID == tableID {
			clone := *customer
			id := *customer.TableID
			clone.TableID = &id
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetAssignedTable(ctx context.Context, customerID int64) (*int64, error) {
	customer, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return customer.TableID, nil
}

func (s *MemoryStore) SetAssignedTable(ctx context.Context, customerID int64, tableID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[customerID]
	if !ok {
		return ErrCustomerNotFound
	}
	if tableID == nil {
		customer.TableID = nil
	} else {
		id := *tableID
		customer.TableID = &id
	}
	// Same invariant as the sqlite store: a fresh assignment (or a
	// cleared one) always resets the checked-in flag.
	customer.CheckedIn = false
	customer.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetCheckedIn(ctx context.Context, customerID int64, checkedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[customerID]
	if !ok {
		return ErrCustomerNotFound
	}
	customer.CheckedIn = checkedIn
	customer.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Customer, 0, len(s.customers))
	for id := int64(1); id < s.nextID; id++ {
		customer, ok := s.customers[id]
		if !ok {
			continue
		}
		clone := *customer
		if customer.TableID != nil {
			tableID := *customer.TableID
			clone.TableID = &tableID
		}
		out = append(out, &clone)
	}
	return out, nil
}
