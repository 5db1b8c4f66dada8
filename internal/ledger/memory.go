package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and development. Mutations hold
// a single lock, so the conditional-update semantics match the SQL store.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[int64]Account
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]Account),
	}
}

func (s *MemoryStore) EnsureUser(_ context.Context, id int64, username, firstName, lastName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[id]; exists {
		return false, nil
	}
	s.accounts[id] = Account{
		ID:        id,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}
	return true, nil
}

func (s *MemoryStore) CreditReferral(_ context.Context, id int64, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.Balance += amount
	s.accounts[id] = acc
	return nil
}

func (s *MemoryStore) GetBalance(_ context.Context, id int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[id].Balance, nil
}

func (s *MemoryStore) Debit(_ context.Context, id int64, amount int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok || acc.Balance < amount {
		return false, nil
	}
	acc.Balance -= amount
	s.accounts[id] = acc
	return true, nil
}

func (s *MemoryStore) MarkTestConfigUsed(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return false, ErrNotFound
	}
	if acc.TestConfigUsed {
		return false, nil
	}
	acc.TestConfigUsed = true
	s.accounts[id] = acc
	return true, nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id int64, username, firstName, lastName string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.Username = username
	acc.FirstName = firstName
	acc.LastName = lastName
	acc.Balance = balance
	s.accounts[id] = acc
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, id)
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &acc, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accs := make([]Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].ID < accs[j].ID })
	return accs, nil
}
