package catalog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is used for tests and local scenarios.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: map[string]Product{}}
}

func (s *MemoryStore) Put(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = p
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListAvailable(_ context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Product
	for _, p := range s.products {
		if p.Stock > 0 {
			out = append(out, p)
		}
	}
	sortByName(out)
	return out, nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Product
	for _, p := range s.products {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sortByName(out)
	return out, nil
}

// DecrementIfAvailable: cek & kurangi dalam satu critical section, setara
// dengan conditional update di Postgres.
func (s *MemoryStore) DecrementIfAvailable(_ context.Context, id string, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.Stock < n {
		return false, nil
	}
	p.Stock -= n
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return true, nil
}

func (s *MemoryStore) Increment(_ context.Context, id string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Stock += n
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return nil
}

func sortByName(ps []Product) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
}
