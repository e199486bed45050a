package orders

import (
	"context"
	"sort"
	"sync"
)

// MemoryLedger is used for tests and local scenarios.
type MemoryLedger struct {
	mu     sync.RWMutex
	orders map[string]Order
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{orders: map[string]Order{}}
}

func (r *MemoryLedger) Insert(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	cp.Lines = append([]Line(nil), o.Lines...)
	r.orders[o.ID] = cp
	return nil
}

func (r *MemoryLedger) FindByID(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	cp.Lines = append([]Line(nil), o.Lines...)
	return &cp, nil
}

func (r *MemoryLedger) FindByCustomer(_ context.Context, customerID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryLedger) FindByOwner(_ context.Context, ownerID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Order
	for _, o := range r.orders {
		if o.HasOwner(ownerID) {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryLedger) UpdateStatus(_ context.Context, id string, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	r.orders[id] = o
	return true, nil
}

func sortNewestFirst(os []Order) {
	sort.Slice(os, func(i, j int) bool { return os[i].CreatedAt.After(os[j].CreatedAt) })
}
