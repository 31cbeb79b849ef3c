// Package store implements the order and customer meta stores.
package store

import (
	"context"
	"maps"
	"sync"

	"euvat/internal/ordervat"
	"euvat/pkg/platform/sentinel"
)

// InMemoryStore keeps meta per order and per customer.
type InMemoryStore struct {
	mu        sync.RWMutex
	orders    map[string]map[string]string
	customers map[string]map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orders:    make(map[string]map[string]string),
		customers: make(map[string]map[string]string),
	}
}

func (s *InMemoryStore) SetOrderMeta(_ context.Context, orderID string, meta map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replace(s.orders, orderID, meta)
	return nil
}

func (s *InMemoryStore) OrderMeta(_ context.Context, orderID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.orders, orderID)
}

func (s *InMemoryStore) SetCustomerMeta(_ context.Context, customerID string, meta map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replace(s.customers, customerID, meta)
	return nil
}

func (s *InMemoryStore) CustomerMeta(_ context.Context, customerID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.customers, customerID)
}

// RunInTx holds the write lock for the whole of fn. Writes are staged and
// applied only when fn succeeds.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(store ordervat.MetaStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &stagedStore{
		parent:    s,
		orders:    make(map[string]map[string]string),
		customers: make(map[string]map[string]string),
	}
	if err := fn(staged); err != nil {
		return err
	}
	for id, meta := range staged.orders {
		replace(s.orders, id, meta)
	}
	for id, meta := range staged.customers {
		replace(s.customers, id, meta)
	}
	return nil
}

// stagedStore reads through to its parent, whose lock the caller holds.
type stagedStore struct {
	parent    *InMemoryStore
	orders    map[string]map[string]string
	customers map[string]map[string]string
}

func (t *stagedStore) SetOrderMeta(_ context.Context, orderID string, meta map[string]string) error {
	t.orders[orderID] = maps.Clone(meta)
	return nil
}

func (t *stagedStore) OrderMeta(_ context.Context, orderID string) (map[string]string, error) {
	if meta, ok := t.orders[orderID]; ok {
		return stagedCopy(meta)
	}
	return lookup(t.parent.orders, orderID)
}

func (t *stagedStore) SetCustomerMeta(_ context.Context, customerID string, meta map[string]string) error {
	t.customers[customerID] = maps.Clone(meta)
	return nil
}

func (t *stagedStore) CustomerMeta(_ context.Context, customerID string) (map[string]string, error) {
	if meta, ok := t.customers[customerID]; ok {
		return stagedCopy(meta)
	}
	return lookup(t.parent.customers, customerID)
}

func stagedCopy(meta map[string]string) (map[string]string, error) {
	if len(meta) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return maps.Clone(meta), nil
}

func replace(into map[string]map[string]string, id string, meta map[string]string) {
	if len(meta) == 0 {
		delete(into, id)
		return
	}
	into[id] = maps.Clone(meta)
}

func lookup(from map[string]map[string]string, id string) (map[string]string, error) {
	meta, ok := from[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return maps.Clone(meta), nil
}
