package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/example/order-ledger/internal/domain/order"
)

// MemoryStore keeps orders in process memory, guarded by a single RWMutex.
// The transaction-id index check and the insert happen under one write lock,
// which closes the check-then-insert race. Intended for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	orders  map[string]*order.Order // by order id
	txIndex map[string]string       // transaction id -> order id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  make(map[string]*order.Order),
		txIndex: make(map[string]string),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.txIndex[o.TransactionID]; ok {
		return &DuplicateTransactionError{
			TransactionID:   o.TransactionID,
			ExistingOrderID: existingID,
		}
	}

	s.orders[o.ID] = clone(o)
	s.txIndex[o.TransactionID] = o.ID
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(o), nil
}

func (s *MemoryStore) FindByTransactionID(ctx context.Context, txID string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.txIndex[txID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s.orders[id]), nil
}

func (s *MemoryStore) Update(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; !ok {
		return ErrNotFound
	}
	s.orders[o.ID] = clone(o)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, clone(o))
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

// clone deep-copies an order through its JSON form so callers can never
// mutate stored state through a shared slice or map.
func clone(o *order.Order) *order.Order {
	data, err := json.Marshal(o)
	if err != nil {
		panic(err)
	}
	var out order.Order
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}
