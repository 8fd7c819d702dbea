package store

import (
	"context"
	"sync"
)

// MemoryStore implements Ledger with in-memory storage
type MemoryStore struct {
	mu     sync.RWMutex
	stocks map[string]int // productID -> quantity
}

// NewMemoryStore creates a new in-memory ledger
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stocks: make(map[string]int),
	}
}

func (s *MemoryStore) Adjust(_ context.Context, productID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.stocks[productID]
	if !exists {
		return 0, ErrProductNotFound
	}
	s.stocks[productID] = current + delta
	return current + delta, nil
}

func (s *MemoryStore) TryConsume(_ context.Context, productID string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.stocks[productID]
	if !exists {
		return 0, ErrProductNotFound
	}
	if current < qty {
		return current, ErrInsufficientStock
	}
	s.stocks[productID] = current - qty
	return current - qty, nil
}

// Stock returns stock levels for the given product IDs
func (s *MemoryStore) Stock(_ context.Context, productIDs []string) ([]StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]StockLevel, 0, len(productIDs))
	for _, id := range productIDs {
		if qty, exists := s.stocks[id]; exists {
			result = append(result, StockLevel{ProductID: id, Quantity: qty})
		}
	}
	return result, nil
}

// SetStock sets the stock level for a product
func (s *MemoryStore) SetStock(_ context.Context, productID string, quantity int) error {
	if quantity < 0 {
		return ErrNegativeStock
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stocks[productID] = quantity
	return nil
}
