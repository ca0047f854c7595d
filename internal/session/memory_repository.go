package session

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository. Used in
// tests and as the fallback when no durable store is configured.
type InMemoryRepository struct {
	mu   sync.RWMutex
	trip *Trip
}

// NewInMemoryRepository creates a new in-memory trip repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Save stores the trip snapshot, replacing any prior one.
func (r *InMemoryRepository) Save(_ context.Context, trip *Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *trip
	r.trip = &cpy
	return nil
}

// Load retrieves the stored snapshot.
func (r *InMemoryRepository) Load(_ context.Context) (*Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.trip == nil {
		return nil, ErrNoActiveTrip
	}

	cpy := *r.trip
	return &cpy, nil
}

// Clear removes the snapshot.
func (r *InMemoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trip = nil
	return nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
